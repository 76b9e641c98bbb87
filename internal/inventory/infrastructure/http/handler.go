package http

import (
	"log/slog"
	"net/http"

	"github.com/dmehra2102/myshop/internal/inventory/application"
	"github.com/dmehra2102/myshop/pkg/httpjson"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log     *slog.Logger
	catalog *application.Catalog
	tracer  trace.Tracer
	gate    func(http.Handler) http.Handler
}

// NewHandler serves the product listing. gate, when non-nil, wraps the
// listing route (the admission limiter in production).
func NewHandler(log *slog.Logger, catalog *application.Catalog, gate func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:     log,
		catalog: catalog,
		tracer:  otel.Tracer("inventory-http"),
		gate:    gate,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	if h.gate != nil {
		r.Use(h.gate)
	}
	r.Get("/", h.listProducts)
	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.catalog.List(ctx)
	if err != nil {
		span.RecordError(err)
		h.log.Error("list products failed", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "could not list products")
		return
	}
	httpjson.Write(w, http.StatusOK, products)
}
