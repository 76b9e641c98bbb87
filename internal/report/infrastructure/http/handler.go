package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmehra2102/myshop/internal/report/application"
	"github.com/dmehra2102/myshop/pkg/httpjson"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("report-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/{year}", h.yearly)
	return r
}

func (h *Handler) yearly(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		httpjson.Error(w, http.StatusBadRequest, "invalid year")
		return
	}
	ctx, span := h.tracer.Start(r.Context(), "YearlyReport", trace.WithAttributes(attribute.Int("year", year)))
	defer span.End()

	report, err := h.service.YearlyReport(ctx, year)
	if err != nil {
		span.RecordError(err)
		h.log.Error("yearly report failed", "year", year, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}
