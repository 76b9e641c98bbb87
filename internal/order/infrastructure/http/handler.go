package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	"github.com/dmehra2102/myshop/internal/order/application"
	"github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/pkg/httpjson"
	"github.com/dmehra2102/myshop/pkg/idempotency"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log    *slog.Logger
	proc   *application.Processor
	tracer trace.Tracer

	idem        *idempotency.Store
	reserveGate func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithIdempotency rejects replayed order creations carrying the same
// Idempotency-Key.
func WithIdempotency(s *idempotency.Store) Option { return func(h *Handler) { h.idem = s } }

// WithReserveGate puts gate in front of both reservation routes.
func WithReserveGate(gate func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.reserveGate = gate }
}

func NewHandler(log *slog.Logger, proc *application.Processor, opts ...Option) *Handler {
	h := &Handler{
		log:    log,
		proc:   proc,
		tracer: otel.Tracer("order-http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if h.reserveGate != nil {
			r.Use(h.reserveGate)
		}
		r.Post("/reserve-static/{productId}", h.reserveStatic)
		r.Post("/reserve/{productId}", h.reserve)
	})
	r.Group(func(r chi.Router) {
		if h.idem != nil {
			r.Use(idempotency.Middleware(h.log, h.idem, "order-create"))
		}
		r.Post("/create", h.create)
	})
	r.Post("/finalize/{orderId}", h.finalize)
	r.Post("/cancel/{orderId}", h.cancel)
	r.Get("/{orderId}", h.getOrder)
	return r
}

func (h *Handler) reserveStatic(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	ctx, span := h.tracer.Start(r.Context(), "ReserveStatic", trace.WithAttributes(attribute.String("product_id", productID)))
	defer span.End()

	customer, ok := h.customerFromBody(w, r)
	if !ok {
		return
	}
	res, err := h.proc.TryReserveProductInStock(ctx, productID, &customer)
	if err != nil {
		h.fault(w, span, "reserve-static", err)
		return
	}
	if !res.OK() {
		// every business failure of the immediate path is a bad request
		writeFailure(w, http.StatusBadRequest, res.Failure)
		return
	}
	httpjson.Write(w, http.StatusOK, res.Remaining)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	ctx, span := h.tracer.Start(r.Context(), "Reserve", trace.WithAttributes(attribute.String("product_id", productID)))
	defer span.End()

	customer, ok := h.customerFromBody(w, r)
	if !ok {
		return
	}
	res, err := h.proc.Reserve(ctx, productID, &customer)
	if err != nil {
		h.fault(w, span, "reserve", err)
		return
	}
	h.writeResult(w, res)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req application.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := h.proc.PlaceOrder(ctx, req)
	if err != nil {
		h.fault(w, span, "create", err)
		return
	}
	h.writeResult(w, res)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	ctx, span := h.tracer.Start(r.Context(), "FinalizeOrder", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	res, err := h.proc.FinalizeOrder(ctx, orderID, r.URL.Query().Get("paymentReference"))
	if err != nil {
		h.fault(w, span, "finalize", err)
		return
	}
	h.writeResult(w, res)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpjson.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by request"
	}
	res, err := h.proc.CancelOrder(ctx, orderID, req.Reason)
	if err != nil {
		h.fault(w, span, "cancel", err)
		return
	}
	h.writeResult(w, res)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.proc.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.log.Error("get order failed", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeResult(w, res)
}

// customerFromBody decodes an optional customer. Requests without a body
// get a fresh demo customer.
func (h *Handler) customerFromBody(w http.ResponseWriter, r *http.Request) (custdomain.Customer, bool) {
	var c custdomain.Customer
	err := json.NewDecoder(r.Body).Decode(&c)
	switch {
	case errors.Is(err, io.EOF):
		return custdomain.Demo(), true
	case err != nil:
		httpjson.Error(w, http.StatusBadRequest, "invalid customer")
		return c, false
	}
	return c, true
}

func (h *Handler) writeResult(w http.ResponseWriter, res domain.Result) {
	if res.OK() {
		httpjson.Write(w, http.StatusOK, res.Order)
		return
	}
	status := http.StatusBadRequest
	if res.Failure.Kind == domain.FailureNotFound {
		status = http.StatusNotFound
	}
	writeFailure(w, status, res.Failure)
}

func (h *Handler) fault(w http.ResponseWriter, span trace.Span, op string, err error) {
	span.RecordError(err)
	h.log.Error("order request failed", "op", op, "err", err)
	httpjson.Error(w, http.StatusInternalServerError, "internal error")
}

func writeFailure(w http.ResponseWriter, status int, f *domain.Failure) {
	httpjson.Error(w, status, failureMessage(f), f.Reasons...)
}

func failureMessage(f *domain.Failure) string {
	switch f.Kind {
	case domain.FailureNotFound:
		if f.OrderID != "" {
			return "order not found"
		}
		return "product not found"
	case domain.FailureOutOfStock:
		return "out of stock"
	default:
		return "validation failed"
	}
}
