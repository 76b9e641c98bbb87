package main

import (
	"net/http"
	"time"

	"github.com/dmehra2102/myshop/pkg/httpjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type routes struct {
	orders   http.Handler
	products http.Handler
	reports  http.Handler
}

func newRouter(rt routes, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/order", rt.orders)
	r.Mount("/product", rt.products)
	r.Mount("/report", rt.reports)

	return otelhttp.NewHandler(r, "shop-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
