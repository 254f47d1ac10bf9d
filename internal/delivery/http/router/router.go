package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/pricewatch-service/internal/delivery/http/handler"
	"github.com/user/pricewatch-service/internal/delivery/http/middleware"
	"github.com/user/pricewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

func New(h *handler.Handler, gatherer prometheus.Gatherer, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// A manual run lasts as long as the batch schedule needs.
		r.Post("/monitor/run", h.HandleRunNow)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Get("/health", h.HandleHealthCheck)
			r.Get("/monitor/status", h.HandleRunStatus)
		})
	})

	return r
}
