package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/delivery/http/handler"
	"github.com/user/election-scraper/internal/delivery/http/middleware"
	"github.com/user/election-scraper/pkg/metrics"
)

// ScrapeTimeout bounds a synchronous scrape request.
const ScrapeTimeout = 10 * time.Minute

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, l *zap.Logger) http.Handler {
	if l == nil {
		l = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(l))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)

	r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.With(chimw.Timeout(ScrapeTimeout)).Post("/scrape", h.HandleScrape)
		r.Get("/runs/{id}", h.HandleGetRun)
		r.Get("/runs/{id}/skipped", h.HandleGetSkipped)
	})

	return r
}
