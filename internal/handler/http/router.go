package http

import (
	"net/http"

	"link-shortener/internal/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the route table.
//
// Admission control is applied per route, not globally: creation and
// redirect traffic are gated by SEPARATE event classes with separate
// token windows, while health and metrics stay ungated so probes and
// scrapes keep working during an abuse storm.
//
// metricsEnabled controls whether the Prometheus scrape endpoint is
// mounted at all; deployments without a scraper can turn it off.
func NewRouter(h *Handler, admission Admission, metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()

	admitPost := AdmissionMiddleware(admission, domain.EventExcessivePost)
	admitGet := AdmissionMiddleware(admission, domain.EventExcessiveGet)

	// API routes
	mux.Handle("POST /api/v1/urls", admitPost(http.HandlerFunc(h.CreateURL)))
	mux.HandleFunc("GET /api/v1/urls/{shortKey}/stats", h.GetURLStats)
	mux.HandleFunc("DELETE /api/v1/urls/{id}", h.DeleteURL)

	// Moderation routes
	mux.HandleFunc("POST /api/v1/blacklist", h.AddBlacklistPattern)
	mux.HandleFunc("GET /api/v1/blacklist", h.ListBlacklist)
	mux.HandleFunc("DELETE /api/v1/blacklist/{id}", h.RemoveBlacklistPattern)
	mux.HandleFunc("GET /api/v1/abuse", h.ListAbuseRecords)

	// Operational endpoints
	mux.HandleFunc("GET /health/live", h.HealthCheck)
	if metricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	// Short link routes (single path segment, so they never shadow the
	// API prefixes above)
	mux.HandleFunc("GET /{shortKey}/qr", h.QRCode)
	mux.Handle("GET /{shortKey}", admitGet(http.HandlerFunc(h.RedirectURL)))

	return mux
}
