package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router registers every route. Rating and stats routes require a bearer
// token; health, version and login do not.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	r.HandleFunc("/photo_ratings_login", h.Login).Methods("POST")

	// Protected routes
	protected := r.NewRoute().Subrouter()
	protected.Use(h.RequireToken)
	protected.HandleFunc("/get_unrated_images", h.GetUnratedImages).Methods("GET")
	protected.HandleFunc("/images/{partition}/{filename}", h.ServeImage).Methods("GET")
	protected.HandleFunc("/rate_image", h.RateImage).Methods("POST")
	protected.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	protected.HandleFunc("/api/history", h.GetHistory).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})

	return r
}

// MetricsRouter serves /metrics for the separate metrics listener.
func (h *Handlers) MetricsRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	)).Methods("GET")
	return r
}
