package http

import "net/http"

// HealthHandler reports liveness in the shape the platform's probes expect.
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status  string `json:"status"`
			Service string `json:"service"`
		}{Status: "healthy", Service: service})
	}
}

// MetricsHandler serves the scrape placeholder the deployment's monitoring
// expects on every service.
func MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# Metrics placeholder\nservice_up 1\n"))
	}
}
