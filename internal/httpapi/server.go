package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"envmon/internal/config"
	"envmon/internal/metrics"
)

// NewHandler wraps mux with CORS, metrics and request logging.
func NewHandler(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-API-KEY", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return requestLogger(c.Handler(m.WrapHandler(mux)))
}

func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, mux, m),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
