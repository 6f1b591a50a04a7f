package httpapi

import (
	"net/http"

	"envmon/internal/metrics"
)

// NewMux returns a mux serving /healthz and, when m is not nil, /metrics.
// Feature modules register their own routes on it.
func NewMux(store Pinger, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	return mux
}
