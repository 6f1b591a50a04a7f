package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"envmon/internal/utils"
)

// Pinger reports whether the reading store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store Pinger
}

func NewHealthchecker(store Pinger) healthchecker {
	return &healthcheckerImpl{store: store}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("failed to check store connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check store connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, store Pinger) {
	healthchecker := NewHealthchecker(store)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
