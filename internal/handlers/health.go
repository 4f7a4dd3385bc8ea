package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/httpx"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
)

var startTime = time.Now()

// health responds with a simple status payload for liveness checks.
func health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readiness reports whether storage is reachable.
func (s *server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			requestctx.Logger(r.Context()).Warn("readiness check failed", zap.Error(err))
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", "storage unavailable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
