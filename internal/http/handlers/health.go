package handlers

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.ok(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
		"env":    a.Config.AppEnv,
	})
}
