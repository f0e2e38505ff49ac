package handlers

import "net/http"

// Health reports liveness. It deliberately does not probe the render
// service; the gateway is healthy even when the upstream is down.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
