package engine

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// serveAdmin routes the operational endpoints under /__mimicd/. These are
// always available and never collide with configured mocks.
func (e *Engine) serveAdmin(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case adminPrefix + "health":
		e.handleHealth(w, r)
	case adminPrefix + "ready":
		e.handleHealth(w, r) // readiness equals liveness for a config-driven mock
	case adminPrefix + "reload":
		e.handleReload(w, r)
	case adminPrefix + "requests":
		e.handleRequests(w, r)
	default:
		writeError(w, http.StatusNotFound, "unknown_admin_endpoint", "unknown admin endpoint "+r.URL.Path)
	}
}

func (e *Engine) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := e.snapshot.Load()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"api":       snap.API.Name,
		"endpoints": len(snap.Resolver.Endpoints()),
		"loadedAt":  snap.LoadedAt,
	})
}

// handleReload re-reads the configuration source and swaps the snapshot.
// A failed reload leaves the current generation serving and reports the
// error, matching the fatal-at-load, never-at-request-time error policy.
func (e *Engine) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "reload requires POST")
		return
	}
	if e.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload_unavailable", "no configuration source wired for reload")
		return
	}

	snap, err := e.reload()
	if err != nil {
		e.log.Error("configuration reload failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "reload_failed", err.Error())
		return
	}
	e.Swap(snap)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "reloaded",
		"endpoints": len(snap.Resolver.Endpoints()),
	})
}

func (e *Engine) handleRequests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(e.history.List(limit))
}
