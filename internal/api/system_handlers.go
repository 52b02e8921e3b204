package api

import (
	"net/http"
	"time"

	"github.com/greekdrop/greekdrop/internal/websocket"
)

// GetCapabilities returns the hardware capability descriptor. ?force=true
// re-runs detection (useful after installing a missing tool) and pushes the
// new state to all connected UIs.
func (h *Handler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	caps := h.probe.Refresh(r.Context(), force)
	device := h.probe.Device(caps)

	if force && h.wsServer != nil {
		h.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeCapabilities,
			Data: map[string]any{"capabilities": caps, "device": device},
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":    time.Now(),
		"capabilities": caps,
		"device":       device,
	})
}

// GetVersion returns the application version
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"name":    "greekdrop",
		"version": h.version,
	})
}

// GetHealth is the liveness endpoint
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// PreloadModel loads a whisper model into the cache ahead of the first job
func (h *Handler) PreloadModel(w http.ResponseWriter, r *http.Request) {
	if h.whisper == nil {
		writeError(w, http.StatusServiceUnavailable, "whisper engine not available")
		return
	}

	var req struct {
		Model string `json:"model"`
	}
	if r.Body != nil {
		// Empty body means "the configured model"
		_ = decodeJSONBody(r, &req)
	}

	if err := h.whisper.Preload(r.Context(), req.Model); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"cached": h.whisper.Cache().Cached(),
	})
}

// ClearModelCache drops all cached model handles
func (h *Handler) ClearModelCache(w http.ResponseWriter, r *http.Request) {
	if h.whisper == nil {
		writeError(w, http.StatusServiceUnavailable, "whisper engine not available")
		return
	}

	dropped := h.whisper.Cache().Clear()
	WriteJSON(w, http.StatusOK, map[string]any{"dropped": dropped})
}
