package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// GetAllTranscriptions returns stored transcriptions with pagination.
// Optional engine / start_time / end_time query params narrow the listing.
func (h *Handler) GetAllTranscriptions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	if r.URL.Query().Get("start_time") != "" {
		startTime, endTime, err := parseTimeRangeParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		transcriptions, err := h.transcriptionStorage.GetTranscriptionsByTimeRange(startTime, endTime, limit, offset)
		if err != nil {
			h.logger.Error("Failed to retrieve transcriptions by time range", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to retrieve transcriptions")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"timestamp":      time.Now(),
			"start_time":     startTime,
			"end_time":       endTime,
			"count":          len(transcriptions),
			"transcriptions": transcriptions,
		})
		return
	}

	transcriptions, err := h.transcriptionStorage.GetTranscriptions(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve transcriptions")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":      time.Now(),
		"count":          len(transcriptions),
		"transcriptions": transcriptions,
	})
}

// GetTranscriptionsByEngine returns transcriptions produced by one engine
func (h *Handler) GetTranscriptionsByEngine(w http.ResponseWriter, r *http.Request) {
	engine := chi.URLParam(r, "engine")
	if engine == "" {
		writeError(w, http.StatusBadRequest, "Missing engine")
		return
	}
	if engine != "whisper" && engine != "gemini" && engine != "none" {
		writeError(w, http.StatusBadRequest, "Invalid engine (must be 'whisper', 'gemini', or 'none')")
		return
	}

	limit, offset := parsePaginationParams(r)

	transcriptions, err := h.transcriptionStorage.GetTranscriptionsByEngine(engine, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions by engine", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve transcriptions")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":      time.Now(),
		"engine":         engine,
		"count":          len(transcriptions),
		"transcriptions": transcriptions,
	})
}

// Helper functions
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}

func parseTimeRangeParams(r *http.Request) (time.Time, time.Time, error) {
	startTimeStr := r.URL.Query().Get("start_time")
	endTimeStr := r.URL.Query().Get("end_time")

	if startTimeStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("missing start_time parameter")
	}

	startTime, err := time.Parse(time.RFC3339, startTimeStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_time format (use RFC3339)")
	}

	endTime := time.Now()
	if endTimeStr != "" {
		endTime, err = time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_time format (use RFC3339)")
		}
	}

	return startTime, endTime, nil
}
