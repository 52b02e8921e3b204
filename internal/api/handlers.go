package api

import (
	"encoding/json"
	"net/http"

	"github.com/greekdrop/greekdrop/internal/config"
	"github.com/greekdrop/greekdrop/internal/hardware"
	"github.com/greekdrop/greekdrop/internal/jobs"
	"github.com/greekdrop/greekdrop/internal/storage/sqlite"
	"github.com/greekdrop/greekdrop/internal/transcription"
	"github.com/greekdrop/greekdrop/internal/websocket"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Handler holds the services the HTTP endpoints delegate to
type Handler struct {
	runner               *jobs.Runner
	manager              *jobs.Manager
	probe                *hardware.Probe
	whisper              *transcription.WhisperEngine // nil when whisper is unavailable
	transcriptionStorage *sqlite.TranscriptionStorage
	wsServer             *websocket.Server
	config               *config.Config
	version              string
	logger               *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	runner *jobs.Runner,
	manager *jobs.Manager,
	probe *hardware.Probe,
	whisper *transcription.WhisperEngine,
	transcriptionStorage *sqlite.TranscriptionStorage,
	wsServer *websocket.Server,
	cfg *config.Config,
	version string,
	log *logger.Logger,
) *Handler {
	return &Handler{
		runner:               runner,
		manager:              manager,
		probe:                probe,
		whisper:              whisper,
		transcriptionStorage: transcriptionStorage,
		wsServer:             wsServer,
		config:               cfg,
		version:              version,
		logger:               log.Named("api"),
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeError writes the JSON error envelope
func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{"error": msg})
}
