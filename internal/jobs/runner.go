package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/greekdrop/greekdrop/internal/export"
	"github.com/greekdrop/greekdrop/internal/intake"
	"github.com/greekdrop/greekdrop/internal/media"
	"github.com/greekdrop/greekdrop/internal/storage/sqlite"
	"github.com/greekdrop/greekdrop/internal/transcription"
	"github.com/greekdrop/greekdrop/internal/websocket"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Runner drives a submitted job through the pipeline in a background
// goroutine: validate, convert, transcribe, export, store, broadcast.
type Runner struct {
	baseCtx   context.Context
	manager   *Manager
	service   *transcription.Service
	exporter  *export.Exporter
	prober    *media.Prober
	converter *media.Converter
	storage   *sqlite.TranscriptionStorage
	ws        *websocket.Server
	logger    *logger.Logger
}

// NewRunner wires the pipeline components together. ctx bounds the lifetime
// of all workers; it is the server's context, not a request's.
func NewRunner(
	ctx context.Context,
	manager *Manager,
	service *transcription.Service,
	exporter *export.Exporter,
	prober *media.Prober,
	converter *media.Converter,
	storage *sqlite.TranscriptionStorage,
	ws *websocket.Server,
	log *logger.Logger,
) *Runner {
	return &Runner{
		baseCtx:   ctx,
		manager:   manager,
		service:   service,
		exporter:  exporter,
		prober:    prober,
		converter: converter,
		storage:   storage,
		ws:        ws,
		logger:    log.Named("jobs"),
	}
}

// Submit admits a job and starts its worker goroutine. It returns the
// admitted job immediately; progress flows over the WebSocket. The worker
// runs on the runner's base context so it survives the submitting request.
func (r *Runner) Submit(rawPath, format string) (Job, error) {
	path := intake.NormalizePath(rawPath)

	parsedFormat, err := export.ParseFormat(format)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        uuid.NewString(),
		AudioFile: path,
		Format:    string(parsedFormat),
	}
	if err := r.manager.Start(job); err != nil {
		return Job{}, err
	}

	go r.run(r.baseCtx, path, parsedFormat)

	r.broadcastJob()
	return r.manager.Current(), nil
}

// run executes the pipeline. Panics are recovered into a failed job and the
// deferred block guarantees the manager leaves its running state.
func (r *Runner) run(ctx context.Context, path string, format export.Format) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Job worker panicked", logger.Any("panic", rec))
			r.manager.Fail(fmt.Sprintf("internal error: %v", rec))
		}
		if r.manager.IsRunning() {
			r.manager.Fail("job worker exited unexpectedly")
		}
		r.broadcastJob()
	}()

	// Validate
	ok, verdict := intake.Validate(path)
	r.broadcastLog("info", verdict)
	if !ok {
		r.manager.Fail(verdict)
		return
	}

	r.broadcastLog("info", r.prober.Describe(ctx, path))
	duration := r.prober.Duration(ctx, path)

	// Convert
	if err := r.manager.Transition(StatusConverting); err != nil {
		r.manager.Fail(err.Error())
		return
	}
	r.broadcastJob()

	workDir, err := os.MkdirTemp("", "greekdrop-job-*")
	if err != nil {
		r.manager.Fail(fmt.Sprintf("failed to create working directory: %v", err))
		return
	}
	defer os.RemoveAll(workDir)

	prepared, err := r.converter.ToWAV(ctx, path, workDir)
	if err != nil {
		// Conversion failure falls back to the original file
		r.logger.Warn("Conversion failed, using original audio", logger.Error(err))
		r.broadcastLog("warn", "audio conversion failed, transcribing the original file")
	}

	// Transcribe
	if err := r.manager.Transition(StatusTranscribing); err != nil {
		r.manager.Fail(err.Error())
		return
	}
	r.broadcastJob()

	result := r.service.Transcribe(ctx, prepared, duration)
	if result.Failed {
		r.broadcastLog("error", result.Text)
	}

	// Export
	if err := r.manager.Transition(StatusExporting); err != nil {
		r.manager.Fail(err.Error())
		return
	}
	r.broadcastJob()

	saved, err := r.exporter.Export(result, path, format)
	if err != nil {
		r.broadcastLog("error", fmt.Sprintf("some exports failed: %v", err))
	}
	if len(saved) == 0 {
		r.manager.Fail("no transcript files could be written")
		return
	}

	r.store(result, path, saved)

	if err := r.manager.Complete(saved); err != nil {
		r.manager.Fail(err.Error())
		return
	}

	r.broadcastResult(result, saved)
	r.logger.Info("Job complete",
		logger.String("file", path),
		logger.Int("files", len(saved)),
		logger.String("engine", result.Engine))
}

func (r *Runner) store(result *transcription.Result, path string, saved []string) {
	if r.storage == nil {
		return
	}
	record := &sqlite.TranscriptionRecord{
		JobID:          r.manager.Current().ID,
		CreatedAt:      time.Now().UTC(),
		AudioFile:      path,
		Engine:         result.Engine,
		Model:          result.Model,
		Language:       result.Language,
		Content:        result.Text,
		ProcessingTime: result.ProcessingTime,
		AudioDuration:  result.AudioDuration,
		Speedup:        result.Speedup,
		SavedPaths:     saved,
	}
	if _, err := r.storage.StoreTranscription(record); err != nil {
		r.logger.Error("Failed to store transcription record", logger.Error(err))
	}
}

func (r *Runner) broadcastJob() {
	if r.ws == nil {
		return
	}
	job := r.manager.Current()
	r.ws.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeJobUpdate,
		Data: map[string]any{"job": job},
	})
}

func (r *Runner) broadcastLog(level, line string) {
	r.logger.Info(line)
	if r.ws == nil {
		return
	}
	r.ws.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeLog,
		Data: map[string]any{
			"level": level,
			"line":  line,
			"time":  time.Now().Format(time.RFC3339),
		},
	})
}

func (r *Runner) broadcastResult(result *transcription.Result, saved []string) {
	if r.ws == nil {
		return
	}
	r.ws.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeTranscription,
		Data: map[string]any{
			"text":            result.Text,
			"language":        result.Language,
			"engine":          result.Engine,
			"model":           result.Model,
			"segments":        len(result.Segments),
			"audio_duration":  result.AudioDuration,
			"processing_time": result.ProcessingTime,
			"speedup":         result.Speedup,
			"saved_paths":     saved,
		},
	})
}
