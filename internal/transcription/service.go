package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// DefaultErrorDuration is the placeholder segment length used when even the
// audio duration is unknown.
const DefaultErrorDuration = 5.0

// Service runs the engines in order until one succeeds. It never returns an
// error: when every engine fails the result is a placeholder carrying the
// failure text, so export and storage always have something to work with.
type Service struct {
	engines []Engine
	logger  *logger.Logger
}

// NewService creates a service trying the given engines in order. Nil
// entries are skipped, so callers can pass engines conditionally.
func NewService(log *logger.Logger, engines ...Engine) *Service {
	s := &Service{logger: log.Named("transcription")}
	for _, e := range engines {
		if e != nil {
			s.engines = append(s.engines, e)
		}
	}
	return s
}

// Engines returns the names of the configured engines in try order
func (s *Service) Engines() []string {
	names := make([]string, len(s.engines))
	for i, e := range s.engines {
		names[i] = e.Name()
	}
	return names
}

// Transcribe produces a result for the prepared audio file. durationHint is
// the probed audio length (0 when unknown).
func (s *Service) Transcribe(ctx context.Context, path string, durationHint float64) *Result {
	if len(s.engines) == 0 {
		return PlaceholderResult("no transcription engine available", durationHint)
	}

	var failures []string
	for _, engine := range s.engines {
		result, err := engine.Transcribe(ctx, path, durationHint)
		if err == nil {
			s.logger.Info("Transcription complete",
				logger.String("engine", engine.Name()),
				logger.Int("segments", len(result.Segments)),
				logger.Float64("processing_time", result.ProcessingTime),
				logger.Float64("speedup", result.Speedup))
			return result
		}

		s.logger.Warn("Engine failed, trying next",
			logger.String("engine", engine.Name()),
			logger.Error(err))
		failures = append(failures, fmt.Sprintf("%s: %v", engine.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	msg := "transcription failed (" + strings.Join(failures, "; ") + ")"
	s.logger.Error("All engines failed", logger.String("detail", msg))
	return PlaceholderResult(msg, durationHint)
}

// PlaceholderResult builds the total-failure result: the error text becomes
// the transcript with a single segment spanning the whole audio.
func PlaceholderResult(msg string, duration float64) *Result {
	if duration <= 0 {
		duration = DefaultErrorDuration
	}
	return &Result{
		Text:          msg,
		Segments:      []Segment{{Start: 0, End: duration, Text: msg}},
		Engine:        "none",
		AudioDuration: duration,
		Failed:        true,
	}
}
