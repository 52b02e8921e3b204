package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Prober reads audio duration and basic metadata via ffprobe
type Prober struct {
	ffprobePath string
	timeout     time.Duration
	runner      commandRunner
	logger      *logger.Logger
}

// NewProber creates a new ffprobe wrapper
func NewProber(ffprobePath string, timeout time.Duration, log *logger.Logger) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     timeout,
		runner:      execRunner{},
		logger:      log.Named("ffprobe"),
	}
}

// Duration returns the audio duration in seconds, or 0 when ffprobe fails.
// A zero result means the caller falls back to its own duration estimate.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := buildProbeArgs(path)
	stdout, stderr, err := p.runner.Run(ctx, p.ffprobePath, args...)
	if err != nil {
		p.logger.Warn("ffprobe failed",
			logger.String("file", path),
			logger.String("stderr", tail(stderr, 3)),
			logger.Error(err))
		return 0
	}

	duration, err := parseDuration(stdout)
	if err != nil {
		p.logger.Warn("failed to parse ffprobe output",
			logger.String("output", strings.TrimSpace(stdout)),
			logger.Error(err))
		return 0
	}
	return duration
}

// Describe returns a one-line metadata summary for the UI log pane
func (p *Prober) Describe(ctx context.Context, path string) string {
	name := filepath.Base(path)
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	duration := p.Duration(ctx, path)
	if duration > 0 {
		return fmt.Sprintf("%s (%.1f MB, %.1fs)", name, float64(size)/(1024*1024), duration)
	}
	return fmt.Sprintf("%s (%.1f MB, duration unknown)", name, float64(size)/(1024*1024))
}

func buildProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func parseDuration(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return 0, fmt.Errorf("empty ffprobe output")
	}
	duration, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", trimmed, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %f", duration)
	}
	return duration, nil
}
