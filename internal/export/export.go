package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greekdrop/greekdrop/internal/transcription"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Format is a transcript output format
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
	FormatAll  Format = "all" // txt + srt + vtt; JSON stays opt-in
)

// ParseFormat normalizes a user-supplied format string
func ParseFormat(s string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, ".")))
	switch Format(normalized) {
	case FormatText, FormatSRT, FormatVTT, FormatJSON, FormatAll:
		return Format(normalized), nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown export format: %q", s)
}

// expand maps a format selection to the concrete formats written
func expand(format Format) []Format {
	if format == FormatAll {
		return []Format{FormatText, FormatSRT, FormatVTT}
	}
	return []Format{format}
}

// Exporter writes transcripts into the output directory with timestamped
// names derived from the source file.
type Exporter struct {
	outputDir string
	now       func() time.Time
	logger    *logger.Logger
}

// NewExporter creates an exporter targeting dir
func NewExporter(dir string, log *logger.Logger) *Exporter {
	return &Exporter{
		outputDir: dir,
		now:       time.Now,
		logger:    log.Named("export"),
	}
}

// Export writes the result in the requested format(s) and returns the paths
// written. A failed format is logged and the rest are still attempted; the
// returned error aggregates any per-format failures.
func (e *Exporter) Export(result *transcription.Result, originalPath string, format Format) ([]string, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := fmt.Sprintf("%s_%s",
		e.now().Format("20060102_150405"),
		strings.TrimSuffix(filepath.Base(originalPath), filepath.Ext(originalPath)))

	var saved []string
	var errs []error
	for _, f := range expand(format) {
		path := filepath.Join(e.outputDir, base+"."+string(f))
		var err error
		switch f {
		case FormatText:
			err = writeFile(path, renderText(result, originalPath, e.now()))
		case FormatSRT:
			err = writeFile(path, RenderSRT(result.Segments))
		case FormatVTT:
			err = writeFile(path, RenderVTT(result.Segments))
		case FormatJSON:
			err = writeJSON(path, result)
		}
		if err != nil {
			e.logger.Error("Failed to write transcript",
				logger.String("format", string(f)),
				logger.String("path", path),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		e.logger.Info("Transcript written", logger.String("path", path))
		saved = append(saved, path)
	}

	return saved, errors.Join(errs...)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func writeJSON(path string, result *transcription.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// renderText builds the human-readable report: a header block, the full
// text, and a timestamped segment listing.
func renderText(result *transcription.Result, originalPath string, generatedAt time.Time) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 60)

	sb.WriteString(rule + "\n")
	sb.WriteString("GREEKDROP TRANSCRIPTION\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Source file:     %s\n", filepath.Base(originalPath))
	fmt.Fprintf(&sb, "Generated at:    %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Engine:          %s\n", result.Engine)
	if result.Model != "" {
		fmt.Fprintf(&sb, "Model:           %s\n", result.Model)
	}
	if result.Language != "" {
		fmt.Fprintf(&sb, "Language:        %s\n", result.Language)
	}
	fmt.Fprintf(&sb, "Audio duration:  %s\n", formatClock(result.AudioDuration))
	fmt.Fprintf(&sb, "Processing time: %.1fs\n", result.ProcessingTime)
	if result.Speedup > 0 {
		fmt.Fprintf(&sb, "Speed:           %.1fx realtime\n", result.Speedup)
	}
	sb.WriteString(rule + "\n\n")

	sb.WriteString(result.Text + "\n")

	if len(result.Segments) > 0 {
		sb.WriteString("\n" + rule + "\n")
		sb.WriteString("SEGMENTS\n")
		sb.WriteString(rule + "\n")
		for _, seg := range result.Segments {
			fmt.Fprintf(&sb, "[%s - %s] %s\n", formatClock(seg.Start), formatClock(seg.End), seg.Text)
		}
	}

	return sb.String()
}

// RenderSRT renders segments as SubRip. Empty input yields a single
// placeholder entry so the file stays player-valid.
func RenderSRT(segments []transcription.Segment) string {
	if len(segments) == 0 {
		return "1\n00:00:00,000 --> 00:00:01,000\n(No timestamped segments available)\n\n"
	}

	var sb strings.Builder
	for i, seg := range segments {
		text := seg.Text
		if strings.TrimSpace(text) == "" {
			text = "[no text]"
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatSRTTimestamp(seg.Start), FormatSRTTimestamp(seg.End), text)
	}
	return sb.String()
}

// RenderVTT renders segments as WebVTT. Empty input yields a header plus a
// NOTE so the file stays player-valid.
func RenderVTT(segments []transcription.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	if len(segments) == 0 {
		sb.WriteString("NOTE No timestamped segments available\n\n")
		return sb.String()
	}

	for _, seg := range segments {
		text := seg.Text
		if strings.TrimSpace(text) == "" {
			text = "[no text]"
		}
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
			FormatVTTTimestamp(seg.Start), FormatVTTTimestamp(seg.End), text)
	}
	return sb.String()
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm (comma separator,
// milliseconds truncated)
func FormatSRTTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm (dot separator,
// milliseconds truncated)
func FormatVTTTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTimestamp(seconds float64) (h, m, s, ms int64) {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds * 1000) // truncate, never round
	ms = total % 1000
	totalSecs := total / 1000
	h = totalSecs / 3600
	m = (totalSecs % 3600) / 60
	s = totalSecs % 60
	return
}

// formatClock renders seconds as HH:MM:SS for the text report
func formatClock(seconds float64) string {
	h, m, s, _ := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
