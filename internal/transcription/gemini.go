package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

const geminiPrompt = "Transcribe this Greek audio recording exactly. " +
	"Return only the spoken text in Greek, with no commentary or translation."

// GeminiConfig holds the cloud fallback parameters
type GeminiConfig struct {
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// GeminiEngine is the cloud fallback: it uploads the prepared WAV inline and
// asks Gemini for a plain-text transcript. Gemini returns no timing data, so
// segments are synthesized by sentence.
type GeminiEngine struct {
	cfg      GeminiConfig
	generate func(ctx context.Context, model string, audio []byte, mimeType string) (string, error)
	logger   *logger.Logger
}

// NewGeminiEngine creates the fallback engine
func NewGeminiEngine(cfg GeminiConfig, log *logger.Logger) *GeminiEngine {
	e := &GeminiEngine{
		cfg:    cfg,
		logger: log.Named("gemini"),
	}
	e.generate = e.generateContent
	return e
}

// Name implements Engine
func (e *GeminiEngine) Name() string { return "gemini" }

// Transcribe implements Engine
func (e *GeminiEngine) Transcribe(ctx context.Context, path string, duration float64) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio for fallback: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.logger.Info("Running cloud fallback transcription",
		logger.String("model", e.cfg.Model),
		logger.String("file", path),
		logger.Int("bytes", len(data)))

	start := time.Now()
	text, err := e.generate(ctx, e.cfg.Model, data, mimeTypeFor(path))
	if err != nil {
		return nil, fmt.Errorf("gemini transcription failed: %w", err)
	}
	elapsed := time.Since(start).Seconds()

	text = strings.TrimSpace(text)
	result := &Result{
		Text:           text,
		Segments:       SynthesizeSegments(text, duration),
		Language:       e.cfg.Language,
		Engine:         e.Name(),
		Model:          e.cfg.Model,
		ProcessingTime: elapsed,
		AudioDuration:  duration,
	}
	if elapsed > 0 && duration > 0 {
		result.Speedup = duration / elapsed
	}
	return result, nil
}

func (e *GeminiEngine) generateContent(ctx context.Context, model string, audio []byte, mimeType string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no content in gemini response")
	}
	return text, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".aac", ".m4a":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// SynthesizeSegments splits text into sentences on "." and distributes them
// evenly across [0, duration]. The segments partition the audio gap-free;
// the timing is approximate by construction.
func SynthesizeSegments(text string, duration float64) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if duration <= 0 {
		return []Segment{{Start: 0, End: 0, Text: text}}
	}

	var sentences []string
	for _, part := range strings.Split(text, ".") {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part+".")
		}
	}
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	per := duration / float64(len(sentences))
	segments := make([]Segment, len(sentences))
	for i, sentence := range sentences {
		start := float64(i) * per
		end := start + per
		if i == len(sentences)-1 {
			end = duration
		}
		segments[i] = Segment{Start: start, End: end, Text: sentence}
	}
	return segments
}
