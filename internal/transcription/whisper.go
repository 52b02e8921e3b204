package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/greekdrop/greekdrop/internal/hardware"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

// WhisperConfig holds the local engine parameters
type WhisperConfig struct {
	BinPath   string
	ModelsDir string
	Model     string
	Language  string
	Timeout   time.Duration
}

// WhisperEngine transcribes audio with a local whisper.cpp CLI subprocess
type WhisperEngine struct {
	cfg    WhisperConfig
	device hardware.Device
	cache  *ModelCache
	run    func(ctx context.Context, name string, args ...string) (string, string, error)
	logger *logger.Logger
}

// NewWhisperEngine creates the local engine with its own model cache
func NewWhisperEngine(cfg WhisperConfig, device hardware.Device, log *logger.Logger) *WhisperEngine {
	e := &WhisperEngine{
		cfg:    cfg,
		device: device,
		run:    runCommand,
		logger: log.Named("whisper"),
	}
	e.cache = NewModelCache(e.loadModel, log)
	return e
}

// Name implements Engine
func (e *WhisperEngine) Name() string { return "whisper" }

// Cache exposes the engine's model cache for preload and management endpoints
func (e *WhisperEngine) Cache() *ModelCache { return e.cache }

// Preload loads the configured model into the cache ahead of the first job
func (e *WhisperEngine) Preload(ctx context.Context, id string) error {
	if id == "" {
		id = e.cfg.Model
	}
	_, err := e.cache.GetOrLoad(ctx, id)
	return err
}

// loadModel resolves ggml-{id}.bin under the models directory and verifies
// it is readable. The handle is the path plus stat info.
func (e *WhisperEngine) loadModel(_ context.Context, id string) (*Model, error) {
	path := filepath.Join(e.cfg.ModelsDir, fmt.Sprintf("ggml-%s.bin", id))

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("model %q not found at %s: %w", id, path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model %q not readable: %w", id, err)
	}
	f.Close()

	return &Model{
		ID:       id,
		Path:     path,
		Size:     info.Size(),
		LoadedAt: time.Now(),
	}, nil
}

// Transcribe implements Engine
func (e *WhisperEngine) Transcribe(ctx context.Context, path string, duration float64) (*Result, error) {
	model, err := e.cache.GetOrLoad(ctx, e.cfg.Model)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "greekdrop-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	outBase := filepath.Join(workDir, "out")
	args := buildWhisperArgs(model.Path, path, outBase, e.cfg.Language, e.device == hardware.DeviceCPU)

	e.logger.Info("Running whisper",
		logger.String("model", model.ID),
		logger.String("device", string(e.device)),
		logger.String("file", path))

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	_, stderr, err := e.run(runCtx, e.cfg.BinPath, args...)
	if err != nil {
		return nil, fmt.Errorf("whisper failed: %w (%s)", err, lastLine(stderr))
	}
	elapsed := time.Since(start).Seconds()

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper produced no JSON output: %w", err)
	}

	result, err := parseWhisperJSON(data)
	if err != nil {
		return nil, err
	}

	result.Engine = e.Name()
	result.Model = model.ID
	if result.Language == "" {
		result.Language = e.cfg.Language
	}
	result.ProcessingTime = elapsed
	result.AudioDuration = duration
	if elapsed > 0 && duration > 0 {
		result.Speedup = duration / elapsed
	}
	return result, nil
}

func buildWhisperArgs(modelPath, audioPath, outBase, language string, noGPU bool) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
		"-np",
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	if noGPU {
		args = append(args, "-ng")
	}
	return args
}

// whisperOutput mirrors the whisper.cpp -oj JSON document
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // milliseconds
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperJSON(data []byte) (*Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	result := &Result{Language: out.Result.Language}
	var sb strings.Builder
	for _, entry := range out.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, Segment{
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  text,
		})
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	result.Text = sb.String()
	return result, nil
}

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
