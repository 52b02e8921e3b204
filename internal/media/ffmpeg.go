package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// ConverterConfig holds the ffmpeg conversion parameters
type ConverterConfig struct {
	FFmpegPath    string
	SampleRate    int
	Channels      int
	RemoveSilence bool
	SilenceFilter string
	Timeout       time.Duration
}

// Converter prepares audio for the whisper engine: any supported container
// in, 16 kHz mono PCM WAV out.
type Converter struct {
	cfg    ConverterConfig
	runner commandRunner
	logger *logger.Logger
}

// NewConverter creates a new ffmpeg wrapper
func NewConverter(cfg ConverterConfig, log *logger.Logger) *Converter {
	return &Converter{
		cfg:    cfg,
		runner: execRunner{},
		logger: log.Named("ffmpeg"),
	}
}

// ToWAV converts the input into a whisper-ready WAV inside workDir and
// returns its path. A WAV input passes through untouched unless silence
// removal is enabled. On conversion failure the original path is returned
// with the error so the caller can decide to proceed with it.
func (c *Converter) ToWAV(ctx context.Context, inputPath, workDir string) (string, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".wav") && !c.cfg.RemoveSilence {
		c.logger.Debug("Input already WAV, skipping conversion", logger.String("file", inputPath))
		return inputPath, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	outputPath := filepath.Join(workDir, "prepared.wav")
	args := buildConvertArgs(inputPath, outputPath, c.cfg)

	c.logger.Debug("Converting audio",
		logger.String("input", inputPath),
		logger.String("output", outputPath))

	start := time.Now()
	_, stderr, err := c.runner.Run(ctx, c.cfg.FFmpegPath, args...)
	if err != nil {
		return inputPath, fmt.Errorf("ffmpeg conversion failed: %w (%s)", err, tail(stderr, 3))
	}

	c.logger.Info("Audio converted",
		logger.String("output", outputPath),
		logger.Duration("elapsed", time.Since(start)))
	return outputPath, nil
}

func buildConvertArgs(inputPath, outputPath string, cfg ConverterConfig) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
	}
	if cfg.RemoveSilence && cfg.SilenceFilter != "" {
		args = append(args, "-af", cfg.SilenceFilter)
	}
	return append(args, outputPath)
}
