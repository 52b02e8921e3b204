package hardware

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Device is the compute target the whisper engine runs on
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// Capabilities describes what the host can do. Computed once at startup and
// handed to the components that need it; Refresh(true) recomputes on demand.
type Capabilities struct {
	GPU      bool `json:"gpu"`      // NVIDIA GPU visible via nvidia-smi
	Whisper  bool `json:"whisper"`  // whisper-cli binary on PATH or at the configured path
	FFmpeg   bool `json:"ffmpeg"`   // ffmpeg available
	FFprobe  bool `json:"ffprobe"`  // ffprobe available
	Fallback bool `json:"fallback"` // cloud fallback configured (API key present)
}

// ProbeConfig names the tools and credentials the probe checks for
type ProbeConfig struct {
	WhisperPath    string
	FFmpegPath     string
	FFprobePath    string
	FallbackAPIKey string
	ForceCPU       bool
	ForceGPU       bool
}

// Probe detects host capabilities. Results are cached after the first run.
type Probe struct {
	cfg      ProbeConfig
	logger   *logger.Logger
	lookPath func(string) (string, error)
	gpuCheck func(ctx context.Context) bool

	mu     sync.Mutex
	cached *Capabilities
}

// NewProbe creates a capability probe
func NewProbe(cfg ProbeConfig, log *logger.Logger) *Probe {
	return &Probe{
		cfg:      cfg,
		logger:   log.Named("hardware"),
		lookPath: exec.LookPath,
		gpuCheck: nvidiaSMICheck,
	}
}

// Refresh returns the host capabilities, re-running detection when force is
// set or nothing is cached yet.
func (p *Probe) Refresh(ctx context.Context, force bool) Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && !force {
		return *p.cached
	}

	caps := p.detect(ctx)
	p.cached = &caps

	p.logger.Info("Hardware capabilities detected",
		logger.Bool("gpu", caps.GPU),
		logger.Bool("whisper", caps.Whisper),
		logger.Bool("ffmpeg", caps.FFmpeg),
		logger.Bool("ffprobe", caps.FFprobe),
		logger.Bool("fallback", caps.Fallback))
	return caps
}

func (p *Probe) detect(ctx context.Context) Capabilities {
	return Capabilities{
		GPU:      p.gpuCheck(ctx),
		Whisper:  p.toolAvailable(p.cfg.WhisperPath),
		FFmpeg:   p.toolAvailable(p.cfg.FFmpegPath),
		FFprobe:  p.toolAvailable(p.cfg.FFprobePath),
		Fallback: p.cfg.FallbackAPIKey != "",
	}
}

func (p *Probe) toolAvailable(path string) bool {
	if path == "" {
		return false
	}
	_, err := p.lookPath(path)
	return err == nil
}

// Device resolves which compute target the whisper engine should use.
// force_cpu wins over force_gpu; force_gpu wins over failed detection.
func (p *Probe) Device(caps Capabilities) Device {
	if p.cfg.ForceCPU {
		return DeviceCPU
	}
	if p.cfg.ForceGPU {
		return DeviceGPU
	}
	if caps.GPU {
		return DeviceGPU
	}
	return DeviceCPU
}

// nvidiaSMICheck reports whether nvidia-smi lists at least one GPU
func nvidiaSMICheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi", "-L").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), "GPU")
}
