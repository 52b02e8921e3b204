package hardware

import (
	"context"
	"errors"
	"testing"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestProbe(t *testing.T, cfg ProbeConfig, available map[string]bool, gpu bool) *Probe {
	t.Helper()
	p := NewProbe(cfg, testLogger(t))
	p.lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	p.gpuCheck = func(context.Context) bool { return gpu }
	return p
}

func TestRefreshDetectsTools(t *testing.T) {
	cfg := ProbeConfig{
		WhisperPath:    "whisper-cli",
		FFmpegPath:     "ffmpeg",
		FFprobePath:    "ffprobe",
		FallbackAPIKey: "key",
	}
	p := newTestProbe(t, cfg, map[string]bool{"whisper-cli": true, "ffmpeg": true}, true)

	caps := p.Refresh(context.Background(), false)
	if !caps.GPU || !caps.Whisper || !caps.FFmpeg || !caps.Fallback {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
	if caps.FFprobe {
		t.Error("ffprobe reported available but lookup fails")
	}
}

func TestRefreshCachesUntilForced(t *testing.T) {
	calls := 0
	p := newTestProbe(t, ProbeConfig{WhisperPath: "whisper-cli"}, nil, false)
	p.gpuCheck = func(context.Context) bool {
		calls++
		return false
	}

	p.Refresh(context.Background(), false)
	p.Refresh(context.Background(), false)
	if calls != 1 {
		t.Errorf("detection ran %d times, want 1 (cached)", calls)
	}

	p.Refresh(context.Background(), true)
	if calls != 2 {
		t.Errorf("detection ran %d times after force, want 2", calls)
	}
}

func TestDeviceResolution(t *testing.T) {
	tests := []struct {
		name     string
		forceCPU bool
		forceGPU bool
		gpu      bool
		want     Device
	}{
		{"gpu detected", false, false, true, DeviceGPU},
		{"no gpu", false, false, false, DeviceCPU},
		{"force cpu overrides detection", true, false, true, DeviceCPU},
		{"force gpu overrides detection", false, true, false, DeviceGPU},
		{"force cpu wins over force gpu", true, true, true, DeviceCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProbe(t, ProbeConfig{ForceCPU: tt.forceCPU, ForceGPU: tt.forceGPU}, nil, tt.gpu)
			caps := p.Refresh(context.Background(), true)
			if got := p.Device(caps); got != tt.want {
				t.Errorf("Device = %q, want %q", got, tt.want)
			}
		})
	}
}
