package media

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    float64
		wantErr bool
	}{
		{"plain value", "123.456\n", 123.456, false},
		{"integer seconds", "90", 90, false},
		{"empty output", "\n", 0, true},
		{"garbage", "N/A", 0, true},
		{"negative", "-3.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDuration(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) err = %v, wantErr %v", tt.out, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %f, want %f", tt.out, got, tt.want)
			}
		})
	}
}

func TestProberDuration(t *testing.T) {
	p := NewProber("ffprobe", 5*time.Second, testLogger(t))
	runner := &fakeRunner{stdout: "42.75\n"}
	p.runner = runner

	got := p.Duration(context.Background(), "/audio/in.mp3")
	if got != 42.75 {
		t.Errorf("Duration = %f, want 42.75", got)
	}

	wantArgs := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"/audio/in.mp3",
	}
	if !reflect.DeepEqual(runner.gotArgs, wantArgs) {
		t.Errorf("ffprobe args = %v, want %v", runner.gotArgs, wantArgs)
	}
}

func TestProberDurationFailureReturnsZero(t *testing.T) {
	p := NewProber("ffprobe", 5*time.Second, testLogger(t))
	p.runner = &fakeRunner{stderr: "no such file", err: errors.New("exit status 1")}

	if got := p.Duration(context.Background(), "/audio/missing.mp3"); got != 0 {
		t.Errorf("Duration on failure = %f, want 0", got)
	}
}

func TestBuildConvertArgs(t *testing.T) {
	cfg := ConverterConfig{
		FFmpegPath: "ffmpeg",
		SampleRate: 16000,
		Channels:   1,
	}

	got := buildConvertArgs("/in/audio.mp3", "/work/prepared.wav", cfg)
	want := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", "/in/audio.mp3",
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"/work/prepared.wav",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestBuildConvertArgsWithSilenceFilter(t *testing.T) {
	cfg := ConverterConfig{
		SampleRate:    16000,
		Channels:      1,
		RemoveSilence: true,
		SilenceFilter: "silenceremove=start_periods=1",
	}

	got := buildConvertArgs("in.m4a", "out.wav", cfg)
	foundFilter := false
	for i, a := range got {
		if a == "-af" && i+1 < len(got) && got[i+1] == cfg.SilenceFilter {
			foundFilter = true
		}
	}
	if !foundFilter {
		t.Errorf("expected -af %q in args %v", cfg.SilenceFilter, got)
	}
	if got[len(got)-1] != "out.wav" {
		t.Errorf("output path must be the final arg, got %v", got)
	}
}

func TestConverterSkipsWAVInput(t *testing.T) {
	c := NewConverter(ConverterConfig{
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Minute,
	}, testLogger(t))
	runner := &fakeRunner{}
	c.runner = runner

	got, err := c.ToWAV(context.Background(), "/audio/already.WAV", t.TempDir())
	if err != nil {
		t.Fatalf("ToWAV: %v", err)
	}
	if got != "/audio/already.WAV" {
		t.Errorf("ToWAV = %q, want passthrough of input", got)
	}
	if runner.gotName != "" {
		t.Error("ffmpeg must not run for a WAV input without silence removal")
	}
}

func TestConverterFailureReturnsOriginal(t *testing.T) {
	c := NewConverter(ConverterConfig{
		FFmpegPath: "ffmpeg",
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Minute,
	}, testLogger(t))
	c.runner = &fakeRunner{stderr: "Invalid data found", err: errors.New("exit status 1")}

	got, err := c.ToWAV(context.Background(), "/audio/broken.mp3", t.TempDir())
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if got != "/audio/broken.mp3" {
		t.Errorf("ToWAV on failure = %q, want original input path", got)
	}
}

func TestConverterRunsFFmpeg(t *testing.T) {
	c := NewConverter(ConverterConfig{
		FFmpegPath: "/usr/bin/ffmpeg",
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Minute,
	}, testLogger(t))
	runner := &fakeRunner{}
	c.runner = runner

	workDir := t.TempDir()
	got, err := c.ToWAV(context.Background(), "/audio/in.mp3", workDir)
	if err != nil {
		t.Fatalf("ToWAV: %v", err)
	}
	if got != filepath.Join(workDir, "prepared.wav") {
		t.Errorf("output path = %q", got)
	}
	if runner.gotName != "/usr/bin/ffmpeg" {
		t.Errorf("ran %q, want configured ffmpeg path", runner.gotName)
	}
}
