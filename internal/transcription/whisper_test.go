package transcription

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/greekdrop/greekdrop/internal/hardware"
)

func TestBuildWhisperArgs(t *testing.T) {
	got := buildWhisperArgs("/models/ggml-base.bin", "/tmp/in.wav", "/tmp/out", "el", false)
	want := []string{
		"-m", "/models/ggml-base.bin",
		"-f", "/tmp/in.wav",
		"-of", "/tmp/out",
		"-oj", "-np",
		"-l", "el",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestBuildWhisperArgsCPUAppendsNoGPU(t *testing.T) {
	got := buildWhisperArgs("m.bin", "in.wav", "out", "el", true)
	if got[len(got)-1] != "-ng" {
		t.Errorf("expected -ng as the final arg on CPU, got %v", got)
	}
}

func TestParseWhisperJSON(t *testing.T) {
	data := []byte(`{
		"result": {"language": "el"},
		"transcription": [
			{"offsets": {"from": 0, "to": 4500}, "text": " Καλημέρα σας."},
			{"offsets": {"from": 4500, "to": 9000}, "text": " Τι κάνετε;"},
			{"offsets": {"from": 9000, "to": 9100}, "text": "   "}
		]
	}`)

	result, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}

	if result.Language != "el" {
		t.Errorf("language = %q, want el", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %d, want 2 (blank entry dropped)", len(result.Segments))
	}
	if result.Segments[0].Start != 0 || result.Segments[0].End != 4.5 {
		t.Errorf("segment 0 = [%f, %f], want [0, 4.5]", result.Segments[0].Start, result.Segments[0].End)
	}
	if result.Segments[1].Start != 4.5 || result.Segments[1].End != 9.0 {
		t.Errorf("segment 1 = [%f, %f], want [4.5, 9]", result.Segments[1].Start, result.Segments[1].End)
	}
	if result.Text != "Καλημέρα σας. Τι κάνετε;" {
		t.Errorf("text = %q", result.Text)
	}
}

func TestParseWhisperJSONInvalid(t *testing.T) {
	if _, err := parseWhisperJSON([]byte("not json")); err == nil {
		t.Error("expected parse error")
	}
}

func newTestEngine(t *testing.T, modelsDir string, device hardware.Device) *WhisperEngine {
	t.Helper()
	return NewWhisperEngine(WhisperConfig{
		BinPath:   "whisper-cli",
		ModelsDir: modelsDir,
		Model:     "base",
		Language:  "el",
		Timeout:   time.Minute,
	}, device, testLogger(t))
}

func TestLoadModelResolvesGGMLFile(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(modelPath, []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, dir, hardware.DeviceCPU)
	m, err := e.loadModel(context.Background(), "base")
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	if m.Path != modelPath {
		t.Errorf("path = %q, want %q", m.Path, modelPath)
	}
	if m.Size != int64(len("weights")) {
		t.Errorf("size = %d", m.Size)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), hardware.DeviceCPU)
	if _, err := e.loadModel(context.Background(), "base"); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestWhisperTranscribe(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, dir, hardware.DeviceGPU)
	var gotArgs []string
	e.run = func(_ context.Context, name string, args ...string) (string, string, error) {
		gotArgs = args
		// The CLI writes {outBase}.json; find the -of value and emulate that.
		var outBase string
		for i, a := range args {
			if a == "-of" && i+1 < len(args) {
				outBase = args[i+1]
			}
		}
		doc := `{"result":{"language":"el"},"transcription":[{"offsets":{"from":0,"to":2000},"text":" γεια"}]}`
		if err := os.WriteFile(outBase+".json", []byte(doc), 0644); err != nil {
			return "", "", err
		}
		return "", "", nil
	}

	result, err := e.Transcribe(context.Background(), "/tmp/in.wav", 2.0)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if result.Engine != "whisper" || result.Model != "base" {
		t.Errorf("engine/model = %s/%s", result.Engine, result.Model)
	}
	if result.AudioDuration != 2.0 {
		t.Errorf("audio duration = %f", result.AudioDuration)
	}
	if len(result.Segments) != 1 || result.Segments[0].Text != "γεια" {
		t.Errorf("segments = %+v", result.Segments)
	}
	for _, a := range gotArgs {
		if a == "-ng" {
			t.Error("-ng passed on GPU device")
		}
	}
}

func TestWhisperPreloadWarmsCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("w"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, dir, hardware.DeviceCPU)
	if err := e.Preload(context.Background(), ""); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if !e.Cache().Has("base") {
		t.Error("configured model not cached after preload")
	}
}
