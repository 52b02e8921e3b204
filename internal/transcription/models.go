package transcription

import "context"

// Segment is one timestamped span of transcribed speech.
// Start and End are seconds from the beginning of the audio, 0 <= Start <= End.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the outcome of transcribing one audio file
type Result struct {
	Text           string    `json:"text"`
	Segments       []Segment `json:"segments"`
	Language       string    `json:"language"`
	Engine         string    `json:"engine"`
	Model          string    `json:"model"`
	ProcessingTime float64   `json:"processing_time"` // seconds spent transcribing
	AudioDuration  float64   `json:"audio_duration"`  // seconds of source audio
	Speedup        float64   `json:"speedup"`         // audio duration / processing time
	Failed         bool      `json:"failed,omitempty"`
}

// Engine produces a transcript for one prepared audio file. duration is the
// probed audio length in seconds (0 when unknown).
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string, duration float64) (*Result, error)
}
