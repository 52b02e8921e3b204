package sqlite

import (
	"path/filepath"
	"testing"
	"time"

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

func newTestStorage(t *testing.T) *TranscriptionStorage {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), testLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewTranscriptionStorage(store.GetDB(), testLogger(t))
}

func sampleRecord(jobID string, createdAt time.Time) *TranscriptionRecord {
	return &TranscriptionRecord{
		JobID:          jobID,
		CreatedAt:      createdAt,
		AudioFile:      "/audio/interview.mp3",
		Engine:         "whisper",
		Model:          "base",
		Language:       "el",
		Content:        "Καλημέρα σας.",
		ProcessingTime: 2.5,
		AudioDuration:  10,
		Speedup:        4,
		SavedPaths:     []string{"/out/a.txt", "/out/a.srt"},
	}
}

func TestStoreAndGetTranscriptions(t *testing.T) {
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	id, err := storage.StoreTranscription(sampleRecord("job-1", now))
	if err != nil {
		t.Fatalf("StoreTranscription: %v", err)
	}
	if id <= 0 {
		t.Errorf("insert id = %d", id)
	}

	records, err := storage.GetTranscriptions(10, 0)
	if err != nil {
		t.Fatalf("GetTranscriptions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	got := records[0]
	if got.JobID != "job-1" || got.Engine != "whisper" || got.Content != "Καλημέρα σας." {
		t.Errorf("record mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, now)
	}
	if len(got.SavedPaths) != 2 || got.SavedPaths[0] != "/out/a.txt" {
		t.Errorf("saved paths = %v", got.SavedPaths)
	}
	if got.Speedup != 4 {
		t.Errorf("speedup = %f", got.Speedup)
	}
}

func TestGetTranscriptionsByEngine(t *testing.T) {
	storage := newTestStorage(t)
	now := time.Now().UTC()

	whisper := sampleRecord("job-1", now)
	gemini := sampleRecord("job-2", now.Add(time.Second))
	gemini.Engine = "gemini"
	for _, r := range []*TranscriptionRecord{whisper, gemini} {
		if _, err := storage.StoreTranscription(r); err != nil {
			t.Fatalf("StoreTranscription: %v", err)
		}
	}

	records, err := storage.GetTranscriptionsByEngine("gemini", 10, 0)
	if err != nil {
		t.Fatalf("GetTranscriptionsByEngine: %v", err)
	}
	if len(records) != 1 || records[0].JobID != "job-2" {
		t.Errorf("records = %+v, want only job-2", records)
	}
}

func TestGetTranscriptionsByTimeRange(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i, jobID := range []string{"old", "mid", "new"} {
		if _, err := storage.StoreTranscription(sampleRecord(jobID, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("StoreTranscription: %v", err)
		}
	}

	records, err := storage.GetTranscriptionsByTimeRange(base.Add(30*time.Minute), base.Add(90*time.Minute), 10, 0)
	if err != nil {
		t.Fatalf("GetTranscriptionsByTimeRange: %v", err)
	}
	if len(records) != 1 || records[0].JobID != "mid" {
		t.Errorf("records = %+v, want only mid", records)
	}
}

func TestPaginationOrder(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := sampleRecord("job", base.Add(time.Duration(i)*time.Minute))
		rec.JobID = rec.JobID + string(rune('a'+i))
		if _, err := storage.StoreTranscription(rec); err != nil {
			t.Fatalf("StoreTranscription: %v", err)
		}
	}

	page, err := storage.GetTranscriptions(2, 1)
	if err != nil {
		t.Fatalf("GetTranscriptions: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// Newest first, offset skips the newest
	if page[0].JobID != "jobd" || page[1].JobID != "jobc" {
		t.Errorf("page = [%s, %s], want [jobd, jobc]", page[0].JobID, page[1].JobID)
	}
}
