package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// TranscriptionRecord is one completed transcription job
type TranscriptionRecord struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	CreatedAt      time.Time `json:"created_at"`
	AudioFile      string    `json:"audio_file"`
	Engine         string    `json:"engine"`
	Model          string    `json:"model,omitempty"`
	Language       string    `json:"language,omitempty"`
	Content        string    `json:"text"`
	ProcessingTime float64   `json:"processing_time"`
	AudioDuration  float64   `json:"audio_duration"`
	Speedup        float64   `json:"speedup"`
	SavedPaths     []string  `json:"saved_paths"`
}

// TranscriptionStorage handles storage of transcription records
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates a new SQLite transcription storage
func NewTranscriptionStorage(db *sql.DB, logger *logger.Logger) *TranscriptionStorage {
	storage := &TranscriptionStorage{
		db:     db,
		logger: logger.Named("sqlite-tx"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize transcription storage", Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			audio_file TEXT NOT NULL,
			engine TEXT NOT NULL,
			model TEXT,
			language TEXT,
			content TEXT NOT NULL,
			processing_time REAL,
			audio_duration REAL,
			speedup REAL,
			saved_paths TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_created_at ON transcriptions(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_engine ON transcriptions(engine)`)
	if err != nil {
		return fmt.Errorf("failed to create engine index: %w", err)
	}

	return nil
}

// StoreTranscription stores a transcription record
func (s *TranscriptionStorage) StoreTranscription(record *TranscriptionRecord) (int64, error) {
	savedPaths, err := json.Marshal(record.SavedPaths)
	if err != nil {
		return 0, fmt.Errorf("failed to encode saved paths: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO transcriptions
		(job_id, created_at, audio_file, engine, model, language, content, processing_time, audio_duration, speedup, saved_paths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.JobID,
		record.CreatedAt.Format(time.RFC3339),
		record.AudioFile,
		record.Engine,
		record.Model,
		record.Language,
		record.Content,
		record.ProcessingTime,
		record.AudioDuration,
		record.Speedup,
		string(savedPaths),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	s.logger.Debug("Stored transcription",
		String("job_id", record.JobID),
		String("engine", record.Engine))
	return id, nil
}

const selectColumns = `id, job_id, created_at, audio_file, engine, model, language, content, processing_time, audio_duration, speedup, saved_paths`

// GetTranscriptions returns all transcriptions with pagination
func (s *TranscriptionStorage) GetTranscriptions(limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+`
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetTranscriptionsByEngine returns transcriptions produced by one engine
func (s *TranscriptionStorage) GetTranscriptionsByEngine(engine string, limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+`
		FROM transcriptions
		WHERE engine = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		engine, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by engine: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetTranscriptionsByTimeRange returns transcriptions within a time range
func (s *TranscriptionStorage) GetTranscriptionsByTimeRange(startTime, endTime time.Time, limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+`
		FROM transcriptions
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		startTime.Format(time.RFC3339), endTime.Format(time.RFC3339), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by time range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*TranscriptionRecord, error) {
	var records []*TranscriptionRecord
	for rows.Next() {
		var record TranscriptionRecord
		var createdAt string
		var model, language, savedPaths sql.NullString
		var processingTime, audioDuration, speedup sql.NullFloat64

		if err := rows.Scan(
			&record.ID,
			&record.JobID,
			&createdAt,
			&record.AudioFile,
			&record.Engine,
			&model,
			&language,
			&record.Content,
			&processingTime,
			&audioDuration,
			&speedup,
			&savedPaths,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.CreatedAt = parsed

		if model.Valid {
			record.Model = model.String
		}
		if language.Valid {
			record.Language = language.String
		}
		if processingTime.Valid {
			record.ProcessingTime = processingTime.Float64
		}
		if audioDuration.Valid {
			record.AudioDuration = audioDuration.Float64
		}
		if speedup.Valid {
			record.Speedup = speedup.Float64
		}
		if savedPaths.Valid && savedPaths.String != "" {
			if err := json.Unmarshal([]byte(savedPaths.String), &record.SavedPaths); err != nil {
				return nil, fmt.Errorf("failed to decode saved paths: %w", err)
			}
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
