package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
	_ "modernc.org/sqlite"
)

// Storage wraps the SQLite database handle shared by the record stores
type Storage struct {
	db     *sql.DB
	logger *logger.Logger
}

// DailyPath returns the database path for today under basePath, one file
// per day keeps individual databases small and easy to archive.
func DailyPath(basePath string) string {
	filename := fmt.Sprintf("greekdrop-%s.db", time.Now().Format("2006-01-02"))
	return filepath.Join(basePath, filename)
}

// Open opens (or creates) the database at dbPath and applies the pragmas
// the app relies on.
func Open(dbPath string, log *logger.Logger) (*Storage, error) {
	storageLogger := log.Named("sqlite")
	storageLogger.Info("Opening SQLite database", logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &Storage{db: db, logger: storageLogger}, nil
}

// GetDB returns the underlying database connection
func (s *Storage) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
