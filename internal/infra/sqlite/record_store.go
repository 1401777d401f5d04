package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quickrev/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS flashcard_files (
    id         TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);`

// RecordStore keeps flashcard files in a local sqlite database for offline study.
type RecordStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*RecordStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &RecordStore{db: db}, nil
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}

func (s *RecordStore) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM flashcard_files WHERE id = ?`, fileID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load records: %v", domain.ErrNetwork, err)
	}
	return domain.ParseRecords([]byte(raw))
}

func (s *RecordStore) SaveRecords(ctx context.Context, fileID string, records []domain.QuestionRecord) error {
	if err := domain.ValidateRecords(records); err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flashcard_files (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		fileID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save records %s: %w", fileID, err)
	}
	return nil
}
