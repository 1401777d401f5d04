package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quickrev/internal/domain"

	"github.com/uptrace/bun"
)

// FlashcardFile is the bun model of the flashcard_files table.
type FlashcardFile struct {
	bun.BaseModel `bun:"table:flashcard_files"`

	ID        string    `bun:"id,pk"`
	Data      string    `bun:"data,type:jsonb"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RecordWriter upserts generated flashcard files so they can be studied
// without the REST backend.
type RecordWriter struct {
	db *bun.DB
}

func NewRecordWriter(db *bun.DB) *RecordWriter {
	return &RecordWriter{db: db}
}

func (w *RecordWriter) SaveRecords(ctx context.Context, fileID string, records []domain.QuestionRecord) error {
	if err := domain.ValidateRecords(records); err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	row := &FlashcardFile{ID: fileID, Data: string(data), UpdatedAt: time.Now()}
	_, err = w.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save records %s: %w", fileID, err)
	}
	return nil
}
