package postgres

import (
	"context"
	"errors"
	"fmt"

	"quickrev/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RecordLoader loads flashcard JSONB payloads mirrored into Postgres.
type RecordLoader struct {
	pool *pgxpool.Pool
}

func NewRecordLoader(pool *pgxpool.Pool) *RecordLoader {
	return &RecordLoader{pool: pool}
}

func (l *RecordLoader) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM flashcard_files WHERE id=$1`, fileID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load records: %v", domain.ErrNetwork, err)
	}
	return domain.ParseRecords(raw)
}
