package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quickrev/internal/domain"
)

// FileCatalog lists and removes the files in a user's library.
type FileCatalog interface {
	ListFiles(ctx context.Context, userID, fileType string) ([]domain.FileSummary, error)
	DeleteFile(ctx context.Context, userID, fileID string) error
}

type invalidator interface {
	Invalidate(ctx context.Context, fileID string) error
}

// Library is where a user picks the flashcard set a session is opened on.
type Library struct {
	catalog FileCatalog
	records RecordRepository
}

// NewLibrary wraps catalog. A nil catalog yields ErrListingUnavailable.
// When records can invalidate, deleted files are evicted from it.
func NewLibrary(catalog FileCatalog, records RecordRepository) *Library {
	return &Library{catalog: catalog, records: records}
}

// Flashcards returns userID's flashcard sets, newest first.
func (l *Library) Flashcards(ctx context.Context, userID string) ([]domain.FileSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	if l.catalog == nil {
		return nil, domain.ErrListingUnavailable
	}

	files, err := l.catalog.ListFiles(ctx, userID, domain.FileTypeFlashcards)
	if err != nil {
		return nil, err
	}
	domain.SortFiles(files)
	return files, nil
}

// Delete removes fileID from userID's library.
func (l *Library) Delete(ctx context.Context, userID, fileID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUnauthenticated
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return fmt.Errorf("%w: no file id provided", domain.ErrNotFound)
	}
	if l.catalog == nil {
		return domain.ErrListingUnavailable
	}

	if err := l.catalog.DeleteFile(ctx, userID, fileID); err != nil {
		return err
	}
	if inv, ok := l.records.(invalidator); ok {
		if err := inv.Invalidate(ctx, fileID); err != nil {
			log.Printf("evict records %s: %v", fileID, err)
		}
	}
	return nil
}
