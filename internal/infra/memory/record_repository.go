package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quickrev/internal/domain"

	"golang.org/x/sync/singleflight"
)

// RecordLoader fetches flashcard records from a backing source (REST backend, Postgres, sqlite).
type RecordLoader interface {
	LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error)
}

// RecordRepository caches loaded records with TTL to avoid refetching the same file.
// Failed loads are never cached, so a retry always reaches the loader again.
type RecordRepository struct {
	loader RecordLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedRecords
}

type cachedRecords struct {
	records   []domain.QuestionRecord
	expiresAt time.Time
}

func NewRecordRepository(loader RecordLoader, ttl time.Duration) *RecordRepository {
	return &RecordRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRecords),
	}
}

func (r *RecordRepository) GetRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	if records, ok := r.lookup(fileID); ok {
		return records, nil
	}

	result, err, _ := r.sf.Do(fileID, func() (interface{}, error) {
		if records, ok := r.lookup(fileID); ok {
			return records, nil
		}

		records, err := r.loader.LoadRecords(ctx, fileID)
		if err != nil {
			return nil, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			r.cache[fileID] = cachedRecords{
				records:   records,
				expiresAt: r.clock().Add(ttl),
			}
			r.mu.Unlock()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

func (r *RecordRepository) lookup(fileID string) ([]domain.QuestionRecord, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[fileID]; ok && entry.expiresAt.After(now) {
		return entry.records, true
	}
	return nil, false
}

// Invalidate drops the cached records of fileID.
func (r *RecordRepository) Invalidate(_ context.Context, fileID string) error {
	r.mu.Lock()
	delete(r.cache, fileID)
	r.mu.Unlock()
	return nil
}

func (r *RecordRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticRecordLoader is a simple loader backed by an in-memory map (useful for tests/demos).
// It doubles as a catalog: every user sees every file, named by its id.
type StaticRecordLoader struct {
	mu      sync.RWMutex
	files   map[string][]domain.QuestionRecord
	updated time.Time
}

func NewStaticRecordLoader(files map[string][]domain.QuestionRecord) *StaticRecordLoader {
	return &StaticRecordLoader{files: files, updated: time.Now().UTC()}
}

func (l *StaticRecordLoader) LoadRecords(_ context.Context, fileID string) ([]domain.QuestionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if records, ok := l.files[fileID]; ok {
		return records, nil
	}
	return nil, domain.ErrNotFound
}

func (l *StaticRecordLoader) ListFiles(_ context.Context, userID, fileType string) ([]domain.FileSummary, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	files := []domain.FileSummary{}
	if fileType != domain.FileTypeFlashcards {
		return files, nil
	}

	l.mu.RLock()
	for id := range l.files {
		files = append(files, domain.FileSummary{FileID: id, Name: id, UpdatedAt: l.updated})
	}
	l.mu.RUnlock()
	domain.SortFiles(files)
	return files, nil
}

func (l *StaticRecordLoader) DeleteFile(_ context.Context, userID, fileID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.files[fileID]; !ok {
		return domain.ErrNotFound
	}
	delete(l.files, fileID)
	return nil
}
