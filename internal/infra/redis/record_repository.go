package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"quickrev/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RecordLoader fetches flashcard records from a backing source.
type RecordLoader interface {
	LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error)
}

// RecordRepository caches record payloads in Redis and falls back to a loader on miss.
// Payloads are stored as: SET quickrev:records:{fileID} <json array> EX ttl
type RecordRepository struct {
	client *redis.Client
	loader RecordLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewRecordRepository(client *redis.Client, loader RecordLoader, ttl time.Duration) *RecordRepository {
	return &RecordRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RecordRepository) GetRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	if records, ok := r.cached(ctx, fileID); ok {
		return records, nil
	}

	result, err, _ := r.sf.Do(fileID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := r.cached(ctx, fileID); ok {
			return records, nil
		}

		records, err := r.loader.LoadRecords(ctx, fileID)
		if err != nil {
			return nil, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			payload, err := json.Marshal(records)
			if err == nil {
				err = r.client.Set(ctx, r.key(fileID), payload, ttl).Err()
			}
			if err != nil {
				log.Printf("cache records %s: %v", fileID, err)
			}
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// cached treats any Redis failure or unreadable payload as a miss.
func (r *RecordRepository) cached(ctx context.Context, fileID string) ([]domain.QuestionRecord, bool) {
	payload, err := r.client.Get(ctx, r.key(fileID)).Bytes()
	if err != nil {
		return nil, false
	}
	records, err := domain.ParseRecords(payload)
	if err != nil {
		return nil, false
	}
	return records, true
}

// Invalidate drops the cached payload, e.g. after the file was regenerated.
func (r *RecordRepository) Invalidate(ctx context.Context, fileID string) error {
	return r.client.Del(ctx, r.key(fileID)).Err()
}

func (r *RecordRepository) key(fileID string) string {
	return "quickrev:records:" + fileID
}

func (r *RecordRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
