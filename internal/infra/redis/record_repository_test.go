package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"quickrev/internal/domain"
	"quickrev/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRecordRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		RecordLoader: memory.NewStaticRecordLoader(map[string][]domain.QuestionRecord{
			"file-1": sampleRecords(),
		}),
	}
	repo := NewRecordRepository(client, loader, time.Minute)

	records, err := repo.GetRecords(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("get records: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(records) != 2 || !records[1].CorrectAnswer.List {
		t.Fatalf("unexpected records %+v", records)
	}
	if !mr.Exists("quickrev:records:file-1") {
		t.Fatalf("expected payload cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetRecords(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("get records 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached[1].CorrectAnswer.Values[1] != "Nucleus" {
		t.Fatalf("expected cached enumeration answer, got %+v", cached[1].CorrectAnswer)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetRecords(context.Background(), "file-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.calls)
	}
}

func TestRecordRepositoryPassesThroughErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewRecordRepository(newClient(mr), memory.NewStaticRecordLoader(nil), time.Minute)
	if _, err := repo.GetRecords(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("quickrev:records:missing") {
		t.Fatalf("errors must not be cached")
	}
}

func TestRecordRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		RecordLoader: memory.NewStaticRecordLoader(map[string][]domain.QuestionRecord{"file-1": sampleRecords()}),
	}
	repo := NewRecordRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetRecords(context.Background(), "file-1")
	if err := repo.Invalidate(context.Background(), "file-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetRecords(context.Background(), "file-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.RecordLoader
	calls int
}

func (l *countingLoader) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	l.calls++
	return l.RecordLoader.LoadRecords(ctx, fileID)
}

func sampleRecords() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{
			Question:      "What is 2 + 2?",
			Type:          domain.TypeMultipleChoice,
			Choices:       []string{"3", "4"},
			CorrectAnswer: domain.Single("4"),
		},
		{
			Question:      "Name two organelles",
			Type:          domain.TypeEnumeration,
			CorrectAnswer: domain.Many("Mitochondria", "Nucleus"),
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
