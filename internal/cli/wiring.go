package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"quickrev/internal/app"
	"quickrev/internal/config"
	"quickrev/internal/domain"
	"quickrev/internal/infra/backend"
	"quickrev/internal/infra/memory"
	pgloader "quickrev/internal/infra/postgres"
	redisinfra "quickrev/internal/infra/redis"
	"quickrev/internal/infra/sqlite"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stack is the set of infrastructure built from config.
type stack struct {
	service *app.StudyService
	library *app.Library
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStack wires the record source, caches and session store. Sources are
// tried in order: Postgres mirror, sqlite file, REST backend, built-in sample.
func buildStack(ctx context.Context, cfg config.Config, opts ...app.SessionOption) (*stack, error) {
	st := &stack{}

	loader, err := buildLoader(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	recordsTTL := config.TTLDuration(cfg.Records.TTL, 10*time.Minute)

	var records app.RecordRepository
	if redisClient != nil {
		records = redisinfra.NewRecordRepository(redisClient, loader, recordsTTL)
	} else {
		records = memory.NewRecordRepository(loader, recordsTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	st.service = app.NewStudyService(store, records, opts...)
	st.library = app.NewLibrary(buildCatalog(cfg, loader), records)
	return st, nil
}

func buildLoader(ctx context.Context, cfg config.Config, st *stack) (memory.RecordLoader, error) {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)
		log.Printf("loading flashcards from postgres")
		return pgloader.NewRecordLoader(pool), nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = store.Close() })
		log.Printf("loading flashcards from sqlite %s", cfg.SQLite.Path)
		return store, nil
	case cfg.Backend.Endpoint != "":
		log.Printf("loading flashcards from %s", cfg.Backend.Endpoint)
		return backend.NewClient(cfg.Backend.Endpoint, config.TTLDuration(cfg.Backend.Timeout, 15*time.Second)), nil
	default:
		log.Printf("no record source configured, serving the built-in sample file")
		return memory.NewStaticRecordLoader(sampleFiles()), nil
	}
}

// buildCatalog lists files through the record source when it can list,
// otherwise through the REST backend if one is configured.
func buildCatalog(cfg config.Config, loader memory.RecordLoader) app.FileCatalog {
	if catalog, ok := loader.(app.FileCatalog); ok {
		return catalog
	}
	if cfg.Backend.Endpoint != "" {
		return backend.NewClient(cfg.Backend.Endpoint, config.TTLDuration(cfg.Backend.Timeout, 15*time.Second))
	}
	log.Printf("no file catalog configured, file listing is disabled")
	return nil
}

// sampleFiles provides a minimal flashcard file for demos.
func sampleFiles() map[string][]domain.QuestionRecord {
	return map[string][]domain.QuestionRecord{
		"sample": {
			{
				Question:      "What is the powerhouse of the cell?",
				Type:          domain.TypeMultipleChoice,
				Choices:       []string{"Nucleus", "Mitochondria", "Ribosome"},
				CorrectAnswer: domain.Single("Mitochondria"),
			},
			{
				Question:      "Plant cells have a cell wall.",
				Type:          domain.TypeTrueOrFalse,
				CorrectAnswer: domain.Single("True"),
			},
			{
				Question:      "Process by which plants make food from sunlight",
				Type:          domain.TypeIdentification,
				CorrectAnswer: domain.Single("Photosynthesis"),
			},
			{
				Question:      "Name the two main parts of the nervous system",
				Type:          domain.TypeEnumeration,
				CorrectAnswer: domain.Many("Central nervous system", "Peripheral nervous system"),
			},
		},
	}
}
