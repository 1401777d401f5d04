package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quickrev/internal/app"
	"quickrev/internal/domain"
	"quickrev/internal/infra/memory"
)

func TestOpenRegistersSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	service := newTestService(store)
	cue := &recordingCue{}

	session, err := service.Open(ctx, "u1", " file-1 ", cue)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.ID() == "" || session.UserID() != "u1" || session.FileID() != "file-1" {
		t.Fatalf("unexpected session identity id=%q user=%q file=%q", session.ID(), session.UserID(), session.FileID())
	}
	if session.Phase() != app.PhaseModeSelection {
		t.Fatalf("expected mode selection, got %s", session.Phase())
	}

	got, err := service.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("expected registered session, got %v (%v)", got, err)
	}

	if err := service.Close(session.ID()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !cue.closed {
		t.Fatalf("expected cue closed with the session")
	}
	if _, err := service.Get(session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestOpenRequiresUser(t *testing.T) {
	service := newTestService(memory.NewSessionStore())

	if _, err := service.Open(context.Background(), "", "file-1", nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestLoadRecordsErrors(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewSessionStore())

	if _, err := service.LoadRecords(ctx, "  "); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for blank id, got %v", err)
	}
	if _, err := service.LoadRecords(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.LoadRecords(ctx, "empty"); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error for empty file, got %v", err)
	}
}

func TestRunCountdownEntersSession(t *testing.T) {
	session := app.NewSession("s1", []domain.QuestionRecord{identificationCard()})
	mustDo(t, session.SelectMode(domain.ModeQuiz))

	var ticks []int
	err := app.RunCountdown(context.Background(), session, time.Millisecond, func(n int) {
		ticks = append(ticks, n)
	})
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	want := []int{3, 2, 1, 0}
	if len(ticks) != len(want) {
		t.Fatalf("expected ticks %v, got %v", want, ticks)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("expected ticks %v, got %v", want, ticks)
		}
	}
	if session.Phase() != app.PhaseInSession {
		t.Fatalf("expected in session, got %s", session.Phase())
	}
}

func TestRunCountdownHonoursContext(t *testing.T) {
	session := app.NewSession("s1", []domain.QuestionRecord{identificationCard()})
	mustDo(t, session.SelectMode(domain.ModeNormal))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.RunCountdown(ctx, session, time.Hour, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if session.Phase() != app.PhaseCountdown {
		t.Fatalf("expected countdown still pending, got %s", session.Phase())
	}
}

func newTestService(store app.SessionRepository) *app.StudyService {
	records := memory.NewRecordRepository(memory.NewStaticRecordLoader(map[string][]domain.QuestionRecord{
		"file-1": {identificationCard()},
		"empty":  {},
	}), 5*time.Minute)
	return app.NewStudyService(store, records)
}
