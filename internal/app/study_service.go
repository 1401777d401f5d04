package app

import (
	"context"
	"fmt"
	"strings"

	"quickrev/internal/domain"

	"github.com/google/uuid"
)

// SessionRepository abstracts where live study sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// RecordRepository loads the flashcard records of a generated file.
type RecordRepository interface {
	GetRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error)
}

// StudyService contains the flashcard study use cases.
type StudyService struct {
	sessions SessionRepository
	records  RecordRepository
	options  []SessionOption
	newID    func() string
}

func NewStudyService(store SessionRepository, records RecordRepository, opts ...SessionOption) *StudyService {
	return &StudyService{
		sessions: store,
		records:  records,
		options:  opts,
		newID:    uuid.NewString,
	}
}

// LoadRecords fetches and validates the records of fileID. It keeps no state,
// so calling it again after a failure is a plain retry.
func (s *StudyService) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("%w: no file id provided", domain.ErrNotFound)
	}

	records, err := s.records.GetRecords(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Open loads fileID for userID and registers a fresh session in mode selection.
func (s *StudyService) Open(ctx context.Context, userID, fileID string, cue Cue) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthenticated
	}

	records, err := s.LoadRecords(ctx, fileID)
	if err != nil {
		return nil, err
	}

	opts := append([]SessionOption{WithOwner(userID, strings.TrimSpace(fileID)), WithCue(cue)}, s.options...)
	session := NewSession(s.newID(), records, opts...)
	s.sessions.Put(session)
	return session, nil
}

// Get returns a live session by id.
func (s *StudyService) Get(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close releases the session's cue and forgets it.
func (s *StudyService) Close(id string) error {
	session, ok := s.sessions.Get(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions.Delete(id)
	return session.close()
}
