package app

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"quickrev/internal/domain"
)

// Phase is the coarse state of a study session.
type Phase string

const (
	PhaseModeSelection Phase = "mode-selection"
	PhaseCountdown     Phase = "countdown"
	PhaseInSession     Phase = "in-session"
	PhaseComplete      Phase = "complete"
)

// CountdownSteps is the number of ticks shown before the first card.
const CountdownSteps = 3

// Session walks one user through a loaded flashcard set. Each view owns its
// own Session; the mutex only serializes the view's reader and timer goroutines.
type Session struct {
	id     string
	userID string
	fileID string

	records []domain.QuestionRecord
	cue     Cue
	intn    func(n int) int

	mu        sync.Mutex
	mode      domain.Mode
	phase     Phase
	countdown int
	cards     []domain.QuestionRecord
	index     int
	answers   map[int]*domain.AnswerState
	score     *int
}

// SessionOption customizes a new Session.
type SessionOption func(*Session)

// WithCue sets the feedback cue played on explicit checks.
func WithCue(c Cue) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.cue = c
		}
	}
}

// WithRand replaces the random source used by shuffle modes.
func WithRand(intn func(n int) int) SessionOption {
	return func(s *Session) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// WithOwner records which user opened the session and for which file.
func WithOwner(userID, fileID string) SessionOption {
	return func(s *Session) {
		s.userID = userID
		s.fileID = fileID
	}
}

// NewSession creates a session in mode selection over records in loader order.
func NewSession(id string, records []domain.QuestionRecord, opts ...SessionOption) *Session {
	s := &Session{
		id:      id,
		records: records,
		cue:     NopCue{},
		intn:    rand.New(rand.NewSource(time.Now().UnixNano())).Intn,
		phase:   PhaseModeSelection,
		answers: make(map[int]*domain.AnswerState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) FileID() string { return s.fileID }

// SelectMode fixes the mode for this session and starts the countdown.
func (s *Session) SelectMode(mode domain.Mode) error {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseModeSelection {
		return domain.ErrModeLocked
	}

	if mode.Shuffled() {
		s.cards = Shuffle(s.records, s.intn)
	} else {
		s.cards = make([]domain.QuestionRecord, len(s.records))
		copy(s.cards, s.records)
	}
	s.mode = mode
	s.index = 0
	s.answers = make(map[int]*domain.AnswerState)
	s.score = nil
	s.countdown = CountdownSteps
	s.phase = PhaseCountdown
	return nil
}

// TickCountdown advances the countdown by one step and returns what remains.
// The tick that reaches zero makes the first card active.
func (s *Session) TickCountdown() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseModeSelection:
		return 0, domain.ErrNoMode
	case PhaseCountdown:
	default:
		return 0, nil
	}

	s.countdown--
	if s.countdown <= 0 {
		s.countdown = 0
		s.index = 0
		s.phase = PhaseInSession
	}
	return s.countdown, nil
}

// SubmitAnswer stores a new answer for the current card. Any earlier check
// result is invalidated. On enumeration cards the value goes to the first slot.
func (s *Session) SubmitAnswer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.cards[s.index].Type == domain.TypeEnumeration {
		return s.writeSlotLocked(0, value)
	}

	st := s.stateLocked(s.index)
	st.Answer = domain.Answer{Text: value}
	st.Checked = false
	st.IsCorrect = nil
	return nil
}

// SubmitSlot writes one enumeration slot, keeping the other slots intact.
func (s *Session) SubmitSlot(slot int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	return s.writeSlotLocked(slot, value)
}

func (s *Session) writeSlotLocked(slot int, value string) error {
	card := s.cards[s.index]
	if slot < 0 || slot >= card.Slots() {
		return domain.ErrInvalidSlot
	}

	st := s.stateLocked(s.index)
	slots := make(map[int]string, len(st.Answer.Slots)+1)
	for k, v := range st.Answer.Slots {
		slots[k] = v
	}
	slots[slot] = value
	st.Answer = domain.Answer{Slots: slots}
	st.Checked = false
	st.IsCorrect = nil
	return nil
}

// Check grades the current card and reveals its answer face. Normal modes only.
func (s *Session) Check() (bool, error) {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.mode.Quiz() {
		s.mu.Unlock()
		return false, domain.ErrCheckUnavailable
	}

	st := s.stateLocked(s.index)
	if st.Checked {
		s.mu.Unlock()
		return false, domain.ErrAlreadyChecked
	}
	card := s.cards[s.index]
	correct := Compare(st.Answer, card.CorrectAnswer, card.Type)
	st.IsCorrect = &correct
	st.Checked = true
	st.IsFlipped = true
	cue := s.cue
	s.mu.Unlock()

	if correct {
		cue.Correct()
	} else {
		cue.Wrong()
	}
	return correct, nil
}

// Flip toggles the current card between question and answer face. In quiz
// modes it does nothing.
func (s *Session) Flip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.mode.Quiz() {
		return nil
	}
	st := s.stateLocked(s.index)
	st.IsFlipped = !st.IsFlipped
	return nil
}

// Navigate moves by delta (-1 or +1). Moves outside [0, len(cards)] are
// ignored. In quiz modes a forward move grades the card being left, and
// leaving the last card scores the whole session.
func (s *Session) Navigate(delta int) error {
	if delta != 1 && delta != -1 {
		return domain.ErrInvalidStep
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseModeSelection:
		return domain.ErrNoMode
	case PhaseCountdown:
		return domain.ErrCountdownActive
	case PhaseComplete:
		return nil
	}

	next := s.index + delta
	if next < 0 || next > len(s.cards) {
		return nil
	}

	if delta > 0 && s.mode.Quiz() && s.index < len(s.cards) {
		st := s.stateLocked(s.index)
		if !st.Checked {
			card := s.cards[s.index]
			correct := Compare(st.Answer, card.CorrectAnswer, card.Type)
			st.IsCorrect = &correct
			st.Checked = true
			st.IsFlipped = false
		}
	}

	s.index = next
	if s.mode.Quiz() && s.index == len(s.cards) && s.score == nil {
		score := s.scoreLocked()
		s.score = &score
		s.phase = PhaseComplete
	}
	return nil
}

// scoreLocked re-grades every stored answer instead of trusting the
// per-card flags, so edits made after an auto-check still count.
func (s *Session) scoreLocked() int {
	score := 0
	for i, card := range s.cards {
		st, ok := s.answers[i]
		if ok && Compare(st.Answer, card.CorrectAnswer, card.Type) {
			score++
		}
	}
	return score
}

// Restart returns a scored session to mode selection with a clean slate.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseComplete {
		return domain.ErrRestartUnavailable
	}
	s.mode = ""
	s.phase = PhaseModeSelection
	s.countdown = 0
	s.cards = nil
	s.index = 0
	s.answers = make(map[int]*domain.AnswerState)
	s.score = nil
	return nil
}

// InputLocked reports whether answer inputs for the current card are
// disabled. Only normal modes lock, and only after a check.
func (s *Session) InputLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputLockedLocked()
}

func (s *Session) inputLockedLocked() bool {
	if s.phase != PhaseInSession || s.index >= len(s.cards) || s.mode.Quiz() {
		return false
	}
	st, ok := s.answers[s.index]
	return ok && st.Checked
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Mode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Cards returns the session's card order.
func (s *Session) Cards() []domain.QuestionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QuestionRecord, len(s.cards))
	copy(out, s.cards)
	return out
}

// Score returns the quiz score once it has been computed.
func (s *Session) Score() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

// AnswerState returns a copy of the state for card i, if any exists yet.
func (s *Session) AnswerState(i int) (domain.AnswerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.answers[i]
	if !ok {
		return domain.AnswerState{}, false
	}
	return copyState(st), true
}

func (s *Session) close() error {
	return s.cue.Close()
}

func (s *Session) activeLocked() error {
	switch s.phase {
	case PhaseModeSelection:
		return domain.ErrNoMode
	case PhaseCountdown:
		return domain.ErrCountdownActive
	case PhaseComplete:
		return domain.ErrNotInSession
	}
	if s.index >= len(s.cards) {
		return domain.ErrNotInSession
	}
	return nil
}

func (s *Session) stateLocked(i int) *domain.AnswerState {
	st, ok := s.answers[i]
	if !ok {
		st = &domain.AnswerState{}
		s.answers[i] = st
	}
	return st
}

func copyState(st *domain.AnswerState) domain.AnswerState {
	out := *st
	if st.IsCorrect != nil {
		v := *st.IsCorrect
		out.IsCorrect = &v
	}
	if st.Answer.Slots != nil {
		out.Answer.Slots = make(map[int]string, len(st.Answer.Slots))
		for k, v := range st.Answer.Slots {
			out.Answer.Slots[k] = v
		}
	}
	return out
}

// Snapshot is a read-only view of the session for clients.
type Snapshot struct {
	SessionID string      `json:"sessionId"`
	FileID    string      `json:"fileId,omitempty"`
	Phase     Phase       `json:"phase"`
	Mode      domain.Mode `json:"mode,omitempty"`
	Countdown int         `json:"countdown,omitempty"`
	Index     int         `json:"index"`
	Total     int         `json:"total"`
	Finished  bool        `json:"finished"`
	Card      *CardView   `json:"card,omitempty"`
	Score     *int        `json:"score,omitempty"`
	Percent   *int        `json:"percent,omitempty"`
}

// CardView is the current card as a client renders it. The correct answer
// is only present on the answer face.
type CardView struct {
	Question      string                `json:"question"`
	Type          domain.QuestionType   `json:"type"`
	Choices       []string              `json:"choices,omitempty"`
	Slots         int                   `json:"slots,omitempty"`
	State         domain.AnswerState    `json:"state"`
	InputLocked   bool                  `json:"inputLocked"`
	CorrectAnswer *domain.CorrectAnswer `json:"correctAnswer,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.records)
	if s.cards != nil {
		total = len(s.cards)
	}
	snap := Snapshot{
		SessionID: s.id,
		FileID:    s.fileID,
		Phase:     s.phase,
		Mode:      s.mode,
		Countdown: s.countdown,
		Index:     s.index,
		Total:     total,
		Finished:  s.phase == PhaseComplete || (s.phase == PhaseInSession && s.index >= len(s.cards)),
	}

	if s.phase == PhaseInSession && s.index < len(s.cards) {
		card := s.cards[s.index]
		view := &CardView{
			Question:    card.Question,
			Type:        card.Type,
			Choices:     card.Options(),
			Slots:       card.Slots(),
			InputLocked: s.inputLockedLocked(),
		}
		if st, ok := s.answers[s.index]; ok {
			view.State = copyState(st)
		}
		if view.State.IsFlipped {
			answer := card.CorrectAnswer
			view.CorrectAnswer = &answer
		}
		snap.Card = view
	}

	if s.score != nil {
		score := *s.score
		snap.Score = &score
		if total > 0 {
			percent := int(math.Round(float64(score) / float64(total) * 100))
			snap.Percent = &percent
		}
	}
	return snap
}
