package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionType is the card kind as labelled by the generation backend.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "Multiple Choice"
	TypeIdentification QuestionType = "Identification"
	TypeTrueOrFalse    QuestionType = "True or False"
	TypeEnumeration    QuestionType = "Enumeration"
)

// Valid reports whether t is one of the four known card kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeIdentification, TypeTrueOrFalse, TypeEnumeration:
		return true
	}
	return false
}

// CorrectAnswer holds either a single value or a list of values. The wire
// shape is remembered so records re-encode the way they arrived.
type CorrectAnswer struct {
	Values []string
	List   bool
}

// Single builds a scalar correct answer.
func Single(v string) CorrectAnswer {
	return CorrectAnswer{Values: []string{v}}
}

// Many builds a list-shaped correct answer.
func Many(vs ...string) CorrectAnswer {
	return CorrectAnswer{Values: vs, List: true}
}

func (c CorrectAnswer) MarshalJSON() ([]byte, error) {
	if c.List {
		if c.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Values)
	}
	if len(c.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(c.Values[0])
}

func (c *CorrectAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CorrectAnswer{}
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			values = append(values, scalarString(item))
		}
		*c = CorrectAnswer{Values: values, List: true}
		return nil
	}
	*c = CorrectAnswer{Values: []string{scalarString(data)}}
	return nil
}

// scalarString renders a JSON scalar as text; generated files sometimes carry
// booleans or numbers where a string is expected.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// String joins the values the way the answer face displays them.
func (c CorrectAnswer) String() string {
	return strings.Join(c.Values, " • ")
}

// QuestionRecord is one generated flashcard. Immutable once loaded.
type QuestionRecord struct {
	Question      string        `json:"Question"`
	Type          QuestionType  `json:"Type"`
	Choices       []string      `json:"Choices,omitempty"`
	CorrectAnswer CorrectAnswer `json:"Correct Answer"`
}

// Options returns the selectable values for choice-based cards.
func (r QuestionRecord) Options() []string {
	if r.Type == TypeTrueOrFalse && len(r.Choices) == 0 {
		return []string{"True", "False"}
	}
	return r.Choices
}

// Slots is the number of enumeration inputs a card offers.
func (r QuestionRecord) Slots() int {
	if r.Type != TypeEnumeration {
		return 0
	}
	if n := len(r.CorrectAnswer.Values); n > 0 {
		return n
	}
	return 1
}

func (r QuestionRecord) validate(i int) error {
	if r.Question == "" {
		return fmt.Errorf("%w: record %d has no question", ErrFormat, i)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: record %d has unknown type %q", ErrFormat, i, r.Type)
	}
	if r.Type == TypeMultipleChoice && len(r.Choices) == 0 {
		return fmt.Errorf("%w: record %d has no choices", ErrFormat, i)
	}
	return nil
}

// Mode is one of the four session modes.
type Mode string

const (
	ModeNormal        Mode = "normal"
	ModeQuiz          Mode = "quiz"
	ModeShuffleNormal Mode = "shuffle-normal"
	ModeShuffleQuiz   Mode = "shuffle-quiz"
)

// Modes lists the selectable modes in display order.
var Modes = []Mode{ModeNormal, ModeQuiz, ModeShuffleNormal, ModeShuffleQuiz}

func ParseMode(raw string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
}

func (m Mode) Shuffled() bool { return m == ModeShuffleNormal || m == ModeShuffleQuiz }
func (m Mode) Quiz() bool     { return m == ModeQuiz || m == ModeShuffleQuiz }

// Answer is what the user typed or selected. Enumeration cards fill Slots,
// every other kind uses Text.
type Answer struct {
	Text  string         `json:"text,omitempty"`
	Slots map[int]string `json:"slots,omitempty"`
}

// IsEmpty reports whether nothing has been entered.
func (a Answer) IsEmpty() bool {
	if a.Text != "" {
		return false
	}
	for _, v := range a.Slots {
		if v != "" {
			return false
		}
	}
	return true
}

// AnswerState is the per-card interaction record, created on first touch.
type AnswerState struct {
	Answer    Answer `json:"answer"`
	Checked   bool   `json:"checked"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
	IsFlipped bool   `json:"isFlipped"`
}
