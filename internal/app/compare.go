package app

import (
	"strings"

	"quickrev/internal/domain"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Compare reports whether answer satisfies correct for the given card type.
// It never fails: a missing or malformed answer is simply incorrect.
func Compare(answer domain.Answer, correct domain.CorrectAnswer, typ domain.QuestionType) bool {
	if answer.IsEmpty() {
		return false
	}

	switch typ {
	case domain.TypeEnumeration:
		return coversAll(answer, correct.Values)
	case domain.TypeIdentification:
		submitted := normalize(answer.Text)
		for _, alt := range correct.Values {
			if normalize(alt) == submitted {
				return true
			}
		}
		return false
	default:
		// Multiple Choice and True or False carry exactly one correct value.
		if len(correct.Values) != 1 || answer.Text == "" {
			return false
		}
		return normalize(answer.Text) == normalize(correct.Values[0])
	}
}

// coversAll is a set coverage check: slot order and extra entries are ignored.
func coversAll(answer domain.Answer, required []string) bool {
	if len(required) == 0 {
		return false
	}
	submitted := make(map[string]struct{}, len(answer.Slots)+1)
	for _, v := range answer.Slots {
		if n := normalize(v); n != "" {
			submitted[n] = struct{}{}
		}
	}
	if n := normalize(answer.Text); n != "" {
		submitted[n] = struct{}{}
	}
	for _, want := range required {
		if _, ok := submitted[normalize(want)]; !ok {
			return false
		}
	}
	return true
}
