package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseRecords decodes a flashcard payload. The backend serves either the
// array itself or a JSON string that contains it.
func ParseRecords(raw []byte) ([]QuestionRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: could not parse JSON: %v", ErrFormat, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: payload is not an array", ErrFormat)
	}

	var records []QuestionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: could not parse JSON: %v", ErrFormat, err)
	}
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// ValidateRecords checks the shape of an already decoded record list.
func ValidateRecords(records []QuestionRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: no records", ErrFormat)
	}
	for i, r := range records {
		if err := r.validate(i); err != nil {
			return err
		}
	}
	return nil
}
