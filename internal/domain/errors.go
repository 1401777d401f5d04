package domain

import "errors"

var (
	// ErrNotFound is returned when the file identifier is missing or unknown to the backend.
	ErrNotFound = errors.New("flashcard file not found")
	// ErrFormat indicates the payload is not a non-empty array of question records.
	ErrFormat = errors.New("flashcard file is empty or formatted incorrectly")
	// ErrNetwork wraps transport and server failures while fetching records.
	ErrNetwork = errors.New("failed to reach flashcard backend")
	// ErrPayloadTooLarge is wrapped together with ErrFormat when a body exceeds the read limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUnauthenticated is returned when an action needs a user context and none is present.
	ErrUnauthenticated = errors.New("user is not authenticated")
	// ErrSessionNotFound is returned when a study session id is unknown.
	ErrSessionNotFound = errors.New("study session not found")
	// ErrListingUnavailable is returned when no file catalog is configured.
	ErrListingUnavailable = errors.New("file listing is not configured")

	ErrUnknownMode        = errors.New("unknown session mode")
	ErrModeLocked         = errors.New("session mode already selected")
	ErrNoMode             = errors.New("session mode not selected")
	ErrCountdownActive    = errors.New("countdown in progress")
	ErrNotInSession       = errors.New("no card is active")
	ErrCheckUnavailable   = errors.New("check is only available in normal modes")
	ErrAlreadyChecked     = errors.New("card already checked")
	ErrInvalidStep        = errors.New("navigation step must be -1 or +1")
	ErrInvalidSlot        = errors.New("enumeration slot out of range")
	ErrRestartUnavailable = errors.New("restart is only available after a quiz is scored")
)

// Retryable reports whether a failed load should be offered a retry. A missing
// identifier needs a new link and an oversized file will not shrink, everything
// else can simply be fetched again.
func Retryable(err error) bool {
	if errors.Is(err, ErrPayloadTooLarge) {
		return false
	}
	return errors.Is(err, ErrFormat) || errors.Is(err, ErrNetwork)
}

// ErrorKind maps a load error onto its taxonomy name for clients.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "session"
	}
}
