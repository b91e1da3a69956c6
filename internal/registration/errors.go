package registration

import (
	"errors"
	"strings"
)

var (
	ErrValidationIncomplete = errors.New("validation incomplete")
	ErrInvalidTransition    = errors.New("invalid step transition")
	ErrSubmissionInFlight   = errors.New("submission already in progress")
	ErrSessionNotFound      = errors.New("signup session not found")
)

// IncompleteError names the fields that block the step.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return ErrValidationIncomplete.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteError) Unwrap() error {
	return ErrValidationIncomplete
}
