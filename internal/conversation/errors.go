package conversation

import (
	"errors"
	"fmt"
)

// ErrNoAttemptsLeft is returned when a send request arrives with no
// unfinished conversation and no attempts remaining.
var ErrNoAttemptsLeft = errors.New("no attempts remaining")

// ErrAlreadyShared is returned when the user already holds the share slot
// for the activity.
var ErrAlreadyShared = errors.New("a conversation is already shared")

// ErrEmptyMessage is returned for blank send requests. Clients are expected
// to reject these before submitting; no exchange is ever recorded for one.
var ErrEmptyMessage = errors.New("message is empty")

// ProviderError wraps a failed AI provider call. The provider's message is
// surfaced to the caller verbatim; no exchange is recorded.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
