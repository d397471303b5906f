package dream

import (
	"errors"
	"fmt"

	"dream-chatter/internal/voice"
)

// Validation failures: the caller asked for something that is not there.
var ErrNoPendingDream = errors.New("no pending dream for chat")

// RejectionError is the designed negative outcome of the voice filter.
// Not a fault: it carries the verdict for logging and the transcript for
// diagnostics, and maps to a "could not recognize speech" user message.
type RejectionError struct {
	Verdict    voice.Verdict
	Transcript string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("voice message rejected: %s", e.Verdict.Reason)
}

// ServiceError wraps a failed external call (chat completion or
// transcription). State is left untouched so the user can simply resend.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store write. The computed interpretation
// stays visible to the user even though it could not be saved.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
