package recognition

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned by Enroll when the employee code is already enrolled.
	ErrDuplicateIdentity = errors.New("employee code already enrolled")
	// ErrNoArtifact is returned when there is no captured image to submit.
	ErrNoArtifact = errors.New("no captured image to submit")
)

// DefaultReason is the reason of a rejection that came without explanation.
const DefaultReason = "failed"

// RejectedError is a business failure reported by the recognition service,
// for example no face detected or no match. The request may be retried with a new capture.
type RejectedError struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// TransportError means the recognition service could not be reached or answered
// with something that is not a valid response. The whole request may be retried.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: recognition service returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: recognition service unavailable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
