package mutation

import (
	"errors"
	"fmt"

	"github.com/clinicdesk/console/internal/clinicapi"
)

var (
	// ErrNotAllowed is an authorization denial. It is raised before any
	// network call, is not retryable by the same gesture, and any transient
	// UI state the gesture produced has already been reverted.
	ErrNotAllowed = errors.New("mutation: role is not authorized for this action")

	// ErrMutationInFlight rejects a second mutation on an appointment whose
	// previous mutation has not settled yet.
	ErrMutationInFlight = errors.New("mutation: a change for this appointment is still in flight")

	// ErrStale marks a mutation whose target no longer exists server-side.
	// The id's cache entries have been invalidated by the time callers see it.
	ErrStale = errors.New("mutation: appointment no longer exists")
)

// ValidationError is a local form-schema rejection. It never reaches the
// network and is scoped to a field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mutation: invalid %s: %s", e.Field, e.Reason)
}

// Failure buckets an error for the render surface: the bucket decides
// whether the message lands on a field, a banner, or a toast, and whether a
// retry makes sense.
type Failure int

const (
	FailureNone Failure = iota
	FailureAuthorization
	FailureValidation
	FailureStale
	FailureRemote
)

// Classify maps an error from Dispatch to its failure bucket.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNotAllowed):
		return FailureAuthorization
	case errors.Is(err, ErrStale), clinicapi.IsNotFound(err):
		return FailureStale
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return FailureValidation
		}
		return FailureRemote
	}
}
