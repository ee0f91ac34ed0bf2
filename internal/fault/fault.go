// Package fault classifies errors returned by the storage layer so the
// transport can map them to stable messages without leaking internals.
package fault

import (
	"errors"
	"net/http"
)

// Kind is the classification of a failure.
type Kind int

const (
	// StorageFault is any blob or metadata I/O failure not otherwise classified.
	StorageFault Kind = iota
	// NotFound means the user, file, folder or parent is absent for the owner.
	NotFound
	// Duplicate means a username or email is already taken.
	Duplicate
	// Validation means a required field is missing or malformed.
	Validation
	// CorruptHierarchy means the folder parent chain contains a cycle.
	CorruptHierarchy
	// AccountDeletionFailed means the account deletion transaction was rolled back.
	AccountDeletionFailed
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Duplicate:
		return "duplicate"
	case Validation:
		return "validation"
	case CorruptHierarchy:
		return "corrupt_hierarchy"
	case AccountDeletionFailed:
		return "account_deletion_failed"
	default:
		return "storage_fault"
	}
}

// Error is a classified error with a message that is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
}

// New returns a classified sentinel error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf reports the classification of err. Unclassified errors are StorageFault.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return StorageFault
}

const internalMessage = "internal storage error"

// Message returns the caller-facing message for err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return internalMessage
}

// HTTPStatus maps the classification of err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Duplicate:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
