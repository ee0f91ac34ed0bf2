// Package blob persists raw file bytes under opaque, store-generated
// content identifiers. Callers never choose the identifier, so no user
// input ever reaches a filesystem path or object name.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no blob exists for the identifier.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidID is returned for identifiers the store could not have generated.
	ErrInvalidID = errors.New("invalid content id")
)

// Store is an append-only content store.
type Store interface {
	// Put writes a new blob and returns its freshly generated identifier and size.
	Put(ctx context.Context, r io.Reader) (string, int64, error)
	// Get opens the blob for reading.
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete removes the blob.
	Delete(ctx context.Context, id string) error
	// Exists reports whether the blob is present.
	Exists(ctx context.Context, id string) (bool, error)
}

func newID() string {
	return uuid.NewString()
}

// validateID rejects anything that is not a canonical UUID string.
func validateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
