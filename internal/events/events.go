// Package events publishes storage lifecycle notifications. Orphaned
// blob notices give an out-of-band reclaimer something to sweep.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	FileUploaded   = "file.uploaded"
	FileDeleted    = "file.deleted"
	AccountDeleted = "account.deleted"
	BlobOrphaned   = "blob.orphaned"
)

// Event is the message body published for every lifecycle change.
type Event struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"type"`
	OwnerID   uuid.UUID `json:"owner_id"`
	FileID    uuid.UUID `json:"file_id,omitzero"`
	ContentID string    `json:"content_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps an event with an id and the current time.
func New(eventType string, ownerID uuid.UUID) Event {
	return Event{
		ID:      uuid.New(),
		Type:    eventType,
		OwnerID: ownerID,
		At:      time.Now().UTC(),
	}
}

// Publisher accepts events without blocking the caller's protocol.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards events.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) {}
