package file

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is the metadata row for one stored blob.
type File struct {
	ID        uuid.UUID  `json:"id"`
	ContentID string     `json:"-"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Folder is a logical container. Folders have no blob.
type Folder struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	SizeBytes int64      `json:"size_bytes"`
	MimeType  string     `json:"mime_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Entry is one row of a listing.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsDirectory bool      `json:"is_directory"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func folderEntry(f Folder) Entry {
	return Entry{ID: f.ID, Name: f.Name, IsDirectory: true, Path: f.Path, Size: f.SizeBytes, UpdatedAt: f.UpdatedAt}
}

func fileEntry(f File) Entry {
	return Entry{ID: f.ID, Name: f.Name, Path: f.Path, Size: f.SizeBytes, UpdatedAt: f.UpdatedAt}
}

// Result is the response envelope for storage operations.
type Result struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	FileName string      `json:"file_name,omitempty"`
	File     *File       `json:"file,omitempty"`
	Folder   *Folder     `json:"folder,omitempty"`
	Deleted  []uuid.UUID `json:"deleted,omitempty"`
}

// BatchMode selects how DeleteMany treats missing ids.
type BatchMode int

const (
	// BatchAtomic checks every id first and deletes nothing if one is missing.
	BatchAtomic BatchMode = iota
	// BatchFailFast deletes in order and stops at the first missing id, keeping earlier deletions.
	BatchFailFast
)

func (m BatchMode) String() string {
	if m == BatchFailFast {
		return "fail_fast"
	}
	return "atomic"
}

// ParseBatchMode accepts "atomic" or "fail_fast". Empty input yields def.
func ParseBatchMode(s string, def BatchMode) (BatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "atomic":
		return BatchAtomic, nil
	case "fail_fast", "failfast":
		return BatchFailFast, nil
	default:
		return def, fmt.Errorf("unknown batch mode %q", s)
	}
}

// BatchError names the id that stopped a DeleteMany.
type BatchError struct {
	FileID uuid.UUID
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("file %s: %v", e.FileID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
