package file

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/abduss/filevault/internal/blob"
	"github.com/abduss/filevault/internal/events"
	"github.com/google/uuid"
)

// fakeRepo is an in-memory metadataStore.
type fakeRepo struct {
	mu             sync.Mutex
	users          map[uuid.UUID]bool
	files          []File
	folders        []Folder
	createFileErr  error
	deleteOwnerErr error
	clock          time.Time
}

func newFakeRepo(owners ...uuid.UUID) *fakeRepo {
	r := &fakeRepo{users: make(map[uuid.UUID]bool), clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, o := range owners {
		r.users[o] = true
	}
	return r
}

func (r *fakeRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeRepo) CreateFile(ctx context.Context, f File) (File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createFileErr != nil {
		return File{}, r.createFileErr
	}
	if !r.users[f.OwnerID] {
		return File{}, ErrOwnerNotFound
	}
	f.ID = uuid.New()
	f.CreatedAt = r.tick()
	f.UpdatedAt = f.CreatedAt
	r.files = append(r.files, f)
	return f, nil
}

func (r *fakeRepo) CreateFolder(ctx context.Context, f Folder) (Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = r.tick()
	f.UpdatedAt = f.CreatedAt
	r.folders = append(r.folders, f)
	return f, nil
}

func (r *fakeRepo) ListFiles(ctx context.Context, ownerID uuid.UUID) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []File
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListFolders(ctx context.Context, ownerID uuid.UUID) ([]Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Folder
	for _, f := range r.folders {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.ID == fileID && f.OwnerID == ownerID {
			return f, nil
		}
	}
	return File{}, ErrFileNotFound
}

func (r *fakeRepo) FindFileByName(ctx context.Context, ownerID uuid.UUID, name string) (File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.Name == name && f.OwnerID == ownerID {
			return f, nil
		}
	}
	return File{}, ErrFileNotFound
}

func (r *fakeRepo) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.ID == folderID && f.OwnerID == ownerID {
			return f, nil
		}
	}
	return Folder{}, ErrFolderNotFound
}

func (r *fakeRepo) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.files {
		if f.ID == fileID && f.OwnerID == ownerID {
			r.files = append(r.files[:i], r.files[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) DeleteOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteOwnerErr != nil {
		return nil, r.deleteOwnerErr
	}
	if !r.users[ownerID] {
		return nil, errOwnerMissing
	}

	var contentIDs []string
	files := r.files[:0]
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			contentIDs = append(contentIDs, f.ContentID)
			continue
		}
		files = append(files, f)
	}
	r.files = files

	folders := r.folders[:0]
	for _, f := range r.folders {
		if f.OwnerID != ownerID {
			folders = append(folders, f)
		}
	}
	r.folders = folders
	delete(r.users, ownerID)
	return contentIDs, nil
}

func (r *fakeRepo) fileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// flakyStore wraps a blob store and fails deletes on demand.
type flakyStore struct {
	blob.Store
	deleteErr error
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(ctx, id)
}

// failingPutStore refuses every write.
type failingPutStore struct {
	blob.Store
}

func (failingPutStore) Put(ctx context.Context, r io.Reader) (string, int64, error) {
	return "", 0, errors.New("disk full")
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
