package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tmpSuffix = ".tmp"

// FSStore keeps blobs as files in a single flat directory named by content id.
type FSStore struct {
	root     string
	fileMode os.FileMode
}

// NewFSStore creates the root directory if needed and returns a store rooted there.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat blob root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.New("blob root is not a directory")
	}
	return &FSStore{root: root, fileMode: 0o640}, nil
}

func (s *FSStore) path(id string) string {
	return filepath.Join(s.root, id)
}

// Put streams r to a temporary file, syncs it and renames it into place.
func (s *FSStore) Put(ctx context.Context, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	id := newID()
	final := s.path(id)
	tmp, err := os.OpenFile(final+tmpSuffix, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		return "", 0, fmt.Errorf("create blob: %w", err)
	}

	size, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write blob: %w", err)
	}

	// ids are fresh UUIDs, so the rename target never exists yet.
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("commit blob: %w", err)
	}
	return id, size, nil
}

// Get opens the blob file.
func (s *FSStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob file.
func (s *FSStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Exists reports whether the blob file is present.
func (s *FSStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat blob: %w", err)
	}
}

// HealthCheck verifies the root directory is still accessible.
func (s *FSStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

var _ Store = (*FSStore)(nil)
