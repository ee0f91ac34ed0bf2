package file

import (
	"context"
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	maxFolderDepth = 1024
	maxNameLength  = 255
)

type folderLookup interface {
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error)
}

// JoinPath appends name to parent and collapses repeated separators.
// An empty parent yields a root path.
func JoinPath(parent, name string) string {
	joined := "/" + parent + "/" + name

	var b strings.Builder
	b.Grow(len(joined))
	prevSlash := false
	for _, r := range joined {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

// ResolvePath walks the parent chain of folderID to the root and returns its path.
// A repeated folder or a chain deeper than maxFolderDepth yields ErrCorruptHierarchy.
func ResolvePath(ctx context.Context, folders folderLookup, ownerID, folderID uuid.UUID) (string, error) {
	visited := make(map[uuid.UUID]struct{})
	var names []string

	current := folderID
	for {
		if _, seen := visited[current]; seen {
			return "", ErrCorruptHierarchy
		}
		if len(visited) >= maxFolderDepth {
			return "", ErrCorruptHierarchy
		}
		visited[current] = struct{}{}

		folder, err := folders.GetFolder(ctx, ownerID, current)
		if err != nil {
			// a missing ancestor of an existing folder means the chain is broken
			if len(names) > 0 && errors.Is(err, ErrFolderNotFound) {
				return "", ErrCorruptHierarchy
			}
			return "", err
		}
		names = append(names, folder.Name)

		if folder.ParentID == nil {
			break
		}
		current = *folder.ParentID
	}

	resolved := ""
	for i := len(names) - 1; i >= 0; i-- {
		resolved = JoinPath(resolved, names[i])
	}
	return resolved, nil
}

// sanitizeName reduces a client-supplied name to a single NFC path element.
func sanitizeName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(strings.TrimSpace(name)))
	name = norm.NFC.String(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidName
	}
	if len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}
