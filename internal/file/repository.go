package file

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/filevault/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const repoTimeout = 5 * time.Second

const (
	fileColumns   = `id, content_id, owner_id, parent_id, name, path, size_bytes, created_at, updated_at`
	folderColumns = `id, owner_id, parent_id, name, path, size_bytes, mime_type, created_at, updated_at`
)

var errOwnerMissing = errors.New("owner row not found")

// Repository provides access to file and folder metadata.
type Repository struct {
	db storage.DB
}

// NewRepository builds a new file repository.
func NewRepository(db storage.DB) *Repository {
	return &Repository{db: db}
}

// CreateFile inserts metadata for a stored blob.
func (r *Repository) CreateFile(ctx context.Context, f File) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO files (content_id, owner_id, parent_id, name, path, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + fileColumns + `;`

	stored, err := scanFile(r.db.QueryRow(ctx, query, f.ContentID, f.OwnerID, f.ParentID, f.Name, f.Path, f.SizeBytes))
	if err != nil {
		if missing := missingReference(err, f.ParentID); missing != nil {
			return File{}, missing
		}
		return File{}, fmt.Errorf("create file metadata: %w", err)
	}
	return stored, nil
}

// CreateFolder inserts a folder row.
func (r *Repository) CreateFolder(ctx context.Context, f Folder) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO folders (owner_id, parent_id, name, path, size_bytes, mime_type)
VALUES ($1, $2, $3, $4, 0, '')
RETURNING ` + folderColumns + `;`

	stored, err := scanFolder(r.db.QueryRow(ctx, query, f.OwnerID, f.ParentID, f.Name, f.Path))
	if err != nil {
		if missing := missingReference(err, f.ParentID); missing != nil {
			return Folder{}, missing
		}
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return stored, nil
}

// ListFiles returns the owner's files in insertion order.
func (r *Repository) ListFiles(ctx context.Context, ownerID uuid.UUID) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at, id;`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// ListFolders returns the owner's folders in insertion order.
func (r *Repository) ListFolders(ctx context.Context, ownerID uuid.UUID) ([]Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 ORDER BY created_at, id;`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// GetFile fetches a single file ensuring ownership.
func (r *Repository) GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2;`

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("get file metadata: %w", err)
	}
	return f, nil
}

// FindFileByName returns the oldest of the owner's files with the given display name.
func (r *Repository) FindFileByName(ctx context.Context, ownerID uuid.UUID, name string) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND name = $2 ORDER BY created_at, id LIMIT 1;`

	f, err := scanFile(r.db.QueryRow(ctx, query, ownerID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("find file by name: %w", err)
	}
	return f, nil
}

// GetFolder fetches a single folder ensuring ownership.
func (r *Repository) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND owner_id = $2;`

	f, err := scanFolder(r.db.QueryRow(ctx, query, folderID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Folder{}, ErrFolderNotFound
		}
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

// DeleteFile removes a file row. A missing row is not an error; deleted reports whether one existed.
func (r *Repository) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1 AND owner_id = $2;`, fileID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete file metadata: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteOwner removes the user and every file and folder they own in one transaction
// and returns the content ids of the removed files.
func (r *Repository) DeleteOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var contentIDs []string
	err := storage.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		// inserts take KEY SHARE on the owner row, so this waits for in-flight uploads
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE;`, ownerID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errOwnerMissing
			}
			return fmt.Errorf("lock owner: %w", err)
		}

		rows, err := tx.Query(ctx, `DELETE FROM files WHERE owner_id = $1 RETURNING content_id;`, ownerID)
		if err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("delete files: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM folders WHERE owner_id = $1;`, ownerID); err != nil {
			return fmt.Errorf("delete folders: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1;`, ownerID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errOwnerMissing
		}

		contentIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contentIDs, nil
}

// missingReference maps a foreign key violation on insert to the row that vanished.
// Without a constraint name a set parent is the more likely culprit.
func missingReference(err error, parentID *uuid.UUID) error {
	constraint, ok := storage.ForeignKeyViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "parent_id"):
		return ErrParentNotFound
	case strings.Contains(constraint, "owner_id"):
		return ErrOwnerNotFound
	case parentID != nil:
		return ErrParentNotFound
	default:
		return ErrOwnerNotFound
	}
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(
		&f.ID,
		&f.ContentID,
		&f.OwnerID,
		&f.ParentID,
		&f.Name,
		&f.Path,
		&f.SizeBytes,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func scanFolder(row pgx.Row) (Folder, error) {
	var f Folder
	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.ParentID,
		&f.Name,
		&f.Path,
		&f.SizeBytes,
		&f.MimeType,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}
