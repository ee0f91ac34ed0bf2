package file

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/abduss/filevault/internal/blob"
	"github.com/abduss/filevault/internal/config"
	"github.com/abduss/filevault/internal/events"
	"github.com/abduss/filevault/internal/logger"
	"github.com/abduss/filevault/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxFileSize        = 100 * 1024 * 1024 // 100MB
	defaultCleanupConcurrency = 4
)

type metadataStore interface {
	CreateFile(ctx context.Context, f File) (File, error)
	CreateFolder(ctx context.Context, f Folder) (Folder, error)
	ListFiles(ctx context.Context, ownerID uuid.UUID) ([]File, error)
	ListFolders(ctx context.Context, ownerID uuid.UUID) ([]Folder, error)
	GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (File, error)
	FindFileByName(ctx context.Context, ownerID uuid.UUID, name string) (File, error)
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error)
	DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) (bool, error)
	DeleteOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

// Service keeps the blob store and the metadata store in agreement.
type Service struct {
	repo               metadataStore
	blobs              blob.Store
	events             events.Publisher
	log                *zap.Logger
	maxFileSize        int64
	batchMode          BatchMode
	cleanupConcurrency int
}

// NewService constructs a file service.
func NewService(repo metadataStore, blobs blob.Store, publisher events.Publisher, log *zap.Logger, cfg config.FilesConfig) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	s := &Service{
		repo:               repo,
		blobs:              blobs,
		events:             publisher,
		log:                log.Named("file"),
		maxFileSize:        cfg.MaxUploadBytes,
		batchMode:          BatchAtomic,
		cleanupConcurrency: cfg.CleanupConcurrency,
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = defaultMaxFileSize
	}
	if !cfg.BatchDeleteAtomic {
		s.batchMode = BatchFailFast
	}
	if s.cleanupConcurrency <= 0 {
		s.cleanupConcurrency = defaultCleanupConcurrency
	}
	return s
}

// DefaultBatchMode is the DeleteMany mode used when a request does not pick one.
func (s *Service) DefaultBatchMode() BatchMode {
	return s.batchMode
}

// Upload stores content under a fresh content id and records it for the owner.
// If the metadata write fails the blob is removed again.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, displayName string, content io.Reader, parentID *uuid.UUID) (File, error) {
	log := logger.FromContext(ctx, s.log).With(zap.String("owner_id", ownerID.String()))

	name, err := sanitizeName(displayName)
	if err != nil {
		metrics.ObserveOperation("upload", "rejected")
		return File{}, err
	}

	filePath := JoinPath("", name)
	if parentID != nil {
		parent, err := s.repo.GetFolder(ctx, ownerID, *parentID)
		if err != nil {
			metrics.ObserveOperation("upload", "rejected")
			if errors.Is(err, ErrFolderNotFound) {
				return File{}, ErrParentNotFound
			}
			return File{}, err
		}
		filePath = JoinPath(parent.Path, name)
	}

	contentID, size, err := s.blobs.Put(ctx, io.LimitReader(content, s.maxFileSize+1))
	if err != nil {
		metrics.ObserveOperation("upload", "error")
		return File{}, fmt.Errorf("store blob: %w", err)
	}

	if size > s.maxFileSize {
		s.compensate(ctx, log, ownerID, contentID, "upload exceeded size limit")
		metrics.ObserveOperation("upload", "rejected")
		return File{}, ErrFileTooLarge
	}

	stored, err := s.repo.CreateFile(ctx, File{
		ContentID: contentID,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Path:      filePath,
		SizeBytes: size,
	})
	if err != nil {
		log.Error("record file metadata", zap.Error(err))
		s.compensate(ctx, log, ownerID, contentID, "metadata insert failed")
		metrics.ObserveOperation("upload", "error")
		return File{}, err
	}

	e := events.New(events.FileUploaded, ownerID)
	e.FileID = stored.ID
	e.ContentID = stored.ContentID
	s.events.Publish(ctx, e)

	metrics.ObserveOperation("upload", "ok")
	log.Info("file uploaded", zap.String("file_id", stored.ID.String()), zap.Int64("size_bytes", size))
	return stored, nil
}

// Download returns the file metadata and a reader over its content.
func (s *Service) Download(ctx context.Context, ownerID, fileID uuid.UUID) (File, io.ReadCloser, error) {
	f, err := s.repo.GetFile(ctx, ownerID, fileID)
	if err != nil {
		metrics.ObserveOperation("download", outcome(err))
		return File{}, nil, err
	}
	return s.open(ctx, f)
}

// DownloadByName resolves the owner's oldest file with the given display name.
func (s *Service) DownloadByName(ctx context.Context, ownerID uuid.UUID, name string) (File, io.ReadCloser, error) {
	f, err := s.repo.FindFileByName(ctx, ownerID, name)
	if err != nil {
		metrics.ObserveOperation("download", outcome(err))
		return File{}, nil, err
	}
	return s.open(ctx, f)
}

func (s *Service) open(ctx context.Context, f File) (File, io.ReadCloser, error) {
	reader, err := s.blobs.Get(ctx, f.ContentID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			logger.FromContext(ctx, s.log).Warn("metadata references a missing blob",
				zap.String("file_id", f.ID.String()),
				zap.String("content_id", f.ContentID),
			)
			metrics.ObserveOperation("download", "not_found")
			return File{}, nil, ErrFileNotFound
		}
		metrics.ObserveOperation("download", "error")
		return File{}, nil, fmt.Errorf("fetch blob: %w", err)
	}
	metrics.ObserveOperation("download", "ok")
	return f, reader, nil
}

// Delete removes the metadata row, then the blob. A blob that cannot be removed
// is reported as orphaned and the delete still succeeds.
func (s *Service) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error {
	f, err := s.repo.GetFile(ctx, ownerID, fileID)
	if err != nil {
		metrics.ObserveOperation("delete", outcome(err))
		return err
	}

	deleted, err := s.repo.DeleteFile(ctx, ownerID, fileID)
	if err != nil {
		metrics.ObserveOperation("delete", "error")
		return err
	}
	if !deleted {
		metrics.ObserveOperation("delete", "not_found")
		return ErrFileNotFound
	}

	log := logger.FromContext(ctx, s.log).With(zap.String("owner_id", ownerID.String()))
	s.removeBlob(ctx, log, ownerID, f.ContentID, "file delete")

	e := events.New(events.FileDeleted, ownerID)
	e.FileID = f.ID
	e.ContentID = f.ContentID
	s.events.Publish(ctx, e)

	metrics.ObserveOperation("delete", "ok")
	log.Info("file deleted", zap.String("file_id", fileID.String()))
	return nil
}

// DeleteByName deletes the oldest of the owner's files with the given display name.
func (s *Service) DeleteByName(ctx context.Context, ownerID uuid.UUID, name string) (File, error) {
	f, err := s.repo.FindFileByName(ctx, ownerID, name)
	if err != nil {
		metrics.ObserveOperation("delete", outcome(err))
		return File{}, err
	}
	if err := s.Delete(ctx, ownerID, f.ID); err != nil {
		return File{}, err
	}
	return f, nil
}

// DeleteMany deletes several files and returns the ids actually removed.
// The error, if any, is a *BatchError naming the id that stopped the batch.
func (s *Service) DeleteMany(ctx context.Context, ownerID uuid.UUID, fileIDs []uuid.UUID, mode BatchMode) ([]uuid.UUID, error) {
	if len(fileIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	if mode == BatchAtomic {
		fileIDs = uniqueIDs(fileIDs)
		for _, id := range fileIDs {
			if _, err := s.repo.GetFile(ctx, ownerID, id); err != nil {
				metrics.ObserveOperation("delete_many", outcome(err))
				return nil, &BatchError{FileID: id, Err: err}
			}
		}
	}

	deleted := make([]uuid.UUID, 0, len(fileIDs))
	for _, id := range fileIDs {
		if err := s.Delete(ctx, ownerID, id); err != nil {
			metrics.ObserveOperation("delete_many", outcome(err))
			return deleted, &BatchError{FileID: id, Err: err}
		}
		deleted = append(deleted, id)
	}

	metrics.ObserveOperation("delete_many", "ok")
	return deleted, nil
}

// DeleteAccount removes the user with all files and folders in one transaction,
// then deletes the blobs. Blob failures are reported as orphans and never returned.
func (s *Service) DeleteAccount(ctx context.Context, ownerID uuid.UUID) error {
	log := logger.FromContext(ctx, s.log).With(zap.String("owner_id", ownerID.String()))

	contentIDs, err := s.repo.DeleteOwner(ctx, ownerID)
	if err != nil {
		log.Error("account deletion rolled back", zap.Error(err))
		metrics.ObserveOperation("delete_account", "error")
		return fmt.Errorf("%w: %w", ErrAccountDeletionFailed, err)
	}

	cleanupCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(s.cleanupConcurrency)
	for _, contentID := range contentIDs {
		contentID := contentID
		g.Go(func() error {
			s.removeBlob(cleanupCtx, log, ownerID, contentID, "account deletion")
			return nil
		})
	}
	_ = g.Wait()

	s.events.Publish(ctx, events.New(events.AccountDeleted, ownerID))
	metrics.ObserveOperation("delete_account", "ok")
	log.Info("account deleted", zap.Int("blobs", len(contentIDs)))
	return nil
}

// CreateFolder creates a folder at the root or under parentID.
func (s *Service) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (Folder, error) {
	name, err := sanitizeName(name)
	if err != nil {
		return Folder{}, err
	}

	folderPath := JoinPath("", name)
	if parentID != nil {
		parent, err := s.repo.GetFolder(ctx, ownerID, *parentID)
		if err != nil {
			if errors.Is(err, ErrFolderNotFound) {
				return Folder{}, ErrParentNotFound
			}
			return Folder{}, err
		}
		folderPath = JoinPath(parent.Path, name)
	}

	folder, err := s.repo.CreateFolder(ctx, Folder{
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		Path:     folderPath,
	})
	if err != nil {
		metrics.ObserveOperation("create_folder", "error")
		return Folder{}, err
	}

	metrics.ObserveOperation("create_folder", "ok")
	return folder, nil
}

// ResolvePath computes the folder's path from its parent chain.
func (s *Service) ResolvePath(ctx context.Context, ownerID, folderID uuid.UUID) (string, error) {
	resolved, err := ResolvePath(ctx, s.repo, ownerID, folderID)
	if errors.Is(err, ErrCorruptHierarchy) {
		logger.FromContext(ctx, s.log).Error("folder hierarchy is corrupt",
			zap.String("owner_id", ownerID.String()),
			zap.String("folder_id", folderID.String()),
		)
	}
	return resolved, err
}

// List returns the owner's folders followed by their files.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]Entry, error) {
	folders, err := s.repo.ListFolders(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	files, err := s.repo.ListFiles(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(folders)+len(files))
	for _, f := range folders {
		entries = append(entries, folderEntry(f))
	}
	for _, f := range files {
		entries = append(entries, fileEntry(f))
	}
	return entries, nil
}

// compensate undoes a Put whose metadata was never written.
func (s *Service) compensate(ctx context.Context, log *zap.Logger, ownerID uuid.UUID, contentID, reason string) {
	err := s.blobs.Delete(context.WithoutCancel(ctx), contentID)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		metrics.ObserveCompensation(false)
		s.orphaned(ctx, log, ownerID, contentID, reason, err)
		return
	}
	metrics.ObserveCompensation(true)
	log.Debug("compensating blob delete", zap.String("content_id", contentID), zap.String("reason", reason))
}

func (s *Service) removeBlob(ctx context.Context, log *zap.Logger, ownerID uuid.UUID, contentID, reason string) {
	err := s.blobs.Delete(context.WithoutCancel(ctx), contentID)
	if err == nil || errors.Is(err, blob.ErrNotFound) {
		return
	}
	s.orphaned(ctx, log, ownerID, contentID, reason, err)
}

func (s *Service) orphaned(ctx context.Context, log *zap.Logger, ownerID uuid.UUID, contentID, reason string, cause error) {
	log.Warn("blob orphaned",
		zap.String("content_id", contentID),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	metrics.ObserveOrphanedBlob()

	e := events.New(events.BlobOrphaned, ownerID)
	e.ContentID = contentID
	e.Reason = reason
	s.events.Publish(ctx, e)
}

func outcome(err error) string {
	if errors.Is(err, ErrFileNotFound) {
		return "not_found"
	}
	return "error"
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
