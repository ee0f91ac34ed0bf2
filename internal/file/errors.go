package file

import "github.com/abduss/filevault/internal/fault"

var (
	// ErrFileNotFound signals that the file could not be located for the owner.
	ErrFileNotFound = fault.New(fault.NotFound, "file not found")
	// ErrFolderNotFound signals that the folder could not be located for the owner.
	ErrFolderNotFound = fault.New(fault.NotFound, "folder not found")
	// ErrOwnerNotFound signals that the owning user no longer exists.
	ErrOwnerNotFound = fault.New(fault.NotFound, "owner not found")
	// ErrParentNotFound signals that the requested parent folder does not exist for the owner.
	ErrParentNotFound = fault.New(fault.NotFound, "parent folder not found")
	// ErrInvalidName signals an empty or unusable display name.
	ErrInvalidName = fault.New(fault.Validation, "invalid name")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = fault.New(fault.Validation, "file too large")
	// ErrEmptyBatch signals a delete-many request without ids.
	ErrEmptyBatch = fault.New(fault.Validation, "no file ids supplied")
	// ErrCorruptHierarchy signals a cycle or runaway depth in the folder parent chain.
	ErrCorruptHierarchy = fault.New(fault.CorruptHierarchy, "folder hierarchy is corrupt")
	// ErrAccountDeletionFailed signals that account deletion was rolled back.
	ErrAccountDeletionFailed = fault.New(fault.AccountDeletionFailed, "account deletion failed")
)
