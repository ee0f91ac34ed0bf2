package auth

import "github.com/abduss/filevault/internal/fault"

var (
	// ErrDuplicateUser indicates the username or email is already registered.
	ErrDuplicateUser = fault.New(fault.Duplicate, "username or email already exists")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = fault.New(fault.Validation, "invalid credentials")
	// ErrInvalidProfile is returned when a registration or profile field is malformed.
	ErrInvalidProfile = fault.New(fault.Validation, "invalid profile fields")
	// ErrUserNotFound signals that the user could not be located.
	ErrUserNotFound = fault.New(fault.NotFound, "user not found")
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = fault.New(fault.Validation, "unauthorized")
)
