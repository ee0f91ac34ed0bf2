package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/filevault/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultQueryTimeout = 5 * time.Second

const userColumns = `id, username, email, password_hash, last_login, created_at, updated_at`

// UserChanges lists the columns to overwrite. Nil fields are left untouched.
type UserChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Repository provides database access for user accounts.
type Repository struct {
	db storage.DBTX
}

// NewRepository constructs a new Repository.
func NewRepository(db storage.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateUser persists a new user record.
func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)
RETURNING ` + userColumns + `;`

	user, err := scanUser(r.db.QueryRow(ctx, query, username, email, passwordHash))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// UsernameExists reports whether the username is taken.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1);`, username)
}

// EmailExists reports whether the email is taken. Emails compare case-insensitively.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1);`, normalizeEmail(email))
}

func (r *Repository) exists(ctx context.Context, query string, arg string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// FindUserByID fetches a user by identifier.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
}

// FindUserByUsername fetches a user by username.
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1;`, username)
}

// FindUserByEmail fetches a user by email, ignoring case and surrounding space.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1;`, normalizeEmail(email))
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateUser writes only the supplied columns in one statement and returns the rows affected.
func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, changes UserChanges) (int64, error) {
	b := newUpdateBuilder("users")
	if changes.Username != nil {
		b.Set("username", *changes.Username)
	}
	if changes.Email != nil {
		b.Set("email", *changes.Email)
	}
	if changes.PasswordHash != nil {
		b.Set("password_hash", *changes.PasswordHash)
	}
	if b.Empty() {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query, args := b.Build("id", id)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("update user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2;`, at, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
