package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/abduss/filevault/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt limit
	maxUsernameLength = 64
	tokenAudience     = "filevault-api"
)

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, changes UserChanges) (int64, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service encapsulates account use cases.
type Service struct {
	store    userStore
	cfg      config.AuthConfig
	log      *zap.Logger
	nowFunc  func() time.Time
	idIssuer string
	parser   *jwt.Parser
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		log:      log.Named("auth"),
		nowFunc:  time.Now,
		idIssuer: "filevault",
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithAudience(tokenAudience),
		),
	}
}

// RegisterInput carries data for user registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Username string
	Password string
}

// AuthResult contains the user and a freshly issued access token.
type AuthResult struct {
	User  User
	Token AccessToken
}

// UserClaims describes the validated identity extracted from an access token.
type UserClaims struct {
	UserID    uuid.UUID
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Register creates a new user after checking username and email are free.
func (s *Service) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if err := validateRegistration(username, email, input.Password); err != nil {
		return AuthResult{}, err
	}

	taken, err := s.store.UsernameExists(ctx, username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check username: %w", err)
	}
	if !taken {
		taken, err = s.store.EmailExists(ctx, email)
		if err != nil {
			return AuthResult{}, fmt.Errorf("check email: %w", err)
		}
	}
	if taken {
		return AuthResult{}, ErrDuplicateUser
	}

	hashedPassword, err := hashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, hashedPassword)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return AuthResult{}, ErrDuplicateUser
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issueToken(user)
}

// Login authenticates credentials, records the login time and issues a token.
func (s *Service) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" || len(input.Password) > maxPasswordLength {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.findLoginUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	now := s.nowFunc().UTC()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return s.issueToken(user)
}

// Profile returns the user without the password hash.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return user.SafeUser(), nil
}

// UpdateProfile applies the non-empty fields of patch that differ from the stored user.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (UpdateOutcome, error) {
	current, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return NothingChanged, err
	}

	var changes UserChanges
	dirty := false

	if username := strings.TrimSpace(patch.Username); username != "" && username != current.Username {
		if len(username) > maxUsernameLength {
			return NothingChanged, ErrInvalidProfile
		}
		changes.Username = &username
		dirty = true
	}

	if email := normalizeEmail(patch.Email); email != "" && email != current.Email {
		if !validEmail(email) {
			return NothingChanged, ErrInvalidProfile
		}
		changes.Email = &email
		dirty = true
	}

	if patch.Password != "" {
		if len(patch.Password) < minPasswordLength || len(patch.Password) > maxPasswordLength {
			return NothingChanged, ErrInvalidProfile
		}
		if bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(patch.Password)) != nil {
			hashed, err := hashPassword(patch.Password, s.cfg.BcryptCost)
			if err != nil {
				return NothingChanged, fmt.Errorf("hash password: %w", err)
			}
			changes.PasswordHash = &hashed
			dirty = true
		}
	}

	if !dirty {
		return NothingChanged, nil
	}

	rows, err := s.store.UpdateUser(ctx, userID, changes)
	if err != nil {
		return NothingChanged, err
	}
	if rows == 0 {
		return NothingChanged, ErrUserNotFound
	}

	s.log.Info("user profile updated", zap.String("user_id", userID.String()))
	return Updated, nil
}

// ValidateAccessToken verifies the token signature and extracts user claims.
func (s *Service) ValidateAccessToken(tokenString string) (UserClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return UserClaims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.AccessTokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return UserClaims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Before(s.nowFunc()) {
		return UserClaims{}, ErrUnauthorized
	}

	result := UserClaims{UserID: userID, ExpiresAt: exp.Time}
	result.Username, _ = claims["username"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}
	return result, nil
}

func (s *Service) issueToken(user User) (AuthResult, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"iss":      s.idIssuer,
		"aud":      tokenAudience,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"username": user.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		User:  user.SafeUser(),
		Token: AccessToken{Token: signed, ExpiresAt: expiresAt},
	}, nil
}

func hashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("password exceeds maximum length of %d characters", maxPasswordLength)
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// findLoginUser looks the identifier up as a username first and falls back to email.
func (s *Service) findLoginUser(ctx context.Context, identifier string) (User, error) {
	user, err := s.store.FindUserByUsername(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) && strings.Contains(identifier, "@") {
		return s.store.FindUserByEmail(ctx, identifier)
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateRegistration(username, email, password string) error {
	if username == "" || len(username) > maxUsernameLength {
		return ErrInvalidProfile
	}
	if !validEmail(email) {
		return ErrInvalidProfile
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidProfile
	}
	return nil
}
