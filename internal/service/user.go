package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/metrics"
	"github.com/loanwise/loanwise/internal/model"
	"github.com/loanwise/loanwise/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 256
	maxFullNameLength = 255
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id, fullName string) (*model.User, error)
}

// IdentityCache caches authenticated identities keyed by token hash.
type IdentityCache interface {
	GetIdentity(ctx context.Context, tokenHash string) (*model.Identity, error)
	SetIdentity(ctx context.Context, tokenHash string, id *model.Identity, tokenExpiry time.Time) error
}

// UserService handles registration, login and token authentication.
type UserService struct {
	store   UserStore
	tokens  *auth.TokenService
	cache   IdentityCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewUserService creates a UserService. cache may be nil.
func NewUserService(store UserStore, tokens *auth.TokenService, cache IdentityCache, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:   store,
		tokens:  tokens,
		cache:   cache,
		metrics: recorder,
		logger:  logger,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	IsSuperuser bool
}

// Register creates an active account with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if n := len(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, ErrWeakPassword
	}
	fullName := strings.TrimSpace(input.FullName)
	if len(fullName) > maxFullNameLength {
		return nil, ErrInvalidName
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:             ulid.Make().String(),
		Email:          email,
		HashedPassword: hash,
		FullName:       fullName,
		IsActive:       true,
		IsSuperuser:    input.IsSuperuser,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return user, nil
}

// EnsureSuperuser creates the superuser account if the email is unused.
// The second return reports whether an account was created.
func (s *UserService) EnsureSuperuser(ctx context.Context, input RegisterInput) (*model.User, bool, error) {
	existing, err := s.store.GetUserByEmail(ctx, input.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	input.IsSuperuser = true
	user, err := s.Register(ctx, input)
	if errors.Is(err, ErrEmailTaken) {
		// Created concurrently.
		existing, err = s.store.GetUserByEmail(ctx, input.Email)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Login verifies credentials and issues an access token. Unknown email,
// wrong password and inactive account all return auth.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*auth.Token, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		auth.BurnVerify(password)
		s.metrics.IncAuthFailure("bad_credentials")
		return nil, auth.ErrUnauthorized
	}

	ok, err := auth.VerifyPassword(password, user.HashedPassword)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok || !user.IsActive {
		s.metrics.IncAuthFailure("bad_credentials")
		return nil, auth.ErrUnauthorized
	}

	return s.tokens.Issue(user.ID)
}

// Authenticate validates a bearer token and returns the caller.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.metrics.IncAuthFailure("invalid_token")
		return nil, err
	}

	key := auth.QuickHash(token)
	if s.cache != nil {
		id, err := s.cache.GetIdentity(ctx, key)
		if err != nil {
			s.logger.Warn("identity cache read failed", "error", err)
		}
		if id != nil && id.UserID == claims.Subject {
			s.metrics.IncIdentityCacheHit()
			return id, nil
		}
		s.metrics.IncIdentityCacheMiss()
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAuthFailure("unknown_user")
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !user.IsActive {
		s.metrics.IncAuthFailure("inactive_user")
		return nil, auth.ErrUnauthorized
	}

	id := user.Identity()
	id.TokenID = claims.ID
	if s.cache != nil {
		if err := s.cache.SetIdentity(ctx, key, id, claims.ExpiresAt.Time); err != nil {
			s.logger.Warn("identity cache write failed", "error", err)
		}
	}
	return id, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return user, nil
}

// UpdateMe changes the caller's full name.
func (s *UserService) UpdateMe(ctx context.Context, userID, fullName string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if len(fullName) > maxFullNameLength {
		return nil, ErrInvalidName
	}

	user, err := s.store.UpdateUserProfile(ctx, userID, fullName)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || len(raw) > 255 {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(raw), nil
}
