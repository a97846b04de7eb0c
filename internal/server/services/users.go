// Package services implements the application logic between the HTTP layer
// and the repositories: account lifecycle, vault operations with envelope
// encryption, folder management, guardian edges, and account recovery.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/server/auth"
	"github.com/avorobjovs/keyguard/internal/server/config"
	"github.com/avorobjovs/keyguard/internal/server/models"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 100
)

// validatePassword enforces the login password length bounds shared by
// signup and guardian recovery.
func validatePassword(password string) error {
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return fmt.Errorf("%w: password must be between %d and %d characters",
			common.ErrValidation, passwordMinLength, passwordMaxLength)
	}
	return nil
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.JWTSecret),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
	}
}

// SignUp registers a new account. The password is stored only as a bcrypt
// hash; the plaintext doubles as vault key material but that derivation
// happens per request, never here.
func (s *UserService) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", common.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrInternal
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already taken", common.ErrConflict)
		}
		return nil, common.ErrInternal
	}

	return user, nil
}

// Login verifies the username/password pair and mints a session token. An
// unknown username and a wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil, common.ErrUnauthorized
		}
		return "", nil, common.ErrInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrInternal
	}

	return token, user, nil
}

// GetByID returns the account profile for an authenticated user id.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	return user, nil
}
