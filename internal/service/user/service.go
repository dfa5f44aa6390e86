// Package user implements the identity store: registration, credential
// checks and lookup of registered callers.
package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/explainer-ai/backend/internal/model/user"
	"github.com/explainer-ai/backend/internal/store/sqlite"
)

var (
	// ErrDuplicateEmail 邮箱已被注册。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound indicates no identity exists for the given id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput covers missing or malformed registration fields.
	ErrInvalidInput = errors.New("invalid registration input")
	// ErrStorageUnavailable hides storage failures from callers.
	ErrStorageUnavailable = errors.New("identity storage unavailable")
)

// Repository persists identity rows.
type Repository interface {
	CreateUser(ctx context.Context, create *user.Account) (*user.Account, error)
	FindUserByEmail(ctx context.Context, email string) (*user.Account, error)
	GetUser(ctx context.Context, id user.ID) (*user.Account, error)
}

// Service 负责注册与登录。
type Service struct {
	repo Repository
	cost int
	now  func() time.Time
}

// NewService builds an identity service on top of repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register creates a new identity. The password is stored only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.Identity, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrInvalidInput
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.CreateUser(ctx, &user.Account{
		Identity: user.Identity{
			Username:  username,
			Email:     email,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: string(hash),
	})
	switch {
	case errors.Is(err, sqlite.ErrConflict):
		return nil, ErrDuplicateEmail
	case err != nil:
		log.Printf("[user] register email=%s failed: %v", email, err)
		return nil, ErrStorageUnavailable
	}

	log.Printf("[user] registered id=%d", account.ID)
	identity := account.Identity
	return &identity, nil
}

// Authenticate checks the credentials and returns the matching identity.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.Identity, error) {
	account, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		log.Printf("[user] authenticate lookup failed: %v", err)
		return nil, ErrStorageUnavailable
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	identity := account.Identity
	return &identity, nil
}

// Get returns the identity with the given id.
func (s *Service) Get(ctx context.Context, id user.ID) (*user.Identity, error) {
	account, err := s.repo.GetUser(ctx, id)
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		log.Printf("[user] get id=%d failed: %v", id, err)
		return nil, ErrStorageUnavailable
	}

	identity := account.Identity
	return &identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
