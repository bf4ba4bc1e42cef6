// Package authpw provides username/password authentication for accounts
// provisioned by the admin user.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linkboard/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account disabled")
)

// UserStore defines the storage the auth service needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (int64, error)
}

type Service struct {
	store UserStore
}

func NewService(userStore UserStore) *Service {
	return &Service{store: userStore}
}

// SignIn authenticates a user by username and password. Disabled accounts
// are rejected even with a correct password.
func (s *Service) SignIn(ctx context.Context, username, password string) (store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		// Indistinguishable from a bad password on purpose.
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if user.Status != store.UserStatusActive {
		return store.User{}, ErrAccountDisabled
	}

	return user, nil
}

// CreateUser provisions a new account. Only the admin surface calls this.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, errors.New("username is required")
	}
	if len(password) < 8 {
		return 0, errors.New("password must be at least 8 characters")
	}
	if role == "" {
		role = store.RoleUser
	}
	if role != store.RoleUser && role != store.RoleAdmin {
		return 0, fmt.Errorf("unknown role %q", role)
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return 0, errors.New("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateUser(ctx, store.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Status:       store.UserStatusActive,
	})
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}
