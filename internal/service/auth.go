package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/auth"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/repository"
)

var (
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so responses don't leak which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// RegisterInput carries the fields of a signup request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput carries the fields of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthService defines the account use cases.
type AuthService interface {
	// Register creates an account and returns it with a freshly minted token.
	Register(ctx context.Context, in RegisterInput) (*model.User, string, error)

	// Login verifies the password and returns the account with a fresh token.
	Login(ctx context.Context, in LoginInput) (*model.User, string, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if err := validateStruct(in); err != nil {
		return nil, "", err
	}

	if _, err := s.users.FindByUsername(ctx, in.Username); err == nil {
		return nil, "", ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Mint(stored.ID)
	if err != nil {
		return nil, "", fmt.Errorf("mint token: %w", err)
	}
	return stored, token, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	if err := validateStruct(in); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	ok, err := auth.CheckPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("mint token: %w", err)
	}
	return user, token, nil
}
