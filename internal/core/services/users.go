package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/manthysbr/labforge/internal/config"
	"github.com/manthysbr/labforge/internal/core/domain"
	"github.com/manthysbr/labforge/internal/core/ports"
)

// UserService handles registration, login, profile management, and the
// encrypted provider API key.
type UserService struct {
	logger *slog.Logger
	repo   ports.Repository
	secret *config.SecretKey
}

func NewUserService(logger *slog.Logger, repo ports.Repository, secret *config.SecretKey) *UserService {
	return &UserService{logger: logger, repo: repo, secret: secret}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return domain.User{}, &domain.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, &domain.ValidationError{Field: "email", Msg: "must be a valid email address"}
	}
	if len(password) < 8 {
		return domain.User{}, &domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           domain.UserID(uuid.New().String()),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns the user. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id domain.UserID) (domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateProfile replaces the profile and re-derives its Complete flag.
// Clients cannot set Complete directly.
func (s *UserService) UpdateProfile(ctx context.Context, id domain.UserID, profile domain.Profile) (domain.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	profile.Complete = profile.RequiredFilled()
	user.Profile = profile
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("profile updated", "user_id", id, "complete", profile.Complete)
	return user, nil
}

// SetAPIKey encrypts and stores the user's LLM provider credential. An
// empty key clears it.
func (s *UserService) SetAPIKey(ctx context.Context, id domain.UserID, apiKey string) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		user.APIKeyEncrypted = ""
	} else {
		enc, err := s.secret.Encrypt(apiKey)
		if err != nil {
			return err
		}
		user.APIKeyEncrypted = enc
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info("api key updated", "user_id", id, "cleared", apiKey == "")
	return nil
}

// MaskedAPIKey returns a display-safe form of the stored key, or "" when
// none is configured.
func (s *UserService) MaskedAPIKey(ctx context.Context, id domain.UserID) (string, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if user.APIKeyEncrypted == "" {
		return "", nil
	}
	plain, err := s.secret.Decrypt(user.APIKeyEncrypted)
	if err != nil {
		return "", err
	}
	return config.MaskSecret(plain), nil
}
