package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/validator"
)

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong
// password alike
var ErrInvalidCredentials = apperrors.NewAppError(apperrors.ErrUnauthorized, "invalid username or password", apperrors.CodeUnauthorized)

// Credentials is the signup and login request body
type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Service registers and verifies users
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewService creates a new Service
func NewService(users repository.UserRepository, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger.OrDiscard(log),
	}
}

// Signup validates the credentials and creates the account. Each broken
// username or password rule yields its own validation message.
func (s *Service) Signup(ctx context.Context, creds Credentials) (Identity, error) {
	username := strings.TrimSpace(creds.Username)

	if err := validator.ValidateUsername(username); err != nil {
		return Identity{}, apperrors.NewValidationError("username", err.Error())
	}
	if err := validator.ValidatePassword(creds.Password); err != nil {
		return Identity{}, apperrors.NewValidationError("password", err.Error())
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return Identity{}, err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return Identity{}, apperrors.NewAppError(apperrors.ErrDuplicateEntry, "username is already taken", apperrors.CodeDuplicateEntry)
		}
		return Identity{}, apperrors.NewPersistenceError("create user", err)
	}

	s.logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)), slog.String("username", user.Username))
	return Identity{UserID: user.ID, Username: user.Username}, nil
}

// Login verifies the credentials against the stored hash
func (s *Service) Login(ctx context.Context, creds Credentials) (Identity, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, apperrors.NewPersistenceError("load user", err)
	}

	match, err := ComparePassword(creds.Password, user.PasswordHash)
	if err != nil || !match {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: user.ID, Username: user.Username}, nil
}
