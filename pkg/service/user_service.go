package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"urlshorten/pkg/logging"
	"urlshorten/pkg/storage"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type UserService struct {
	storage    storage.UserStorage
	issuer     TokenIssuer
	logger     *logging.Logger
	bcryptCost int
}

func NewUserService(storage storage.UserStorage, issuer TokenIssuer, logger *logging.Logger) *UserService {
	return &UserService{
		storage:    storage,
		issuer:     issuer,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

type RegisterRequest struct {
	UserID   string `json:"userid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) error {
	exists, err := s.storage.Exists(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.storage.Insert(ctx, &storage.User{
		UserID:       req.UserID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, storage.ErrDuplicateUser) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	s.logger.LogAuthEvent(ctx, "register", req.UserID, true)
	return nil
}

// IssueAccessToken checks the password and returns a signed access token.
// An unknown user and a wrong password are reported the same way.
func (s *UserService) IssueAccessToken(ctx context.Context, userID, password string) (string, error) {
	user, err := s.storage.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		s.logger.LogAuthEvent(ctx, "access_token", userID, false)
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.LogAuthEvent(ctx, "access_token", userID, false)
		return "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(userID)
	if err != nil {
		return "", err
	}
	s.logger.LogAuthEvent(ctx, "access_token", userID, true)
	return token, nil
}
