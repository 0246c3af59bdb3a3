package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/user"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repo Repository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailExists(ctx, dto.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, internal.ErrEmailTaken
	}

	taken, err = s.repo.UsernameExists(ctx, dto.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, internal.ErrUsernameTaken
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.NewString(),
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.issue(u)
}

// Authenticate validates credentials and returns tokens. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		s.logger.Warn("credential lookup failed", "error", err)
		return nil, internal.ErrInvalidCredentials
	}
	if u == nil {
		return nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(u.PasswordHash, dto.Password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	return s.issue(u)
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidToken
	}

	return s.issue(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, internal.ErrInvalidToken
	}
	return s.tokenGenerator.ValidateToken(tokenString, TokenTypeAccess)
}

func (s *Service) issue(u *user.User) (*AuthResult, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User: u,
		AuthTokens: AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", internal.NewValidationFieldError("password", "password must not exceed 72 bytes", internal.ErrCodeValidationFailed)
		}
		return "", err
	}
	return string(hash), nil
}
