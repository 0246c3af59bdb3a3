package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/research-vault/internal"
)

type Repository interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// Service is the user directory consulted by auth, grants and the access registry.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// GetByID returns internal.ErrUnknownUser when no user has the id.
func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, internal.ErrUnknownUser
	}
	return u, nil
}

// GetByEmail matches the address case-insensitively.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, internal.ErrUnknownUser
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if u == nil {
		return nil, internal.ErrUnknownUser
	}
	return u, nil
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	return s.repo.Exists(ctx, userID)
}
