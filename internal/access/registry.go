package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/research-vault/internal"
)

type Registry struct {
	repo   Repository
	users  UserLookup
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(repo Repository, users UserLookup, logger *slog.Logger) *Registry {
	return &Registry{
		repo:   repo,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Grant records that granteeID may read documentID. The pair is unique; the repository reports a
// duplicate as internal.ErrAlreadyGranted.
func (r *Registry) Grant(ctx context.Context, documentID, granteeID string, keyMaterial []byte) (*Grant, error) {
	ok, err := r.users.Exists(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up grantee: %w", err)
	}
	if !ok {
		return nil, internal.ErrUnknownUser
	}

	g := &Grant{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		UserID:      granteeID,
		KeyMaterial: append([]byte(nil), keyMaterial...),
		GrantedAt:   r.now().UTC(),
	}
	if err := r.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	r.logger.Info("access granted", "document_id", documentID, "user_id", granteeID)
	return g, nil
}

func (r *Registry) Revoke(ctx context.Context, documentID, userID string) error {
	n, err := r.repo.Delete(ctx, documentID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	if n == 0 {
		return internal.ErrGrantNotFound
	}

	r.logger.Info("access revoked", "document_id", documentID, "user_id", userID)
	return nil
}

func (r *Registry) IsAuthorized(ctx context.Context, documentID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return r.repo.Exists(ctx, documentID, userID)
}

func (r *Registry) ListGrants(ctx context.Context, documentID string) ([]*Grant, error) {
	return r.repo.ListByDocument(ctx, documentID)
}

func (r *Registry) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	return r.repo.DeleteByDocument(ctx, documentID)
}

func (r *Registry) ListDocumentIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return r.repo.DocumentIDsForUser(ctx, userID)
}
