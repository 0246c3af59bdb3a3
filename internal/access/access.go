// Package access records which users may read which private documents.
package access

import (
	"context"
	"time"

	accessDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/access"
)

// Grant authorizes one user to read one document. KeyMaterial is the wrapped document key at
// grant time and never leaves the server.
type Grant struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	UserID      string    `json:"userId"`
	KeyMaterial []byte    `json:"-"`
	GrantedAt   time.Time `json:"grantedAt"`
	User        *Grantee  `json:"user,omitempty"`
}

type Grantee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Repository interface {
	Create(ctx context.Context, g *Grant) error
	Delete(ctx context.Context, documentID, userID string) (int64, error)
	Exists(ctx context.Context, documentID, userID string) (bool, error)
	ListByDocument(ctx context.Context, documentID string) ([]*Grant, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	DocumentIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// UserLookup is the slice of the user directory the registry needs.
type UserLookup interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

func ToDataModel(g *Grant) *accessDatamodel.Grant {
	return &accessDatamodel.Grant{
		ID:          g.ID,
		DocumentID:  g.DocumentID,
		UserID:      g.UserID,
		KeyMaterial: g.KeyMaterial,
		GrantedAt:   g.GrantedAt,
	}
}

func FromDataModel(g *accessDatamodel.Grant) *Grant {
	out := &Grant{
		ID:          g.ID,
		DocumentID:  g.DocumentID,
		UserID:      g.UserID,
		KeyMaterial: g.KeyMaterial,
		GrantedAt:   g.GrantedAt,
	}
	if g.User != nil {
		out.User = &Grantee{ID: g.User.ID, Username: g.User.Username, Email: g.User.Email}
	}
	return out
}
