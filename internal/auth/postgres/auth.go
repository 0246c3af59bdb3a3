package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/research-vault/internal"
	userDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/research-vault/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateUser inserts the user. A unique violation that slipped past the existence checks is
// reported against the column it hit.
func (r *Repository) CreateUser(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Create(user.ToDataModel(u)).Error
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "username") {
			return internal.ErrUsernameTaken
		}
		return internal.ErrEmailTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrEmailTaken
	}
	return err
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (r *Repository) GetByID(ctx context.Context, userID string) (*user.User, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "LOWER(username) = ?", strings.ToLower(username))
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where(query, arg).Count(&count).Error
	return count > 0, err
}
