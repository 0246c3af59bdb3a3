package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/research-vault/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}
