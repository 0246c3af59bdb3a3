package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/access"
	accessDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/access"
)

type AccessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) Create(ctx context.Context, g *access.Grant) error {
	err := r.db.WithContext(ctx).Create(access.ToDataModel(g)).Error
	if isDuplicate(err) {
		return internal.ErrAlreadyGranted
	}
	return err
}

func (r *AccessRepository) Delete(ctx context.Context, documentID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		Delete(&accessDatamodel.Grant{})
	return res.RowsAffected, res.Error
}

func (r *AccessRepository) Exists(ctx context.Context, documentID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&accessDatamodel.Grant{}).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *AccessRepository) ListByDocument(ctx context.Context, documentID string) ([]*access.Grant, error) {
	var rows []*accessDatamodel.Grant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("document_id = ?", documentID).
		Order("granted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	grants := make([]*access.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, access.FromDataModel(row))
	}
	return grants, nil
}

func (r *AccessRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&accessDatamodel.Grant{})
	return res.RowsAffected, res.Error
}

func (r *AccessRepository) DocumentIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&accessDatamodel.Grant{}).
		Where("user_id = ?", userID).
		Order("granted_at DESC").
		Pluck("document_id", &ids).Error
	return ids, err
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
