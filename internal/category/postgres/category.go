package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/research-vault/internal/category"
	researchDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/research"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListVisible(ctx context.Context, viewerID string) ([]*category.Category, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&researchDatamodel.Document{}).
		Select("category AS name, COUNT(*) AS document_count").
		Where("category <> ?", "")
	if viewerID == "" {
		query = query.Where("is_public = ?", true)
	} else {
		query = query.Where(db.Where("is_public = ?", true).Or("owner_id = ?", viewerID))
	}

	var categories []*category.Category
	err := query.
		Group("category").
		Order("document_count DESC, category ASC").
		Scan(&categories).Error
	return categories, err
}
