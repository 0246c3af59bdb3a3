package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/frahmantamala/research-vault/internal"
	researchDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/research"
	"github.com/frahmantamala/research-vault/internal/research"
)

type ResearchRepository struct {
	db *gorm.DB
}

func NewResearchRepository(db *gorm.DB) *ResearchRepository {
	return &ResearchRepository{db: db}
}

func (r *ResearchRepository) Create(ctx context.Context, doc *research.Document) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(research.ToDataModel(doc)).Error
}

func (r *ResearchRepository) GetByID(ctx context.Context, id string) (*research.Document, error) {
	var row researchDatamodel.Document
	err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, err
	}
	return research.FromDataModel(&row), nil
}

// List applies the visibility scope as one grouped condition so category and search narrow it
// instead of widening it.
func (r *ResearchRepository) List(ctx context.Context, filter research.ListFilter) ([]*research.Document, int64, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&researchDatamodel.Document{})
	if filter.ViewerID == "" {
		query = query.Where("is_public = ?", true)
	} else {
		query = query.Where(db.Where("is_public = ?", true).Or("owner_id = ?", filter.ViewerID))
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where(db.Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern).
			Or("LOWER(description) LIKE ? ESCAPE '\\'", pattern))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*researchDatamodel.Document
	err := query.Preload("Owner").
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return fromRows(rows), total, nil
}

func (r *ResearchRepository) ListByOwner(ctx context.Context, ownerID string) ([]*research.Document, error) {
	var rows []*researchDatamodel.Document
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *ResearchRepository) ListByIDs(ctx context.Context, ids []string) ([]*research.Document, error) {
	if len(ids) == 0 {
		return []*research.Document{}, nil
	}

	var rows []*researchDatamodel.Document
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *ResearchRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&researchDatamodel.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrDocumentNotFound
	}
	return nil
}

// ListWithoutNotarization returns documents that have no record of the given type, oldest first.
func (r *ResearchRepository) ListWithoutNotarization(ctx context.Context, txType string, limit int) ([]*research.Document, error) {
	var rows []*researchDatamodel.Document
	query := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM notarizations n WHERE n.document_id = documents.id AND n.tx_type = ?)", txType).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func fromRows(rows []*researchDatamodel.Document) []*research.Document {
	docs := make([]*research.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, research.FromDataModel(row))
	}
	return docs
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
