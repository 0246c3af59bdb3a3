package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	notarizationDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/notarization"
	researchDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/research"
	"github.com/frahmantamala/research-vault/internal/notary"
)

type NotaryRepository struct {
	db *gorm.DB
}

func NewNotaryRepository(db *gorm.DB) *NotaryRepository {
	return &NotaryRepository{db: db}
}

// Create refuses records for documents that no longer exist. The foreign key covers a delete that lands
// between the check and the insert.
func (r *NotaryRepository) Create(ctx context.Context, rec *notary.Record) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&researchDatamodel.Document{}).Where("id = ?", rec.DocumentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return notary.ErrDocumentGone
		}
		return tx.Create(notary.ToDataModel(rec)).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return notary.ErrDocumentGone
	}
	return err
}

// LatestForDocument returns nil, nil when the document was never anchored.
func (r *NotaryRepository) LatestForDocument(ctx context.Context, documentID string) (*notary.Record, error) {
	var row notarizationDatamodel.Notarization
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return notary.FromDataModel(&row), nil
}

func (r *NotaryRepository) LatestTxHash(ctx context.Context, documentID string) (string, error) {
	rec, err := r.LatestForDocument(ctx, documentID)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.TxHash, nil
}

func (r *NotaryRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&notarizationDatamodel.Notarization{})
	return res.RowsAffected, res.Error
}
