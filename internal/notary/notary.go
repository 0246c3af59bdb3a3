// Package notary anchors document events on an external ledger. Anchoring is advisory: nothing in
// the document lifecycle waits on it or fails because of it.
package notary

import (
	"context"
	"errors"
	"time"

	notarizationDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/notarization"
)

type TxType string

const (
	TxTypeUpload TxType = "UPLOAD"
	TxTypeGrant  TxType = "GRANT"
)

type Request struct {
	DocumentID string `json:"documentId"`
	ContentRef string `json:"contentRef"`
	Title      string `json:"title"`
	AuthorID   string `json:"authorId"`
	Type       TxType `json:"type"`
}

// Notarizer returns the ledger transaction hash, or "" when nothing was anchored.
type Notarizer interface {
	Notarize(ctx context.Context, req Request) (string, error)
}

type Record struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	TxType     TxType    `json:"txType"`
	TxHash     string    `json:"txHash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ErrDocumentGone is returned by Repository.Create when the document was deleted while its anchor was in flight.
var ErrDocumentGone = errors.New("document no longer exists")

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	LatestForDocument(ctx context.Context, documentID string) (*Record, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

// NoopNotarizer is used when no ledger gateway is configured.
type NoopNotarizer struct{}

func (NoopNotarizer) Notarize(context.Context, Request) (string, error) {
	return "", nil
}

func ToDataModel(r *Record) *notarizationDatamodel.Notarization {
	return &notarizationDatamodel.Notarization{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		TxType:     string(r.TxType),
		TxHash:     r.TxHash,
		CreatedAt:  r.CreatedAt,
	}
}

func FromDataModel(n *notarizationDatamodel.Notarization) *Record {
	return &Record{
		ID:         n.ID,
		DocumentID: n.DocumentID,
		TxType:     TxType(n.TxType),
		TxHash:     n.TxHash,
		CreatedAt:  n.CreatedAt,
	}
}
