// Package research publishes encrypted research documents and serves them back to authorized readers.
package research

import (
	"time"

	researchDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/research"
	userDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/user"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func VisibilityFromPublic(isPublic bool) Visibility {
	if isPublic {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

// Document is one protected artifact. ContentRef and WrappedKey are written once at creation.
type Document struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Owner       *Author    `json:"owner,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Visibility  Visibility `json:"visibility"`
	ContentRef  string     `json:"-"`
	WrappedKey  []byte     `json:"-"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (d *Document) IsPublic() bool {
	return d.Visibility == VisibilityPublic
}

type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DocumentDetail is the single-document view: the document, whether the caller may download it,
// and the latest ledger anchor if one exists.
type DocumentDetail struct {
	*Document
	HasAccess bool    `json:"hasAccess"`
	TxHash    *string `json:"txHash"`
}

type PublishInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Visibility  Visibility
	FileName    string
	ContentType string
}

type ListFilter struct {
	Page     int
	Limit    int
	Category string
	Search   string
	ViewerID string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Page struct {
	Documents  []*Document `json:"researches"`
	Pagination Pagination  `json:"pagination"`
}

func ToDataModel(d *Document) *researchDatamodel.Document {
	return &researchDatamodel.Document{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Tags:        d.Tags,
		IsPublic:    d.IsPublic(),
		ContentRef:  d.ContentRef,
		WrappedKey:  d.WrappedKey,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		Size:        d.Size,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func FromDataModel(d *researchDatamodel.Document) *Document {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Document{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Owner:       authorFrom(d.Owner),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Tags:        tags,
		Visibility:  VisibilityFromPublic(d.IsPublic),
		ContentRef:  d.ContentRef,
		WrappedKey:  d.WrappedKey,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		Size:        d.Size,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func authorFrom(u *userDatamodel.User) *Author {
	if u == nil {
		return nil
	}
	return &Author{ID: u.ID, Username: u.Username}
}
