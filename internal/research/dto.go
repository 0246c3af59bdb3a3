package research

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/core/common/validation"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 5000
	maxCategoryLength    = 100
	maxTags              = 20
	maxTagLength         = 50

	multipartMemory = 8 << 20
)

func (in *PublishInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = validation.NormalizeTags(in.Tags)
	if in.Visibility != VisibilityPublic {
		in.Visibility = VisibilityPrivate
	}
}

func (in PublishInput) Validate(content []byte) error {
	if len(content) == 0 {
		return internal.ErrEmptyContent
	}

	v := validation.NewValidator()
	v.Field("title", in.Title).Required().MaxLengthCode(maxTitleLength, internal.ErrCodeInvalidTitle)
	v.Field("description", in.Description).MaxLength(maxDescriptionLength)
	v.Field("category", in.Category).MaxLength(maxCategoryLength)
	v.Field("tags", in.Tags).
		MaxItems(maxTags, internal.ErrCodeInvalidTags).
		EachMaxLength(maxTagLength, internal.ErrCodeInvalidTags)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UploadResponse is the only view that exposes the content reference.
type UploadResponse struct {
	*Document
	ContentRef string `json:"contentRef"`
}

type GrantRequest struct {
	UserEmail string `json:"userEmail"`
}

func (r GrantRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("userEmail", strings.TrimSpace(r.UserEmail)).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RevokeRequest struct {
	UserID string `json:"userId"`
}

func (r RevokeRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("userId", r.UserID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseUpload reads the multipart upload form. Bodies above maxSize fail with internal.ErrPayloadTooLarge.
func ParseUpload(w http.ResponseWriter, r *http.Request, maxSize int64) ([]byte, PublishInput, error) {
	var in PublishInput

	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, in, uploadError(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in = PublishInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        splitTags(r.FormValue("tags")),
		Visibility:  VisibilityFromPublic(r.FormValue("isPublic") == "true"),
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, in, internal.ErrEmptyContent
		}
		return nil, in, uploadError(err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, in, uploadError(err)
	}

	in.FileName = header.Filename
	in.ContentType = header.Header.Get("Content-Type")
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}
	return content, in, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return internal.ErrPayloadTooLarge
	}
	return internal.NewValidationError("Invalid multipart upload", internal.ErrCodeValidationFailed)
}

// splitTags accepts the comma separated form field.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return validation.NormalizeTags(strings.Split(raw, ","))
}

func ParseListQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		Page:     atoiOrZero(q.Get("page")),
		Limit:    atoiOrZero(q.Get("limit")),
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
