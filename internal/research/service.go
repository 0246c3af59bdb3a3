package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/access"
	"github.com/frahmantamala/research-vault/internal/blobstore"
	"github.com/frahmantamala/research-vault/internal/cipher"
	"github.com/frahmantamala/research-vault/internal/core/events"
	"github.com/frahmantamala/research-vault/internal/user"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Repository is the document registry.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]*Document, int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Document, error)
	Delete(ctx context.Context, id string) error
}

type AccessRegistry interface {
	Grant(ctx context.Context, documentID, granteeID string, keyMaterial []byte) (*access.Grant, error)
	Revoke(ctx context.Context, documentID, userID string) error
	IsAuthorized(ctx context.Context, documentID, userID string) (bool, error)
	ListGrants(ctx context.Context, documentID string) ([]*access.Grant, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	ListDocumentIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// NotarizationRecords exposes the ledger anchors kept for each document.
type NotarizationRecords interface {
	LatestTxHash(ctx context.Context, documentID string) (string, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

// Pool runs CPU-bound work off the request goroutine.
type Pool interface {
	Do(ctx context.Context, fn func() error) error
}

type Dependencies struct {
	Repo            Repository
	Access          AccessRegistry
	Users           UserDirectory
	Store           blobstore.Store
	Cipher          cipher.Engine
	Pool            Pool
	Events          events.Publisher
	Notarizations   NotarizationRecords
	Logger          *slog.Logger
	RegistryTimeout time.Duration
	StorageTimeout  time.Duration
}

// Service is the protection core: every read and write of document content goes through it.
type Service struct {
	repo            Repository
	access          AccessRegistry
	users           UserDirectory
	store           blobstore.Store
	cipher          cipher.Engine
	pool            Pool
	events          events.Publisher
	notarizations   NotarizationRecords
	logger          *slog.Logger
	registryTimeout time.Duration
	storageTimeout  time.Duration
	now             func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		repo:            deps.Repo,
		access:          deps.Access,
		users:           deps.Users,
		store:           deps.Store,
		cipher:          deps.Cipher,
		pool:            deps.Pool,
		events:          deps.Events,
		notarizations:   deps.Notarizations,
		logger:          deps.Logger,
		registryTimeout: deps.RegistryTimeout,
		storageTimeout:  deps.StorageTimeout,
		now:             time.Now,
	}
}

// Publish encrypts content under a fresh key, stores the ciphertext, then commits the document row.
// A failure before the commit leaves at most an orphaned blob, never a row without content.
func (s *Service) Publish(ctx context.Context, ownerID string, content []byte, in PublishInput) (*Document, error) {
	in.Normalize()
	if err := in.Validate(content); err != nil {
		return nil, err
	}

	var (
		key        cipher.Key
		ciphertext []byte
		wrapped    []byte
	)
	defer func() {
		key.Wipe()
		clear(ciphertext)
	}()

	err := s.pool.Do(ctx, func() error {
		k, err := s.cipher.GenerateKey()
		if err != nil {
			return err
		}
		key = k
		ciphertext, err = s.cipher.Encrypt(content, key)
		return err
	})
	if err != nil {
		return nil, cryptoFailure(err, "encrypt content")
	}

	ref, err := s.putBlob(ctx, ciphertext)
	if err != nil {
		s.logger.Error("failed to store ciphertext", "owner_id", ownerID, "error", err)
		return nil, internal.ErrStorage.Wrap(err)
	}

	err = s.pool.Do(ctx, func() error {
		var err error
		wrapped, err = s.cipher.WrapKey(key)
		return err
	})
	if err != nil {
		s.discardBlob(ref)
		return nil, cryptoFailure(err, "wrap key")
	}

	now := s.now().UTC()
	doc := &Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		Visibility:  in.Visibility,
		ContentRef:  ref,
		WrappedKey:  wrapped,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        int64(len(content)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	err = s.repo.Create(rctx, doc)
	cancel()
	if err != nil {
		s.discardBlob(ref)
		return nil, registryFailure(err)
	}

	publishedTotal.WithLabelValues(string(doc.Visibility)).Inc()
	s.logger.Info("document published",
		"document_id", doc.ID,
		"owner_id", ownerID,
		"visibility", doc.Visibility,
		"size", doc.Size,
		"content_ref", ref)

	if err := s.events.Publish(ctx, events.NewDocumentPublishedEvent(doc.ID, ownerID, doc.Title, ref)); err != nil {
		s.logger.Warn("failed to dispatch publish event", "document_id", doc.ID, "error", err)
	}

	return doc, nil
}

// Fetch returns the plaintext of a document the requester may read. An empty requesterID is anonymous.
func (s *Service) Fetch(ctx context.Context, documentID, requesterID string) (*Document, []byte, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.authorize(ctx, doc, requesterID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		fetchesTotal.WithLabelValues("forbidden").Inc()
		return nil, nil, internal.ErrForbidden
	}

	sctx, cancel := internal.WithTimeout(ctx, s.storageTimeout)
	ciphertext, err := s.store.Get(sctx, doc.ContentRef)
	cancel()
	if err != nil {
		fetchesTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("failed to read ciphertext", "document_id", doc.ID, "content_ref", doc.ContentRef, "error", err)
		return nil, nil, internal.ErrStorage.Wrap(err)
	}

	var plaintext []byte
	err = s.pool.Do(ctx, func() error {
		key, err := s.cipher.UnwrapKey(doc.WrappedKey)
		if err != nil {
			return internal.ErrKeyUnwrap.Wrap(err)
		}
		defer key.Wipe()

		plaintext, err = s.cipher.Decrypt(ciphertext, key)
		if err != nil {
			return internal.ErrDecryption.Wrap(err)
		}
		return nil
	})
	if err != nil {
		fetchesTotal.WithLabelValues("crypto_error").Inc()
		if errors.Is(err, internal.ErrKeyUnwrap) || errors.Is(err, internal.ErrDecryption) {
			s.logger.Error("document could not be opened", "document_id", doc.ID, "error", err, "alert", true)
			return nil, nil, err
		}
		return nil, nil, cryptoFailure(err, "decrypt content")
	}

	fetchesTotal.WithLabelValues("ok").Inc()
	return doc, plaintext, nil
}

// GetDetail reports access with the same rule Fetch enforces, without decrypting anything.
func (s *Service) GetDetail(ctx context.Context, documentID, requesterID string) (*DocumentDetail, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	hasAccess, err := s.authorize(ctx, doc, requesterID)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{Document: doc, HasAccess: hasAccess}

	if s.notarizations != nil {
		rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
		txHash, err := s.notarizations.LatestTxHash(rctx, doc.ID)
		cancel()
		if err != nil {
			s.logger.Warn("failed to load notarization", "document_id", doc.ID, "error", err)
		} else if txHash != "" {
			detail.TxHash = &txHash
		}
	}

	return detail, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	filter = normalizeFilter(filter)

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	docs, total, err := s.repo.List(rctx, filter)
	if err != nil {
		return nil, registryFailure(err)
	}

	return &Page{
		Documents: docs,
		Pagination: Pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		},
	}, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*Document, error) {
	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	docs, err := s.repo.ListByOwner(rctx, ownerID)
	if err != nil {
		return nil, registryFailure(err)
	}
	return docs, nil
}

// ListShared returns the documents other owners granted to userID.
func (s *Service) ListShared(ctx context.Context, userID string) ([]*Document, error) {
	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	ids, err := s.access.ListDocumentIDsForUser(rctx, userID)
	if err != nil {
		return nil, registryFailure(err)
	}
	if len(ids) == 0 {
		return []*Document{}, nil
	}

	docs, err := s.repo.ListByIDs(rctx, ids)
	if err != nil {
		return nil, registryFailure(err)
	}
	return docs, nil
}

// Grant shares a document with the user registered under granteeEmail. The grantee receives the
// document's existing wrapped key, so revoking does not rotate it.
func (s *Service) Grant(ctx context.Context, requesterID, documentID, granteeEmail string) (*access.Grant, error) {
	doc, err := s.ownedDocument(ctx, documentID, requesterID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	grantee, err := s.users.GetByEmail(rctx, granteeEmail)
	if err != nil {
		return nil, registryFailure(err)
	}
	if grantee.ID == doc.OwnerID {
		return nil, internal.ErrSelfGrant
	}

	g, err := s.access.Grant(rctx, doc.ID, grantee.ID, doc.WrappedKey)
	if err != nil {
		return nil, registryFailure(err)
	}
	g.User = &access.Grantee{ID: grantee.ID, Username: grantee.Username, Email: grantee.Email}

	ev := events.NewAccessGrantedEvent(doc.ID, doc.OwnerID, grantee.ID, doc.Title, doc.ContentRef)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to dispatch grant event", "document_id", doc.ID, "error", err)
	}

	return g, nil
}

func (s *Service) Revoke(ctx context.Context, requesterID, documentID, targetUserID string) error {
	doc, err := s.ownedDocument(ctx, documentID, requesterID)
	if err != nil {
		return err
	}

	// user ids are UUIDs; anything else cannot name a grant.
	if _, err := uuid.Parse(targetUserID); err != nil {
		return internal.ErrGrantNotFound
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	if err := s.access.Revoke(rctx, doc.ID, targetUserID); err != nil {
		return registryFailure(err)
	}
	return nil
}

func (s *Service) AccessList(ctx context.Context, requesterID, documentID string) ([]*access.Grant, error) {
	doc, err := s.ownedDocument(ctx, documentID, requesterID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	grants, err := s.access.ListGrants(rctx, doc.ID)
	if err != nil {
		return nil, registryFailure(err)
	}
	if grants == nil {
		grants = []*access.Grant{}
	}
	return grants, nil
}

// Delete removes grants, then the row, then makes a best-effort attempt to drop the blob.
func (s *Service) Delete(ctx context.Context, requesterID, documentID string) error {
	doc, err := s.ownedDocument(ctx, documentID, requesterID)
	if err != nil {
		return err
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	removed, err := s.access.DeleteByDocument(rctx, doc.ID)
	if err != nil {
		return registryFailure(err)
	}
	if err := s.repo.Delete(rctx, doc.ID); err != nil {
		return registryFailure(err)
	}

	if s.notarizations != nil {
		if _, err := s.notarizations.DeleteByDocument(rctx, doc.ID); err != nil {
			s.logger.Warn("failed to delete notarization records", "document_id", doc.ID, "error", err)
		}
	}

	sctx, scancel := internal.WithTimeout(ctx, s.storageTimeout)
	defer scancel()
	if err := s.store.Delete(sctx, doc.ContentRef); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn("failed to delete ciphertext, blob orphaned",
			"document_id", doc.ID, "content_ref", doc.ContentRef, "error", err)
	}

	s.logger.Info("document deleted", "document_id", doc.ID, "grants_removed", removed)
	return nil
}

// authorize is the single access rule: public, owner, or an explicit grant. Anonymous callers
// only ever pass the public branch and never reach the registry.
func (s *Service) authorize(ctx context.Context, doc *Document, requesterID string) (bool, error) {
	if doc.IsPublic() {
		return true, nil
	}
	if requesterID == "" {
		return false, nil
	}
	if requesterID == doc.OwnerID {
		return true, nil
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	ok, err := s.access.IsAuthorized(rctx, doc.ID, requesterID)
	if err != nil {
		return false, registryFailure(err)
	}
	return ok, nil
}

func (s *Service) getDocument(ctx context.Context, documentID string) (*Document, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, internal.ErrDocumentNotFound
	}

	rctx, cancel := internal.WithTimeout(ctx, s.registryTimeout)
	defer cancel()

	doc, err := s.repo.GetByID(rctx, documentID)
	if err != nil {
		return nil, registryFailure(err)
	}
	return doc, nil
}

func (s *Service) ownedDocument(ctx context.Context, documentID, requesterID string) (*Document, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if requesterID == "" || doc.OwnerID != requesterID {
		return nil, internal.ErrForbidden
	}
	return doc, nil
}

func (s *Service) putBlob(ctx context.Context, blob []byte) (string, error) {
	sctx, cancel := internal.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	return s.store.Put(sctx, blob)
}

// discardBlob removes a blob that no row will ever reference. Runs detached from the request.
func (s *Service) discardBlob(ref string) {
	ctx, cancel := internal.WithTimeout(context.Background(), s.storageTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, ref); err != nil {
		s.logger.Warn("failed to discard orphaned blob", "content_ref", ref, "error", err)
	}
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

// registryFailure keeps domain errors as they are and classifies everything else.
func registryFailure(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	if internal.IsTimeout(err) {
		return internal.ErrRegistryTimeout.Wrap(err)
	}
	return internal.NewInternalError("Registry operation failed", err)
}

func cryptoFailure(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return internal.NewInternalError("Cryptographic operation failed", fmt.Errorf("%s: %w", op, err))
}
