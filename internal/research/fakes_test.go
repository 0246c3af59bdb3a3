package research_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/access"
	"github.com/frahmantamala/research-vault/internal/blobstore"
	"github.com/frahmantamala/research-vault/internal/core/events"
	"github.com/frahmantamala/research-vault/internal/research"
	"github.com/frahmantamala/research-vault/internal/user"
)

type memoryDocuments struct {
	mu        sync.Mutex
	docs      map[string]*research.Document
	createErr error
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: map[string]*research.Document{}}
}

func (m *memoryDocuments) Create(ctx context.Context, doc *research.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memoryDocuments) GetByID(ctx context.Context, id string) (*research.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, internal.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memoryDocuments) List(ctx context.Context, filter research.ListFilter) ([]*research.Document, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*research.Document
	for _, d := range m.docs {
		if d.IsPublic() || (filter.ViewerID != "" && d.OwnerID == filter.ViewerID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := (filter.Page - 1) * filter.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *memoryDocuments) ListByOwner(ctx context.Context, ownerID string) ([]*research.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*research.Document{}
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDocuments) ListByIDs(ctx context.Context, ids []string) ([]*research.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*research.Document{}
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDocuments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return internal.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryDocuments) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type memoryGrants struct {
	mu     sync.Mutex
	grants map[[2]string]*access.Grant
}

func newMemoryGrants() *memoryGrants {
	return &memoryGrants{grants: map[[2]string]*access.Grant{}}
}

func (m *memoryGrants) Create(_ context.Context, g *access.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{g.DocumentID, g.UserID}
	if _, ok := m.grants[key]; ok {
		return internal.ErrAlreadyGranted
	}
	m.grants[key] = g
	return nil
}

// Delete rejects non-UUID ids the way a uuid-typed column does.
func (m *memoryGrants) Delete(_ context.Context, documentID, userID string) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, errors.New("invalid input syntax for type uuid: " + userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{documentID, userID}
	if _, ok := m.grants[key]; !ok {
		return 0, nil
	}
	delete(m.grants, key)
	return 1, nil
}

func (m *memoryGrants) Exists(_ context.Context, documentID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grants[[2]string{documentID, userID}]
	return ok, nil
}

func (m *memoryGrants) ListByDocument(_ context.Context, documentID string) ([]*access.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*access.Grant
	for key, g := range m.grants {
		if key[0] == documentID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryGrants) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.grants {
		if key[0] == documentID {
			delete(m.grants, key)
			n++
		}
	}
	return n, nil
}

func (m *memoryGrants) DocumentIDsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for key := range m.grants {
		if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

func (m *memoryGrants) CountFor(documentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.grants {
		if key[0] == documentID {
			n++
		}
	}
	return n
}

// countingAccess records how often the registry is asked for an authorization decision.
type countingAccess struct {
	*access.Registry
	mu     sync.Mutex
	checks int
}

func (c *countingAccess) IsAuthorized(ctx context.Context, documentID, userID string) (bool, error) {
	c.mu.Lock()
	c.checks++
	c.mu.Unlock()
	return c.Registry.IsAuthorized(ctx, documentID, userID)
}

func (c *countingAccess) Checks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks
}

type directory struct {
	byID map[string]*user.User
}

func newDirectory(users ...*user.User) *directory {
	d := &directory{byID: map[string]*user.User{}}
	for _, u := range users {
		d.byID[u.ID] = u
	}
	return d
}

func (d *directory) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range d.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, internal.ErrUnknownUser
}

func (d *directory) Exists(_ context.Context, userID string) (bool, error) {
	_, ok := d.byID[userID]
	return ok, nil
}

// flakyStore wraps a store and fails the operations it is told to.
type flakyStore struct {
	blobstore.Store
	failPut    bool
	failGet    bool
	failDelete bool
	deletes    []string
}

var errStoreDown = errors.New("store unreachable")

func (f *flakyStore) Put(ctx context.Context, blob []byte) (string, error) {
	if f.failPut {
		return "", errStoreDown
	}
	return f.Store.Put(ctx, blob)
}

func (f *flakyStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if f.failGet {
		return nil, errStoreDown
	}
	return f.Store.Get(ctx, ref)
}

func (f *flakyStore) Delete(ctx context.Context, ref string) error {
	f.deletes = append(f.deletes, ref)
	if f.failDelete {
		return errStoreDown
	}
	return f.Store.Delete(ctx, ref)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType())
	}
	return out
}

type inlinePool struct{}

func (inlinePool) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

type staticNotarizations struct {
	hashes  map[string]string
	deleted []string
}

func (s *staticNotarizations) LatestTxHash(_ context.Context, documentID string) (string, error) {
	return s.hashes[documentID], nil
}

func (s *staticNotarizations) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	s.deleted = append(s.deleted, documentID)
	return 1, nil
}
