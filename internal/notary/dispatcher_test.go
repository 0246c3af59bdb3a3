package notary_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/research-vault/internal/core/events"
	"github.com/frahmantamala/research-vault/internal/notary"
)

type stubNotarizer struct {
	mu       sync.Mutex
	hash     string
	err      error
	requests []notary.Request
	ctxErr   error
}

func (s *stubNotarizer) Notarize(ctx context.Context, req notary.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.ctxErr = ctx.Err()
	return s.hash, s.err
}

func (s *stubNotarizer) Requests() []notary.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notary.Request(nil), s.requests...)
}

type memoryRecords struct {
	mu      sync.Mutex
	records []*notary.Record
	deleted map[string]bool
}

func (m *memoryRecords) Create(_ context.Context, rec *notary.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted[rec.DocumentID] {
		return notary.ErrDocumentGone
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryRecords) LatestForDocument(_ context.Context, documentID string) (*notary.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].DocumentID == documentID {
			return m.records[i], nil
		}
	}
	return nil, nil
}

func (m *memoryRecords) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	return 0, nil
}

func (m *memoryRecords) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ = Describe("Dispatcher", func() {
	var (
		stub    *stubNotarizer
		records *memoryRecords
		bus     *events.EventBus
	)

	BeforeEach(func() {
		stub = &stubNotarizer{hash: "0xfeed"}
		records = &memoryRecords{}
		bus = events.NewEventBus(discardLogger())
		notary.NewDispatcher(stub, records, time.Second, discardLogger()).RegisterEventHandlers(bus)
	})

	It("anchors published documents and records the hash", func() {
		Expect(bus.Publish(context.Background(), events.NewDocumentPublishedEvent("doc-1", "u1", "Paper", "Qm1"))).To(Succeed())
		bus.Wait()

		Expect(stub.Requests()).To(ConsistOf(notary.Request{
			DocumentID: "doc-1", ContentRef: "Qm1", Title: "Paper", AuthorID: "u1", Type: notary.TxTypeUpload,
		}))
		rec, err := records.LatestForDocument(context.Background(), "doc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.TxHash).To(Equal("0xfeed"))
		Expect(rec.TxType).To(Equal(notary.TxTypeUpload))
	})

	It("anchors grants under the grantee", func() {
		Expect(bus.Publish(context.Background(), events.NewAccessGrantedEvent("doc-1", "u1", "u2", "Paper", "Qm1"))).To(Succeed())
		bus.Wait()

		reqs := stub.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Type).To(Equal(notary.TxTypeGrant))
		Expect(reqs[0].AuthorID).To(Equal("u2"))
	})

	It("outlives the request context that raised the event", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(bus.Publish(ctx, events.NewDocumentPublishedEvent("doc-1", "u1", "Paper", "Qm1"))).To(Succeed())
		bus.Wait()

		Expect(stub.ctxErr).NotTo(HaveOccurred())
		Expect(records.Len()).To(Equal(1))
	})

	It("records nothing when the ledger fails or skips", func() {
		stub.err = errors.New("ledger down")
		Expect(bus.Publish(context.Background(), events.NewDocumentPublishedEvent("doc-1", "u1", "Paper", "Qm1"))).To(Succeed())
		bus.Wait()
		Expect(records.Len()).To(BeZero())

		stub.err = nil
		stub.hash = ""
		Expect(bus.PublishSync(context.Background(), events.NewDocumentPublishedEvent("doc-2", "u1", "Paper", "Qm2"))).To(Succeed())
		Expect(records.Len()).To(BeZero())
	})

	It("drops the anchor of a document deleted while it was in flight", func() {
		records.deleted = map[string]bool{"doc-1": true}

		err := bus.PublishSync(context.Background(), events.NewAccessGrantedEvent("doc-1", "u1", "u2", "Paper", "Qm1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stub.Requests()).To(HaveLen(1))
		Expect(records.Len()).To(BeZero())
	})

	It("returns notarizer failures to synchronous publishers", func() {
		stub.err = errors.New("ledger down")
		err := bus.PublishSync(context.Background(), events.NewDocumentPublishedEvent("doc-1", "u1", "Paper", "Qm1"))
		Expect(err).To(MatchError(ContainSubstring("ledger down")))
	})

	It("ignores mismatched event payloads", func() {
		d := notary.NewDispatcher(stub, records, time.Second, discardLogger())
		err := d.HandleAccessGranted(context.Background(), events.NewDocumentPublishedEvent("doc-1", "u1", "Paper", "Qm1"))
		Expect(err).To(HaveOccurred())
		Expect(stub.Requests()).To(BeEmpty())
	})
})
