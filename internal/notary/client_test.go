package notary_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/research-vault/internal/notary"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		received notary.Request
		auth     string
		status   int
		reply    string
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{"txHash":"0xabc123"}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/v1/anchors"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	newClient := func() *notary.Client {
		return notary.NewClient(notary.ClientConfig{URL: server.URL, APIKey: "ledger-key", Timeout: time.Second}, discardLogger())
	}

	It("posts the anchor request with the API key and returns the hash", func() {
		req := notary.Request{DocumentID: "doc-1", ContentRef: "Qm123", Title: "Paper", AuthorID: "u1", Type: notary.TxTypeUpload}

		hash, err := newClient().Notarize(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).To(Equal("0xabc123"))
		Expect(auth).To(Equal("Bearer ledger-key"))
		Expect(received).To(Equal(req))
	})

	It("reports gateway rejections", func() {
		status = http.StatusBadGateway
		reply = `{"error":"node unavailable"}`

		_, err := newClient().Notarize(context.Background(), notary.Request{DocumentID: "doc-1", Type: notary.TxTypeGrant})
		Expect(err).To(MatchError(ContainSubstring("node unavailable")))
	})
})
