package research_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/research"
)

const testUserHeader = "X-Test-User"

// asUser stands in for the auth middleware.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(testUserHeader); id != "" {
			r = r.WithContext(internal.ContextWithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func newRouter(h *research.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser)
	r.Route("/research", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/upload", h.Upload)
		r.Get("/my", h.ListMine)
		r.Get("/shared", h.ListShared)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/download", h.Download)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/grant", h.Grant)
		r.Post("/{id}/revoke", h.Revoke)
		r.Get("/{id}/access-list", h.AccessList)
	})
	return r
}

func uploadRequest(fields map[string]string, fileName string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if content != nil {
		fw, err := mw.CreateFormFile("file", fileName)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(content)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/research/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request, userID string) *httptest.ResponseRecorder {
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Research Handler", func() {
	var (
		f      *fixture
		router http.Handler
	)

	BeforeEach(func() {
		f = newFixture()
		router = newRouter(research.NewHandler(f.service, 1<<20, discardLogger()))
	})

	upload := func(isPublic string, content []byte) map[string]interface{} {
		req := uploadRequest(map[string]string{
			"title":       "Hello",
			"description": "greeting",
			"category":    "misc",
			"tags":        "a, b ,,c",
			"isPublic":    isPublic,
		}, "hello.txt", content)
		rec := serve(router, req, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		return decode(rec)["research"].(map[string]interface{})
	}

	It("serves the private upload, grant and download flow", func() {
		created := upload("false", []byte("hello docs"))
		Expect(created["visibility"]).To(Equal("PRIVATE"))
		Expect(created["contentRef"]).NotTo(BeEmpty())
		Expect(created).NotTo(HaveKey("wrappedKey"))
		Expect(created["tags"]).To(Equal([]interface{}{"a", "b", "c"}))
		id := created["id"].(string)

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id, nil), "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		detail := decode(rec)["research"].(map[string]interface{})
		Expect(detail["hasAccess"]).To(BeFalse())
		Expect(detail).NotTo(HaveKey("contentRef"))
		Expect(detail).NotTo(HaveKey("wrappedKey"))

		rec = serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id+"/download", nil), "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		grant := httptest.NewRequest(http.MethodPost, "/research/"+id+"/grant", strings.NewReader(`{"userEmail":"bob@example.com"}`))
		rec = serve(router, grant, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())

		rec = serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id+"/download", nil), bob.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("hello docs"))
		Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename=hello.txt`))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/octet-stream"))
	})

	It("rejects a second grant with 409", func() {
		id := upload("false", []byte("x"))["id"].(string)
		body := `{"userEmail":"bob@example.com"}`

		rec := serve(router, httptest.NewRequest(http.MethodPost, "/research/"+id+"/grant", strings.NewReader(body)), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		rec = serve(router, httptest.NewRequest(http.MethodPost, "/research/"+id+"/grant", strings.NewReader(body)), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(decode(rec)["error"].(map[string]interface{})["code"]).To(Equal(string(internal.ErrCodeAlreadyGranted)))
	})

	It("revokes and lists access", func() {
		id := upload("false", []byte("x"))["id"].(string)
		serve(router, httptest.NewRequest(http.MethodPost, "/research/"+id+"/grant", strings.NewReader(`{"userEmail":"bob@example.com"}`)), alice.ID)

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id+"/access-list", nil), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)["accessList"]).To(HaveLen(1))

		revoke := httptest.NewRequest(http.MethodPost, "/research/"+id+"/revoke", strings.NewReader(`{"userId":"`+bob.ID+`"}`))
		rec = serve(router, revoke, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))

		revoke = httptest.NewRequest(http.MethodPost, "/research/"+id+"/revoke", strings.NewReader(`{"userId":"`+bob.ID+`"}`))
		rec = serve(router, revoke, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusNotFound))

		revoke = httptest.NewRequest(http.MethodPost, "/research/"+id+"/revoke", strings.NewReader(`{"userId":"bob"}`))
		rec = serve(router, revoke, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("routes /research/my and /research/shared ahead of the id route", func() {
		upload("true", []byte("x"))

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/research/my", nil), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)["researches"]).To(HaveLen(1))

		rec = serve(router, httptest.NewRequest(http.MethodGet, "/research/shared", nil), bob.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)["researches"]).To(BeEmpty())
	})

	It("lists with pagination metadata", func() {
		upload("true", []byte("x"))
		upload("false", []byte("y"))

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/research?page=1&limit=5", nil), "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		body := decode(rec)
		Expect(body["researches"]).To(HaveLen(1))
		Expect(body["pagination"]).To(HaveKeyWithValue("total", BeNumerically("==", 1)))
		Expect(body["pagination"]).To(HaveKeyWithValue("limit", BeNumerically("==", 5)))
	})

	It("rejects uploads without a file", func() {
		req := uploadRequest(map[string]string{"title": "Empty"}, "", nil)
		rec := serve(router, req, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode(rec)["error"].(map[string]interface{})["code"]).To(Equal(string(internal.ErrCodeEmptyContent)))
	})

	It("rejects uploads above the size limit with 413", func() {
		router = newRouter(research.NewHandler(f.service, 1024, discardLogger()))
		req := uploadRequest(map[string]string{"title": "Big"}, "big.bin", bytes.Repeat([]byte("z"), 4096))
		rec := serve(router, req, alice.ID)
		Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
	})

	It("hides storage failures behind a generic 500", func() {
		id := upload("true", []byte("x"))["id"].(string)
		f.store.failGet = true

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id+"/download", nil), "")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).NotTo(ContainSubstring("store unreachable"))
		Expect(string(body)).To(ContainSubstring(string(internal.ErrCodeStorageFailed)))
	})

	It("deletes a document for its owner only", func() {
		id := upload("true", []byte("x"))["id"].(string)

		rec := serve(router, httptest.NewRequest(http.MethodDelete, "/research/"+id, nil), bob.ID)
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = serve(router, httptest.NewRequest(http.MethodDelete, "/research/"+id, nil), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = serve(router, httptest.NewRequest(http.MethodGet, "/research/"+id, nil), alice.ID)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
