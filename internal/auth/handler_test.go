package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/research-vault/internal"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler *Handler
		service *Service
		token   string
	)

	ginkgo.BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		tokenGen := NewJWTTokenGenerator("handler-access-secret-0123456789ab", "handler-refresh-secret-0123456789", time.Minute, time.Hour)
		service = NewService(newMockUserRepository(), tokenGen, bcrypt.MinCost, lg)
		handler = NewHandler(service, lg)

		result, err := service.Authenticate(context.Background(), LoginDTO{Email: "ada@example.com", Password: "correct_password"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		token = result.AccessToken
	})

	echoUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("user=" + internal.UserIDFromContext(r.Context())))
	})

	serve := func(h http.Handler, authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should put the user id into the context", func() {
			rec := serve(handler.Authenticate(echoUser), "Bearer "+token)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("user=u-1"))
		})

		ginkgo.It("should reject a missing token", func() {
			rec := serve(handler.Authenticate(echoUser), "")

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("UNAUTHENTICATED"))
		})

		ginkgo.It("should reject a garbage token", func() {
			rec := serve(handler.Authenticate(echoUser), "Bearer nope")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("OptionalAuthenticate", func() {
		ginkgo.It("should pass anonymous requests through", func() {
			rec := serve(handler.OptionalAuthenticate(echoUser), "")

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("user="))
		})

		ginkgo.It("should still reject an invalid token", func() {
			rec := serve(handler.OptionalAuthenticate(echoUser), "Bearer nope")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should return 201 with tokens and no password hash", func() {
			body := `{"username":"newbie","email":"newbie@example.com","password":"secret1"}`
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			var resp map[string]interface{}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp).To(gomega.HaveKey("accessToken"))
			gomega.Expect(resp).To(gomega.HaveKey("refreshToken"))
			gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("$2a$"))
		})

		ginkgo.It("should return 409 for a duplicate email", func() {
			body := `{"username":"someone","email":"ada@example.com","password":"secret1"}`
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
		})
	})
})
