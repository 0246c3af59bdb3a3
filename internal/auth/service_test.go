package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock Repository for testing
type mockUserRepository struct {
	byEmail       map[string]*user.User
	byID          map[string]*user.User
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	repo := &mockUserRepository{
		byEmail: map[string]*user.User{},
		byID:    map[string]*user.User{},
	}
	for i, name := range []string{"ada", "grace", "linus"} {
		u := &user.User{
			ID:           []string{"u-1", "u-2", "u-3"}[i],
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: string(hashedPassword),
		}
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (m *mockUserRepository) CreateUser(_ context.Context, u *user.User) error {
	if m.returnError {
		return m.errorToReturn
	}
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.byEmail[email], nil
}

func (m *mockUserRepository) GetByID(_ context.Context, userID string) (*user.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.byID[userID], nil
}

func (m *mockUserRepository) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockUserRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) setError(err error) {
	m.returnError = true
	m.errorToReturn = err
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service       *Service
		mockRepo      *mockUserRepository
		tokenGen      *JWTTokenGenerator
		ctx           context.Context
		accessSecret  string        = "test-access-secret-with-enough-length"
		refreshSecret string        = "test-refresh-secret-with-enough-length"
		accessTTL     time.Duration = 15 * time.Minute
		refreshTTL    time.Duration = 24 * time.Hour
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create the user and return tokens", func() {
			// Given
			dto := RegisterDTO{Username: "new_user", Email: " New@Example.com ", Password: "secret1"}

			// When
			result, err := service.Register(ctx, dto)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.User.Email).To(gomega.Equal("new@example.com"))
			gomega.Expect(result.User.PasswordHash).ToNot(gomega.Equal("secret1"))
			gomega.Expect(result.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(mockRepo.byEmail).To(gomega.HaveKey("new@example.com"))
		})

		ginkgo.It("should reject a taken email", func() {
			_, err := service.Register(ctx, RegisterDTO{Username: "other", Email: "ada@example.com", Password: "secret1"})
			gomega.Expect(errors.Is(err, internal.ErrEmailTaken)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a taken username regardless of case", func() {
			_, err := service.Register(ctx, RegisterDTO{Username: "ADA", Email: "fresh@example.com", Password: "secret1"})
			gomega.Expect(errors.Is(err, internal.ErrUsernameTaken)).To(gomega.BeTrue())
		})

		ginkgo.DescribeTable("should validate input",
			func(dto RegisterDTO, field string) {
				_, err := service.Register(ctx, dto)
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.StatusCode).To(gomega.Equal(400))
				gomega.Expect(appErr.Details.(internal.ValidationErrors).Errors[0].Field).To(gomega.Equal(field))
			},
			ginkgo.Entry("short username", RegisterDTO{Username: "ab", Email: "a@example.com", Password: "secret1"}, "username"),
			ginkgo.Entry("bad username characters", RegisterDTO{Username: "bad-name", Email: "a@example.com", Password: "secret1"}, "username"),
			ginkgo.Entry("invalid email", RegisterDTO{Username: "valid_name", Email: "nope", Password: "secret1"}, "email"),
			ginkgo.Entry("short password", RegisterDTO{Username: "valid_name", Email: "a@example.com", Password: "12345"}, "password"),
		)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				// Given
				dto := LoginDTO{
					Email:    "ada@example.com",
					Password: "correct_password",
				}

				// When
				result, err := service.Authenticate(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(result.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(result.AccessToken).ToNot(gomega.Equal(result.RefreshToken))
				gomega.Expect(result.User.ID).To(gomega.Equal("u-1"))
			})

			ginkgo.It("should generate valid JWT tokens", func() {
				// When
				result, err := service.Authenticate(ctx, LoginDTO{Email: "grace@example.com", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				// Then
				claims, err := service.ValidateAccessToken(result.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal("u-2"))
				gomega.Expect(claims.Email).To(gomega.Equal("grace@example.com"))
				gomega.Expect(claims.TokenType).To(gomega.Equal(TokenTypeAccess))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return error for invalid email", func() {
				result, err := service.Authenticate(ctx, LoginDTO{Email: "nonexistent@example.com", Password: "any_password"})

				gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
				gomega.Expect(result).To(gomega.BeNil())
			})

			ginkgo.It("should return error for invalid password", func() {
				result, err := service.Authenticate(ctx, LoginDTO{Email: "ada@example.com", Password: "wrong_password"})

				gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
				gomega.Expect(result).To(gomega.BeNil())
			})

			ginkgo.It("should hide repository errors behind invalid credentials", func() {
				mockRepo.setError(errors.New("database error"))

				_, err := service.Authenticate(ctx, LoginDTO{Email: "ada@example.com", Password: "correct_password"})
				gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
			})
		})

		ginkgo.It("should return validation error for empty password", func() {
			_, err := service.Authenticate(ctx, LoginDTO{Email: "ada@example.com"})

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("password is required"))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		var issued *AuthResult

		ginkgo.BeforeEach(func() {
			var err error
			issued, err = service.Authenticate(ctx, LoginDTO{Email: "ada@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should preserve user information in new tokens", func() {
			result, err := service.RefreshTokens(ctx, issued.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(result.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("u-1"))
		})

		ginkgo.It("should not accept an access token as a refresh token", func() {
			_, err := service.RefreshTokens(ctx, issued.AccessToken)
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject tokens of deleted users", func() {
			delete(mockRepo.byID, "u-1")

			_, err := service.RefreshTokens(ctx, issued.RefreshToken)
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})

		ginkgo.It("should return error for expired token", func() {
			expiredTokenGen := NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, -1*time.Hour)
			expiredToken, err := expiredTokenGen.GenerateRefreshToken("u-1", "ada@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(ctx, expiredToken)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTokenExpired))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should return error for malformed token", func() {
			claims, err := service.ValidateAccessToken("invalid.token")

			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
			gomega.Expect(claims).To(gomega.BeNil())
		})

		ginkgo.It("should return error for empty token", func() {
			claims, err := service.ValidateAccessToken("")

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(claims).To(gomega.BeNil())
		})

		ginkgo.It("should reject a token signed with another secret", func() {
			forged := NewJWTTokenGenerator("another-secret-another-secret-xx", refreshSecret, accessTTL, refreshTTL)
			token, err := forged.GenerateAccessToken("u-1", "ada@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token)
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})

		ginkgo.It("should return error for expired token", func() {
			expiredTokenGen := NewJWTTokenGenerator(accessSecret, refreshSecret, -1*time.Hour, refreshTTL)
			expiredToken, err := expiredTokenGen.GenerateAccessToken("u-1", "ada@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(expiredToken)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTokenExpired))
			gomega.Expect(claims).To(gomega.BeNil())
		})
	})
})
