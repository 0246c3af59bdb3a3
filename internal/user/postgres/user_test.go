package postgres

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/research-vault/internal/core/datamodel/user"
)

func TestUserRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "UserRepository Suite")
}

var _ = Describe("UserRepository", func() {
	var (
		db   *gorm.DB
		repo *UserRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())
		Expect(db.Create(&userDatamodel.User{
			ID:           "11111111-1111-1111-1111-111111111111",
			Username:     "ada",
			Email:        "ada@example.com",
			PasswordHash: "hash",
		}).Error).To(Succeed())

		repo = NewUserRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("finds a user by id", func() {
		u, err := repo.GetByID(ctx, "11111111-1111-1111-1111-111111111111")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Username).To(Equal("ada"))
		Expect(u.PasswordHash).To(Equal("hash"))
	})

	It("returns nil for an unknown id", func() {
		u, err := repo.GetByID(ctx, "22222222-2222-2222-2222-222222222222")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNil())
	})

	It("finds a user by email", func() {
		u, err := repo.GetByEmail(ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).NotTo(BeNil())
		Expect(u.ID).To(Equal("11111111-1111-1111-1111-111111111111"))
	})

	It("reports existence", func() {
		ok, err := repo.Exists(ctx, "11111111-1111-1111-1111-111111111111")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = repo.Exists(ctx, "nope")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
