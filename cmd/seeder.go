package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample users",
	Long:  `Seed the database with sample researchers for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if clearData {
			if err := clearTables(ctx, db); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		researchers := []struct {
			Username string
			Email    string
		}{
			{"ada", "ada@mail.com"},
			{"grace", "grace@mail.com"},
			{"alan", "alan@mail.com"},
		}

		for _, r := range researchers {
			var exists int
			err := db.GetContext(ctx, &exists, "SELECT 1 FROM users WHERE LOWER(email) = $1", strings.ToLower(r.Email))
			if err == nil {
				fmt.Println("user already exists:", r.Email)
				continue
			}

			_, err = db.ExecContext(ctx,
				`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, now(), now())`,
				uuid.NewString(), r.Username, r.Email, string(hash))
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", r.Email, err)
			}
			fmt.Println("Seeded user:", r.Email)
		}

		fmt.Println("Seeding complete. All seeded users share the password \"password\".")
	},
}

// clearTables removes rows child tables first so foreign keys never block the delete.
func clearTables(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"notarizations", "access_grants", "documents", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
