package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/research-vault/internal/core/events"
	"github.com/frahmantamala/research-vault/internal/notary"
	notaryPostgres "github.com/frahmantamala/research-vault/internal/notary/postgres"
	researchPostgres "github.com/frahmantamala/research-vault/internal/research/postgres"
	"github.com/frahmantamala/research-vault/pkg/logger"
)

var notarizeLimit int

var notarizeCmd = &cobra.Command{
	Use:   "notarize",
	Short: "Anchor documents that have no upload notarization",
	Long: `Backfills upload notarizations for documents whose anchoring failed or happened
while the notary was disabled. Documents are processed oldest first.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if !cfg.Notary.Enabled {
			log.Fatal("notary is disabled; set notary.enabled to backfill")
		}

		lg := logger.Init(logger.Options{
			Env:    cfg.Env,
			Level:  cfg.Observability.Logging.Level,
			Format: cfg.Observability.Logging.Format,
		})

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		bus := events.NewEventBus(lg)
		notary.NewDispatcher(newNotarizer(cfg.Notary, lg), notaryPostgres.NewNotaryRepository(gdb), cfg.Notary.Timeout, lg).
			RegisterEventHandlers(bus)

		ctx := context.Background()
		docs, err := researchPostgres.NewResearchRepository(gdb).
			ListWithoutNotarization(ctx, string(notary.TxTypeUpload), notarizeLimit)
		if err != nil {
			log.Fatalf("failed to list documents: %v", err)
		}

		var failed int
		for _, d := range docs {
			event := events.NewDocumentPublishedEvent(d.ID, d.OwnerID, d.Title, d.ContentRef)
			if err := bus.PublishSync(ctx, event); err != nil {
				failed++
			}
		}

		fmt.Printf("Notarized %d of %d documents\n", len(docs)-failed, len(docs))
	},
}

func init() {
	notarizeCmd.Flags().IntVar(&notarizeLimit, "limit", 100, "maximum number of documents to anchor")
}
