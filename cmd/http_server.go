package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/research-vault/api"
	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/access"
	accessPostgres "github.com/frahmantamala/research-vault/internal/access/postgres"
	"github.com/frahmantamala/research-vault/internal/auth"
	authPostgres "github.com/frahmantamala/research-vault/internal/auth/postgres"
	"github.com/frahmantamala/research-vault/internal/blobstore"
	"github.com/frahmantamala/research-vault/internal/blobstore/badgerstore"
	"github.com/frahmantamala/research-vault/internal/blobstore/pinata"
	"github.com/frahmantamala/research-vault/internal/category"
	categoryPostgres "github.com/frahmantamala/research-vault/internal/category/postgres"
	"github.com/frahmantamala/research-vault/internal/cipher"
	"github.com/frahmantamala/research-vault/internal/core/events"
	"github.com/frahmantamala/research-vault/internal/cryptopool"
	"github.com/frahmantamala/research-vault/internal/notary"
	notaryPostgres "github.com/frahmantamala/research-vault/internal/notary/postgres"
	"github.com/frahmantamala/research-vault/internal/research"
	researchPostgres "github.com/frahmantamala/research-vault/internal/research/postgres"
	"github.com/frahmantamala/research-vault/internal/transport/rest"
	"github.com/frahmantamala/research-vault/internal/user"
	userPostgres "github.com/frahmantamala/research-vault/internal/user/postgres"
	"github.com/frahmantamala/research-vault/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	EventBus *events.EventBus
	Pool     *cryptopool.Pool
	closers  []io.Closer
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "storage_backend", deps.Config.Storage.Backend)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.shutdown()
			os.Exit(1)
		}
	}

	deps.shutdown()
	deps.Logger.Info("Server stopped")
}

// shutdown drains in-flight notarizations and crypto jobs before closing storage and the database.
func (d *Dependencies) shutdown() {
	d.EventBus.Wait()
	d.Pool.Shutdown()
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.Logger.Error("close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(logger.Options{
		Env:    config.Env,
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	masterKey, err := cipher.LoadMasterKey(config.Crypto.MasterKey)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	lg.Info("master key loaded", "fingerprint", masterKey.Fingerprint())

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gdb,
		Router:   chi.NewRouter(),
		Logger:   lg,
		EventBus: events.NewEventBus(lg),
		Pool:     cryptopool.New(cryptopool.Config{Workers: config.Crypto.Workers, QueueSize: config.Crypto.QueueSize}, lg),
	}

	store, err := deps.initBlobStore()
	if err != nil {
		deps.shutdown()
		return nil, err
	}

	userRepo := userPostgres.NewUserRepository(gdb)
	userService := user.NewService(userRepo)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.JWTSecret,
		config.Security.RefreshSecret(),
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(gdb), tokenGen, config.Security.BCryptCost, lg)

	registry := access.NewRegistry(accessPostgres.NewAccessRepository(gdb), userService, lg)

	notaryRepo := notaryPostgres.NewNotaryRepository(gdb)
	notary.NewDispatcher(newNotarizer(config.Notary, lg), notaryRepo, config.Notary.Timeout, lg).
		RegisterEventHandlers(deps.EventBus)

	researchService := research.NewService(research.Dependencies{
		Repo:            researchPostgres.NewResearchRepository(gdb),
		Access:          registry,
		Users:           userService,
		Store:           store,
		Cipher:          cipher.NewEngine(masterKey),
		Pool:            deps.Pool,
		Events:          deps.EventBus,
		Notarizations:   notaryRepo,
		Logger:          lg,
		RegistryTimeout: config.Registry.Timeout,
		StorageTimeout:  config.Storage.Timeout,
	})

	doc, err := api.Load(context.Background())
	if err != nil {
		deps.shutdown()
		return nil, err
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		DB:             db,
		StorageBackend: config.Storage.Backend,
		AllowedOrigins: config.Server.AllowedOrigins,
		Auth:           auth.NewHandler(authService, lg),
		User:           user.NewHandler(userService, lg),
		Research:       research.NewHandler(researchService, config.Storage.MaxUploadSize, lg),
		Category:       category.NewHandler(category.NewService(categoryPostgres.NewCategoryRepository(gdb), lg), lg),
		Routes:         api.Routes(doc),
		MetricsEnabled: config.Observability.Metrics.Enabled,
		MetricsPath:    config.Observability.Metrics.Path,
	})

	return deps, nil
}

func (d *Dependencies) initBlobStore() (blobstore.Store, error) {
	cfg := d.Config.Storage

	var inner blobstore.Store
	switch cfg.Backend {
	case internal.StorageBackendPinata:
		inner = pinata.NewClient(pinata.Config{
			APIURL:     cfg.Pinata.APIURL,
			GatewayURL: cfg.Pinata.GatewayURL,
			JWT:        cfg.Pinata.JWT,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.Pinata.RetryCount,
		}, d.Logger)
	case internal.StorageBackendBadger:
		bs, err := badgerstore.Open(badgerstore.Config{Path: cfg.Badger.Path, InMemory: cfg.Badger.InMemory}, d.Logger)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, bs)
		inner = bs
	case internal.StorageBackendMemory:
		d.Logger.Warn("using the in-memory blob store; content is lost on restart")
		inner = blobstore.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	store, err := blobstore.NewCachedStore(inner, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob cache: %w", err)
	}
	return store, nil
}

func newNotarizer(cfg internal.NotaryConfig, lg *slog.Logger) notary.Notarizer {
	if !cfg.Enabled {
		lg.Info("notarization disabled")
		return notary.NoopNotarizer{}
	}
	return notary.NewClient(notary.ClientConfig{URL: cfg.URL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}, lg)
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}
