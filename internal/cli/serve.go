package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/quillhq/kbingest/internal/api/handlers"
	"github.com/quillhq/kbingest/internal/chunking"
	"github.com/quillhq/kbingest/internal/config"
	"github.com/quillhq/kbingest/internal/database"
	"github.com/quillhq/kbingest/internal/jobs"
	"github.com/quillhq/kbingest/internal/openai"
	"github.com/quillhq/kbingest/internal/repository"
	"github.com/quillhq/kbingest/internal/secrets"
	"github.com/quillhq/kbingest/internal/server"
	"github.com/quillhq/kbingest/internal/service"
	"github.com/quillhq/kbingest/internal/storage"
	"github.com/quillhq/kbingest/internal/telemetry"
	"github.com/quillhq/kbingest/internal/tokenizer"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion server",
		Long:  "Start the HTTP API and the pending-source poll worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Disable the pending-source poll worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	svc, sourceRepo, err := buildIngestionService(ctx, cfg, pool)
	if err != nil {
		return err
	}

	var worker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		processor := jobs.NewIngestionWorker(sourceRepo, svc)
		worker = jobs.NewWorker(processor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
		go worker.Start(ctx)
		log.Println("ingestion worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		SourceHandler: handlers.NewSourceHandler(svc, sourceRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildIngestionService wires the pipeline from config: tokenizer, chunker,
// credential cipher, repositories, embedder factory, and optional S3 store.
func buildIngestionService(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*service.IngestionService, *repository.SourceRepository, error) {
	if !cfg.HasCredentialKey() {
		return nil, nil, fmt.Errorf("KBINGEST_CREDENTIAL_MASTER_KEY is required")
	}

	cipher, err := secrets.New(cfg.CredentialMasterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential cipher: %w", err)
	}

	counter, err := tokenizer.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	chunker, err := chunking.New(counter, chunking.Config{
		TargetTokens:  cfg.ChunkTargetTokens,
		MaxTokens:     cfg.ChunkMaxTokens,
		MinTokens:     cfg.ChunkMinTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	var files service.FileStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		files = s3Client
	}

	sourceRepo := repository.NewSourceRepository(pool)
	embeddingRepo := repository.NewEmbeddingRepository(pool)
	credentialRepo := repository.NewCredentialRepository(pool)

	factory := &openaiEmbedderFactory{inner: &openai.Factory{
		Model:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		Dimensions: cfg.EmbeddingDimensions,
	}}

	svc := service.NewIngestionService(
		sourceRepo,
		embeddingRepo,
		credentialRepo,
		cipher,
		files,
		chunker,
		factory,
		service.NewEmbeddingBatcher(cfg.EmbeddingBatchSize),
	)
	return svc, sourceRepo, nil
}

// openaiEmbedderFactory adapts openai.Factory to the service interface.
type openaiEmbedderFactory struct {
	inner *openai.Factory
}

func (f *openaiEmbedderFactory) New(apiKey string) service.Embedder {
	return f.inner.New(apiKey)
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
