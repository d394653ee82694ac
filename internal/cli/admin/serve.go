package admin

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
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/lumenkb/lumen/internal/api/handlers"
	"github.com/lumenkb/lumen/internal/config"
	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/jobs"
	"github.com/lumenkb/lumen/internal/openai"
	"github.com/lumenkb/lumen/internal/repository"
	"github.com/lumenkb/lumen/internal/server"
	"github.com/lumenkb/lumen/internal/service"
	"github.com/lumenkb/lumen/internal/storage"
	"github.com/lumenkb/lumen/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the lumen API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling outside development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	embeddingRepo := repository.NewEmbeddingRepository(pool)
	gapRepo := repository.NewGapRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	reembedJobRepo := repository.NewReembedJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, apiKeyRepo, uuidGen)

	if cfg.InitUserName != "" {
		if err := bootstrapInitialUser(ctx, cfg, authSvc, userRepo, txRunner); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	var archive service.ContentArchive
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archive = s3Client
	}

	var oracle *openai.Client
	var embeddingSvc *service.EmbeddingService
	var reembedWorker *jobs.Worker
	if cfg.HasOpenAI() {
		oracle = openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: goopenai.EmbeddingModel(cfg.EmbeddingModel),
			ChatModel:      cfg.ChatModel,
			RequestTimeout: time.Duration(cfg.OpenAITimeout) * time.Second,
		})
		embeddingSvc = service.NewEmbeddingService(oracle, embeddingRepo, uuidGen)

		reembedProcessor := jobs.NewReembedWorker(reembedJobRepo, embeddingSvc)
		reembedWorker = jobs.NewWorker(reembedProcessor, time.Duration(cfg.ReembedPollInterval)*time.Second)
		go reembedWorker.Start(ctx)
		log.Println("re-embed worker started")
	}

	var completions service.CompletionClient
	if oracle != nil {
		completions = oracle
	}

	chunkingSvc := service.NewChunkingService(completions)

	var classifier service.GapClassifier
	if cfg.GapClassifier == "llm" && completions != nil {
		classifier = service.NewLLMClassifier(completions)
	} else {
		classifier = &service.KeywordClassifier{}
	}
	gapSvc := service.NewGapService(gapRepo, classifier, uuidGen)

	chunkHandler := handlers.NewChunkHandler(chunkingSvc)
	authHandler := handlers.NewAuthHandler(authSvc)
	projectHandler := handlers.NewProjectHandler(projectRepo)
	gapHandler := handlers.NewGapHandler(gapSvc, projectRepo)

	var embedHandler *handlers.EmbedHandler
	var searchHandler *handlers.SearchHandler
	var sourceHandler *handlers.SourceHandler
	var chatHandler *handlers.ChatHandler
	if embeddingSvc != nil {
		embedHandler = handlers.NewEmbedHandler(embeddingSvc)
		searchHandler = handlers.NewSearchHandler(embeddingSvc, projectRepo)
		ingestSvc := service.NewIngestService(chunkingSvc, embeddingSvc, archive, uuidGen)
		sourceHandler = handlers.NewSourceHandler(ingestSvc, projectRepo)
		chatSvc := service.NewChatService(embeddingSvc, gapSvc, completions)
		chatHandler = handlers.NewChatHandler(chatSvc, projectRepo)
	} else {
		noop := &NoOpEmbeddingService{}
		embedHandler = handlers.NewEmbedHandler(noop)
		searchHandler = handlers.NewSearchHandler(noop, projectRepo)
		sourceHandler = handlers.NewSourceHandler(&NoOpIngestService{}, projectRepo)
		chatHandler = handlers.NewChatHandler(&NoOpChatService{}, projectRepo)
	}

	routerCfg := server.RouterConfig{
		AuthValidator:  authSvc,
		ChunkHandler:   chunkHandler,
		EmbedHandler:   embedHandler,
		SearchHandler:  searchHandler,
		SourceHandler:  sourceHandler,
		ChatHandler:    chatHandler,
		GapHandler:     gapHandler,
		AuthHandler:    authHandler,
		ProjectHandler: projectHandler,
	}

	router := server.NewRouter(routerCfg)

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

	if reembedWorker != nil {
		reembedWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

var errNoEmbeddingProvider = fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")

type NoOpEmbeddingService struct{}

func (s *NoOpEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingProvider
}

func (s *NoOpEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errNoEmbeddingProvider
}

func (s *NoOpEmbeddingService) Search(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, projectID, userID string, sourceType *domain.SourceType) ([]domain.SimilarityResult, error) {
	return nil, errNoEmbeddingProvider
}

type NoOpIngestService struct{}

func (s *NoOpIngestService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	return nil, errNoEmbeddingProvider
}

func (s *NoOpIngestService) DeleteSource(ctx context.Context, sourceID string, sourceType domain.SourceType, userID string) error {
	return errNoEmbeddingProvider
}

type NoOpChatService struct{}

func (s *NoOpChatService) Ask(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error) {
	return nil, errNoEmbeddingProvider
}

// bootstrapInitialUser creates the configured user and API key on first start.
// The user and key are written in one transaction so a failed key insert never
// leaves a user without credentials.
func bootstrapInitialUser(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, userRepo *repository.UserRepository, txRunner service.TxRunner) error {
	user, err := userRepo.GetByName(ctx, cfg.InitUserName)
	if err != nil && err != domain.ErrUserNotFound {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user != nil {
		log.Printf("bootstrap: user '%s' already exists (id: %s)", user.Name, user.ID)
		if cfg.InitAPIKey != "" {
			return bootstrapAPIKey(ctx, cfg, authSvc, user.ID)
		}
		return nil
	}

	return txRunner.WithTx(ctx, func(repos service.TxRepositories) error {
		txAuth := service.NewAuthService(repos.Users(), repos.APIKeys(), nil)

		created, err := txAuth.CreateUser(ctx, cfg.InitUserName)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("bootstrap: created user '%s' (id: %s)", created.Name, created.ID)

		if cfg.InitAPIKey != "" {
			if !service.IsValidAPIToken(cfg.InitAPIKey) {
				return fmt.Errorf("invalid LUMEN_INIT_API_KEY format (expected 'lmn_<64 hex chars>')")
			}
			if err := txAuth.CreateAPIKeyWithToken(ctx, created.ID, "bootstrap", cfg.InitAPIKey); err != nil {
				return fmt.Errorf("failed to create API key: %w", err)
			}
			log.Printf("bootstrap: created API key")
		}

		return nil
	})
}

func bootstrapAPIKey(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, userID string) error {
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid LUMEN_INIT_API_KEY format (expected 'lmn_<64 hex chars>')")
	}

	if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil || err == domain.ErrAPIKeyRevoked {
		log.Println("bootstrap: API key already exists")
		return nil
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, userID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	log.Println("bootstrap: created API key")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql handle
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
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
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
