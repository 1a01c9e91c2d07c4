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
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/finsight/internal/agents"
	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/database"
	"github.com/cloo-solutions/finsight/internal/jobs"
	"github.com/cloo-solutions/finsight/internal/openai"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/storage"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the finsight API server on the specified port",
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
	if !cfg.HasOpenAI() {
		return fmt.Errorf("FINSIGHT_OPENAI_API_KEY is required to start the server")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
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

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	openaiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimension,
		CallTimeout:         cfg.LLMTimeout,
	})
	llm := &llmAdapter{client: openaiClient}

	var archive service.DocumentArchive
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
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archive = s3Client
	}

	chunker := service.NewChunker(service.ChunkConfig{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	})
	embeddingSvc := service.NewEmbeddingService(openaiClient)

	ingestSvc := service.NewIngestService(chunker, embeddingSvc, documentRepo, chunkRepo, ingestJobRepo, txRunner, archive)

	var ingestWorker *jobs.Worker
	if archive != nil {
		processor := jobs.NewIngestWorker(ingestJobRepo, ingestSvc)
		ingestWorker = jobs.NewWorker(processor, 5*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	} else {
		log.Println("no S3 archive configured, documents are indexed synchronously")
	}

	engine, err := service.NewRetrievalQueryEngine(embeddingSvc, chunkRepo, llm, service.EngineConfig{
		PrimaryLLM:  cfg.PrimaryLLM,
		FallbackLLM: cfg.FallbackLLM,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		TopK:        cfg.TopKChunks,
		MinScore:    cfg.MinRelevanceScore,
	})
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}

	var answerer service.Answerer
	if cfg.UseAgents {
		router := agents.NewRouter(llm, cfg.AgentRouterModel)
		decomposer := agents.NewDecomposer(llm, cfg.AgentDecomposerModel, cfg.MaxSubQueries)
		executor := agents.NewExecutor(engine, cfg.ExecutorConcurrency)
		synthesizer := agents.NewSynthesizer(llm, cfg.AgentSynthesizerModel)

		// Allow one LLM call per sub-query plus classification and synthesis
		workflowTimeout := cfg.LLMTimeout * time.Duration(cfg.MaxSubQueries+2)
		answerer = agents.NewWorkflow(router, decomposer, executor, synthesizer, engine, workflowTimeout)
		log.Println("agent workflow enabled")
	} else {
		answerer = service.NewDirectAnswerer(engine)
	}

	querySvc := service.NewQueryService(answerer, queryLogRepo)

	routerCfg := server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
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

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// llmAdapter bridges the OpenAI client to the service completion contract.
type llmAdapter struct {
	client *openai.Client
}

func (a *llmAdapter) Complete(ctx context.Context, req service.CompletionRequest) (string, error) {
	messages := make([]openai.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.Message{Role: m.Role, Content: m.Content}
	}
	return a.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		JSONMode:    req.JSONMode,
	})
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
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
