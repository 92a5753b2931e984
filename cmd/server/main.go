package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/domain/repositories"
	"inkwell/internal/handler"
	"inkwell/internal/handler/sse"
	"inkwell/internal/middleware"
	"inkwell/internal/repository/memory"
	"inkwell/internal/repository/postgres"
	"inkwell/internal/service/completion"
	"inkwell/internal/service/dispatch"
	serviceLLM "inkwell/internal/service/llm"
	"inkwell/internal/service/mutation"
	"inkwell/internal/service/version"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier is optional: without a JWKS endpoint the auth
	// middleware falls back to a fixed dev identity
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		jwtVerifier = verifier
	} else {
		logger.Warn("no JWKS URL configured, all requests attributed to dev user")
	}

	ctx := context.Background()

	// Repositories: Postgres when a database is configured, in-memory
	// otherwise so the server still runs for local development
	var (
		versionRepo repositories.VersionRepository
		chatRepo    repositories.ChatRepository
		txManager   repositories.TransactionManager
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected")

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		versionRepo = postgres.NewVersionRepository(repoConfig)
		chatRepo = postgres.NewChatRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool)
	} else {
		logger.Warn("no DATABASE_URL configured, using in-memory store")
		versionRepo = memory.NewVersionRepository()
		chatRepo = memory.NewChatRepository()
		txManager = memory.NewTransactionManager()
	}

	// LLM providers
	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	// Services
	coordinator := version.NewCoordinator(versionRepo, chatRepo, txManager, cfg.MergeWindow, logger)
	pipeline := mutation.NewPipeline(coordinator, versionRepo, providerRegistry, cfg, logger)
	dispatcher := dispatch.NewDispatcher(versionRepo, pipeline, logger)
	completionService := completion.NewService(providerRegistry, cfg, logger)

	logger.Info("services initialized")

	// Handlers
	sseConfig := sse.DefaultConfig()
	docHandler := handler.NewDocumentHandler(coordinator, logger)
	agentHandler := handler.NewAgentHandler(dispatcher, pipeline, sseConfig, logger)
	completionHandler := handler.NewCompletionHandler(completionService, logger)

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/document", docHandler.Act)
	mux.HandleFunc("GET /api/document", docHandler.List)
	mux.HandleFunc("GET /api/document/search", docHandler.Search)
	mux.HandleFunc("GET /api/document/{id}", docHandler.Get)
	mux.HandleFunc("DELETE /api/document/{id}", docHandler.Delete)
	mux.HandleFunc("POST /api/document/{id}/publish", docHandler.Publish)

	// Agent routes
	mux.HandleFunc("GET /api/agent/capabilities", agentHandler.Capabilities)
	mux.HandleFunc("POST /api/agent/turn", agentHandler.Turn)
	mux.HandleFunc("POST /api/proposal/accept", agentHandler.AcceptProposal)
	mux.HandleFunc("POST /api/proposal/reject", agentHandler.RejectProposal)

	// Completion routes
	mux.HandleFunc("POST /api/completion", completionHandler.Suggest)
	mux.HandleFunc("POST /api/completion/cancel", completionHandler.Cancel)
	mux.HandleFunc("POST /api/completion/accept", completionHandler.FormatAcceptance)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var root http.Handler = mux
	root = middleware.Auth(jwtVerifier, "dev-user", logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Run the server until SIGINT/SIGTERM, then drain connections
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("server stopped")
}
