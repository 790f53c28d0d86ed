package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	googleauth "resumegen-api/internal/auth"
	"resumegen-api/internal/chat"
	"resumegen-api/internal/credits"
	"resumegen-api/internal/documents"
	"resumegen-api/internal/llm"
	"resumegen-api/internal/llm/anthropic"
	openai "resumegen-api/internal/llm/openai"
	"resumegen-api/internal/orchestrator"
	"resumegen-api/internal/queue"
	"resumegen-api/internal/resumes"
	"resumegen-api/internal/shared/config"
	"resumegen-api/internal/shared/ratelimit"
	"resumegen-api/internal/shared/server"
	"resumegen-api/internal/shared/storage/db"
	"resumegen-api/internal/shared/storage/object"
	localstore "resumegen-api/internal/shared/storage/object/local"
	s3store "resumegen-api/internal/shared/storage/object/s3"
	"resumegen-api/internal/shared/telemetry"
	"resumegen-api/internal/users"
)

const (
	llmRetryAttempts = 3
	llmRetryDelay    = 500 * time.Millisecond
	sweepInterval    = time.Minute
)

// App holds shared dependencies and the wired router.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Redis        *redis.Client
	Store        object.Store
	Queue        queue.Client
	Limiter      ratelimit.Limiter
	LLM          llm.Client
	Orchestrator *orchestrator.Orchestrator

	Credits   *credits.Service
	Resumes   *resumes.Service
	Chat      *chat.Coordinator
	Documents *documents.Service
	Users     *users.Service

	GoogleAuth *googleauth.GoogleService

	stop context.CancelFunc
}

// Option adjusts Build for tests and alternate entrypoints.
type Option func(*buildOptions)

type buildOptions struct {
	llmClient llm.Client
	queue     queue.Client
}

// WithLLMClient replaces the provider client chosen from config.
func WithLLMClient(c llm.Client) Option {
	return func(o *buildOptions) { o.llmClient = c }
}

// WithQueue replaces the SQS client chosen from config.
func WithQueue(q queue.Client) Option {
	return func(o *buildOptions) { o.queue = q }
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.FreeCredits < 0 {
		cfg.FreeCredits = credits.DefaultFreeCredits
	}
	ctx, stop := context.WithCancel(context.Background())

	app := &App{Config: cfg, stop: stop}
	var err error

	if app.DB, err = buildDB(ctx, cfg); err != nil {
		stop()
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		stop()
		return nil, err
	}

	if bo.queue != nil {
		app.Queue = bo.queue
	} else if q, err := buildQueue(ctx, cfg); err != nil {
		stop()
		return nil, err
	} else if q != nil {
		app.Queue = q
	}

	app.Redis, app.Limiter = buildLimiter(ctx, cfg)

	if bo.llmClient != nil {
		app.LLM = bo.llmClient
	} else if app.LLM, err = NewLLMClient(cfg); err != nil {
		stop()
		return nil, err
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		ResumeHandler:   resumes.NewHandler(app.Resumes),
		ChatHandler:     chat.NewHandler(app.Chat),
		CreditHandler:   credits.NewHandler(app.Credits),
		DocumentHandler: documents.NewHandler(app.Documents),
		UserHandler:     users.NewHandler(app.Users),
		GoogleAuth:      app.GoogleAuth,
		Limiter:         app.Limiter,
		Ready:           app.ready,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"postgres":     app.DB != nil,
		"redis":        app.Redis != nil,
		"queue":        app.Queue != nil,
		"object_store": cfg.ObjectStoreType,
	})
	return app, nil
}

// Close releases background work and connections.
func (a *App) Close() error {
	if a.stop != nil {
		a.stop()
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) ready(ctx context.Context) error {
	if err := db.Ping(ctx, a.DB, 0); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.OpenForRuntime(ctx, cfg.DatabaseURL)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	// Deployed environments migrate through cmd/migrate.
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue returns nil when no queue is configured; async generation then answers 503.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.QueueURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildLimiter prefers a shared Redis window and falls back to process memory.
func buildLimiter(ctx context.Context, cfg config.Config) (*redis.Client, ratelimit.Limiter) {
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		client, err := ratelimit.NewRedisClient(pingCtx, url)
		cancel()
		if err == nil {
			return client, ratelimit.NewRedisLimiter(client)
		}
		telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err})
	}

	mem := ratelimit.NewMemoryLimiter()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mem.Sweep(now)
			}
		}
	}()
	return nil, mem
}

// NewLLMClient builds the configured provider client wrapped with retries.
// Dev environments fall back to the placeholder client when keys are missing.
func NewLLMClient(cfg config.Config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.LLMProvider {
	case "openai":
		base, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMMaxTokens)
	case "none":
		return llm.PlaceholderClient{}, nil
	default:
		base, err = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMMaxTokens)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider, "error": err})
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
	}
	return llm.WithRetry(base, llmRetryAttempts, llmRetryDelay), nil
}

func buildServices(app *App) {
	var (
		resumeRepo  resumes.Repo
		messageRepo chat.Repo
		docRepo     documents.Repo
		userRepo    users.Repo
	)
	if app.DB != nil {
		resumeRepo = &resumes.PGRepo{DB: app.DB}
		messageRepo = &chat.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		app.Credits = credits.NewPostgresService(credits.NewPGStore(app.DB), app.Config.FreeCredits)
	} else {
		resumeRepo = resumes.NewMemoryRepo()
		messageRepo = chat.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		app.Credits = credits.NewService(app.Config.FreeCredits)
	}

	app.Orchestrator = orchestrator.New(app.LLM, orchestrator.Options{MaxTokens: app.Config.LLMMaxTokens})

	app.Resumes = &resumes.Service{
		Repo:      resumeRepo,
		Credits:   app.Credits,
		Generator: app.Orchestrator,
		Queue:     app.Queue,
		Messages:  messageRepo,
	}
	app.Chat = &chat.Coordinator{
		Resumes:  app.Resumes,
		Messages: messageRepo,
		Model:    app.Orchestrator,
	}
	app.Documents = &documents.Service{Store: app.Store, Repo: docRepo}
	app.Users = users.NewService(userRepo, app.Credits)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.Users,
	)
}
