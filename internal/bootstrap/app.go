package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"reflection-backend/internal/generations"
	"reflection-backend/internal/llm"
	"reflection-backend/internal/llm/gemini"
	"reflection-backend/internal/llm/openai"
	"reflection-backend/internal/reflection"
	"reflection-backend/internal/services/health"
	"reflection-backend/internal/shared/auth"
	"reflection-backend/internal/shared/config"
	"reflection-backend/internal/shared/server"
	"reflection-backend/internal/shared/server/middleware"
	"reflection-backend/internal/shared/storage/db"
	"reflection-backend/internal/shared/storage/object"
	localstore "reflection-backend/internal/shared/storage/object/local"
	s3store "reflection-backend/internal/shared/storage/object/s3"
	"reflection-backend/internal/shared/telemetry"
	"reflection-backend/internal/usage"
)

const defaultArchivePrefix = "reflection/"

// App holds shared dependencies.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Redis             *redis.Client
	LLM               *llm.Lazy
	Archive           object.ObjectStore
	GenerationsRepo   generations.Repo
	UsageService      *usage.Service
	GenerationService *reflection.Service
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.Init(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Archive: archive,
		LLM:     llm.NewLazy(ClientBuilder(cfg)),
	}

	var limiter middleware.Limiter
	if rdb, err := buildRedis(cfg); err != nil {
		return nil, err
	} else if rdb != nil {
		app.Redis = rdb
		limiter = middleware.NewRedisLimiter(rdb, "reflection:ratelimit:", nil)
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: verifier,
		Limiter:  limiter,
		HealthHandler: health.NewHandler(&health.Service{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			LLM:      app.LLM,
			DB:       sqlDB,
			Archive:  cfg.ArchiveStore,
		}),
		GenerationHandler: reflection.NewHandler(app.GenerationService),
		HistoryHandler:    generations.NewHandler(app.GenerationsRepo),
		UsageHandler:      usage.NewHandler(app.UsageService),
	})
	return app, nil
}

// ClientBuilder returns the Builder for the configured provider. The API key
// is resolved on first use so a missing key surfaces per request.
func ClientBuilder(cfg config.Config) llm.Builder {
	return func(ctx context.Context) (llm.Client, error) {
		switch cfg.LLMProvider {
		case "gemini":
			key, err := llm.ResolveAPIKey(llm.EnvKey("GEMINI_API_KEY"), llm.EnvKey("LLM_API_KEY"))
			if err != nil {
				return nil, err
			}
			return gemini.NewClient(ctx, gemini.Options{APIKey: key, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout})
		default:
			key, err := llm.ResolveAPIKey(
				llm.EnvKey("OPENAI_API_KEY"),
				llm.EnvKey("LLM_API_KEY"),
				llm.FileKey("OPENAI_API_KEY_FILE"),
			)
			if err != nil {
				return nil, err
			}
			return openai.NewClient(openai.Options{
				APIKey:  key,
				Model:   cfg.LLMModel,
				BaseURL: cfg.OpenAIBaseURL,
				Timeout: cfg.LLMTimeout,
			})
		}
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("ARCHIVE_STORE=s3 requires S3_BUCKET")
		}
		prefix := cfg.S3Prefix
		if prefix == "" {
			prefix = defaultArchivePrefix
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func buildRedis(cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildServices(app *App) {
	cfg := app.Config
	plan := usage.Plan{Name: "Daily", Limit: cfg.DailyGenerationLimit}
	if app.DB != nil {
		app.GenerationsRepo = &generations.PGRepo{DB: app.DB}
		app.UsageService = usage.NewPostgresService(usage.NewPGStore(app.DB, plan))
	} else {
		app.GenerationsRepo = generations.NewMemoryRepo()
		app.UsageService = usage.NewService(plan)
	}

	svc := &reflection.Service{
		Router: reflection.NewRouter(app.LLM, reflection.Options{
			Policy:                       cfg.RetryPolicy(),
			StructuredReflectionFallback: cfg.StructuredFallback,
		}),
		Usage:    app.UsageService,
		Log:      app.GenerationsRepo,
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		Archive:  app.Archive,
	}
	app.GenerationService = svc
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
