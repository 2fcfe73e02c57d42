package server

import (
	"github.com/gin-gonic/gin"

	"reflection-backend/internal/generations"
	"reflection-backend/internal/reflection"
	"reflection-backend/internal/services/health"
	"reflection-backend/internal/shared/auth"
	"reflection-backend/internal/shared/config"
	"reflection-backend/internal/shared/metrics"
	"reflection-backend/internal/shared/server/middleware"
	"reflection-backend/internal/usage"
)

// Rate-limit groups.
const (
	GroupGeneration = "GENERATION"
	GroupDefault    = "DEFAULT"
)

// RouterDeps carries the handlers and shared pieces the router mounts.
type RouterDeps struct {
	Config            config.Config
	Verifier          *auth.Verifier
	Limiter           middleware.Limiter
	HealthHandler     *health.Handler
	GenerationHandler *reflection.Handler
	HistoryHandler    *generations.Handler
	UsageHandler      *usage.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(rateLimitConfig(deps)),
	)
	var quota *usage.Service
	if deps.UsageHandler != nil {
		quota = deps.UsageHandler.Svc
	}
	registerMeRoutes(authed, quota)
	if deps.GenerationHandler != nil {
		deps.GenerationHandler.RegisterRoutes(authed)
	}
	if deps.HistoryHandler != nil {
		deps.HistoryHandler.RegisterRoutes(authed)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(authed)
		if deps.Config.Env == "dev" {
			deps.UsageHandler.RegisterDevRoutes(authed.Group("/dev"))
		}
	}

	return r
}

// rateLimitConfig limits generation calls to RATE_LIMIT_PER_MINUTE per
// principal; other authenticated routes get a looser default.
func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	perMinute := deps.Config.RateLimitPerMinute
	rules := map[string]middleware.RateLimitRule{
		GroupDefault: {Rate: 2, Burst: 60},
	}
	if perMinute > 0 {
		rules[GroupGeneration] = middleware.RateLimitRule{Rate: float64(perMinute) / 60, Burst: perMinute}
	}
	return middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: GroupDefault,
		Limiter:      deps.Limiter,
		GroupFor: func(c *gin.Context) string {
			switch c.FullPath() {
			case "/api/v1/ai", "/api/v1/generate":
				return GroupGeneration
			}
			return GroupDefault
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
