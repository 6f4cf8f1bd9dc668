// Package server wires the HTTP surface to the repositories and services.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/featureflags"
	"civicboard/internal/middleware"
	"civicboard/internal/models"
	"civicboard/internal/repository"
	"civicboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds the application state and its HTTP app.
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	app    *fiber.App
	prom   *fiberprometheus.FiberPrometheus
	flags  *featureflags.Manager

	itemRepo      repository.ItemRepository
	appraisalRepo repository.AppraisalRepository
	countyRepo    repository.CountyRepository
	banRepo       repository.BanRepository

	trendingService   *service.TrendingService
	moderationService *service.ModerationService
}

// NewServer creates a fully wired server: database, Redis, repositories,
// services, middleware and routes.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient()), nil
}

// NewServerWithDeps wires a server around pre-built dependencies. Tests use
// this with an in-memory database and a miniredis client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	s := &Server{
		config: cfg,
		db:     db,
		redis:  redisClient,
		flags:  featureflags.NewManager(cfg.FeatureFlags),
	}

	s.itemRepo = repository.NewItemRepository(db)
	s.appraisalRepo = repository.NewAppraisalRepository(db)
	s.countyRepo = repository.NewCountyRepository(db)
	s.banRepo = repository.NewBanRepository(db)

	s.trendingService = service.NewTrendingService(
		s.itemRepo, s.flags,
		cfg.TrendingDecay, cfg.TrendingLimit,
		time.Duration(cfg.TrendingCacheTTLSecs)*time.Second,
	)
	s.moderationService = service.NewModerationService(db, s.countyRepo)

	s.app = fiber.New(fiber.Config{
		AppName:      "civicboard",
		ErrorHandler: s.errorHandler,
	})

	s.SetupMiddleware()
	s.SetupRoutes()
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler converts errors that escape handlers into the standard body.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}
	slog.ErrorContext(c.UserContext(), "unhandled handler error", "err", err)
	return models.RespondWithAppError(c, err)
}

// SetupMiddleware registers the global middleware chain. Order matters:
// recovery and request identity come first so everything downstream logs
// with a request_id.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(middleware.ContextMiddleware())

	s.prom = middleware.InitMetrics("civicboard")
	s.prom.RegisterAt(s.app, "/metrics")
	s.app.Use(middleware.MetricsMiddleware(s.prom))

	if s.config.TracingEnabled {
		s.app.Use(middleware.TracingMiddleware())
	}

	s.app.Use(helmet.New())
	s.app.Use(middleware.StructuredLogger())

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	// Coarse global limiter; the write endpoints carry their own
	// Redis-backed budgets on top.
	s.app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health")
		},
	}))
}

// SetupRoutes registers all API routes.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.LivenessCheck)
	s.app.Get("/health/live", s.LivenessCheck)
	s.app.Get("/health/ready", s.ReadinessCheck)

	api := s.app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "civicboard metrics"}))

	// Public reads. Identity is optional and only enriches the response.
	api.Get("/items", s.GetItems)
	api.Get("/items/:id", s.GetItem)
	api.Get("/items/:id/appraisal/status", s.GetAppraisalStatus)
	api.Get("/trending", s.GetTrending)
	api.Get("/bans/:userId", s.GetBanStatus)

	// Authenticated writes. All of them sit behind the ban gate.
	protected := api.Group("", s.AuthRequired())
	protected.Post("/items", s.NotBanned(),
		middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_item"), s.CreateItem)
	protected.Post("/items/:id/appraisal/toggle", s.NotBanned(),
		middleware.RateLimit(s.redis, 30, time.Minute, "appraisal_toggle"), s.ToggleAppraisal)

	protected.Patch("/items/:id/status", s.AdminRequired(), s.NotBanned(), s.TransitionItemStatus)

	admin := protected.Group("/admin", s.AdminRequired(), s.NotBanned())
	admin.Post("/counties", s.AssignCounties)
	admin.Get("/counties/me", s.GetMyCounties)
	admin.Post("/bans", s.IssueBan)
	admin.Delete("/bans/:userId", s.RevokeBan)
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadinessCheck verifies the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok", "redis": "ok"}
	healthy := true

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unreachable"
		healthy = false
	}
	if s.redis == nil || s.redis.Ping(ctx).Err() != nil {
		checks["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(checks)
	}
	return c.JSON(checks)
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
