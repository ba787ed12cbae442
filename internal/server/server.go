package server

import (
	"time"

	"github.com/braincandydan/The-Hunt-sub000/internal/auth"
	"github.com/braincandydan/The-Hunt-sub000/internal/completion"
	"github.com/braincandydan/The-Hunt-sub000/internal/config"
	"github.com/braincandydan/The-Hunt-sub000/internal/descent"
	"github.com/braincandydan/The-Hunt-sub000/internal/session"
	"github.com/braincandydan/The-Hunt-sub000/internal/stream"
	"github.com/braincandydan/The-Hunt-sub000/internal/tracker"
	"github.com/braincandydan/The-Hunt-sub000/internal/trail"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func trackerConfig(cfg config.Config) tracker.Config {
	tc := tracker.DefaultConfig()
	if cfg.ProximityM > 0 {
		tc.ProximityM = cfg.ProximityM
	}
	if cfg.CompletionFraction > 0 {
		tc.CompletionFraction = cfg.CompletionFraction
	}
	if cfg.GracePeriodMs > 0 {
		tc.GracePeriod = time.Duration(cfg.GracePeriodMs) * time.Millisecond
	}
	return tc
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	trails := trail.NewService(s.DB)
	completions := completion.NewService(s.DB, trails)
	descents := descent.NewService(s.DB)
	sessions := session.NewService(s.DB, s.Stream, trails, completions, descents, trackerConfig(s.Cfg))

	trail.RegisterRoutes(s.App.Group("/trails"), trails)
	sessionGroup := s.App.Group("/sessions")
	session.RegisterRoutes(sessionGroup, sessions, jwtMiddleware)
	descent.RegisterRoutes(sessionGroup, descents, jwtMiddleware)
	completion.RegisterRoutes(s.App.Group("/completions"), completions, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
