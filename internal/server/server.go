package server

import (
	"context"
	"log"
	"time"

	"backend-pacetrack/internal/announce"
	"backend-pacetrack/internal/auth"
	"backend-pacetrack/internal/config"
	"backend-pacetrack/internal/history"
	"backend-pacetrack/internal/match"
	"backend-pacetrack/internal/run"
	"backend-pacetrack/internal/stream"
	"backend-pacetrack/internal/usage"

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

	Runs    *run.Service
	History *history.Service
	Usage   *usage.Governor
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

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	var store usage.Store = usage.NewMemoryStore()
	if s.Redis != nil {
		store = usage.NewRedisStore(s.Redis)
	}
	s.Usage = usage.NewGovernor(store, s.Cfg.UsageFreeTier)

	var matcher history.Matcher
	if s.Cfg.MatchAccessToken != "" {
		client := match.NewClient(s.Cfg.MatchBaseURL, s.Cfg.MatchAccessToken, s.Cfg.MatchProfile, s.Cfg.MatchRadiusM)
		matcher = match.NewOrchestrator(client, s.Usage, time.Duration(s.Cfg.MatchDelayMs)*time.Millisecond)
	}

	s.History = history.NewService(s.DB, matcher)
	s.Runs = run.NewService(s.History, announce.NewHubAnnouncer(s.Stream))

	// Kicked off after a stop that asked for matching. Detached from the
	// request context so the windowed pass outlives the response.
	startMatch := func(historyID string) {
		go func() {
			if _, err := s.History.MatchRun(context.Background(), historyID); err != nil {
				log.Printf("background match for %s failed: %v", historyID, err)
			}
		}()
	}

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	run.RegisterRoutes(s.App.Group("/runs"), s.Runs, startMatch, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/history"), s.History, jwtMiddleware)
	usage.RegisterRoutes(s.App.Group("/usage"), s.Usage)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
