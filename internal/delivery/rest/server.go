package rest

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"hqbot/internal/application"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Pinger reports whether storage is reachable, for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Enabled      bool          `env:"ENABLED" envDefault:"false"`
	Addr         string        `env:"ADDR" envDefault:":8080"`
	GatewayToken string        `env:"GATEWAY_TOKEN" envDefault:""`
	RateLimit    int           `env:"RATE_LIMIT" envDefault:"100"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
}

// Server exposes the chifumi operations to the web backend. Callers are
// trusted gateways: they authenticate with a shared bearer token and pass
// the acting player's Discord id in a header.
type Server struct {
	app      *fiber.App
	cfg      Config
	services *application.Service
	health   Pinger
	logger   Logger
}

func NewServer(cfg Config, services *application.Service, health Pinger, logger Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "hqbot",
		Immutable:    true,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
		}))
	}

	s := &Server{
		app:      app,
		cfg:      cfg,
		services: services,
		health:   health,
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Init() error {
	if s.cfg.GatewayToken == "" {
		return errors.New("HTTP_GATEWAY_TOKEN is required when the HTTP API is enabled")
	}
	return nil
}

func (s *Server) Run(_ context.Context) {
	s.logger.Info("HTTP API listening on %s", s.cfg.Addr)
	if err := s.app.Listen(s.cfg.Addr); err != nil {
		s.logger.Error("HTTP API stopped: %v", err)
	}
}

func (s *Server) Stop() {
	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		s.logger.Warn("HTTP API shutdown: %v", err)
	}
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)

	games := s.app.Group("/games", GatewayAuth(s.cfg.GatewayToken, s.logger), RequireActor())
	games.Get("/pending", s.handlePending)
	games.Get("/history", s.handleHistory)
	games.Post("/", s.handleCreate)
	games.Get("/:id", s.handleGet)
	games.Post("/:id/accept", s.handleAccept)
	games.Post("/:id/decline", s.handleDecline)
	games.Post("/:id/choice", s.handleChoice)
}
