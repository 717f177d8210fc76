package hosting

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/m3ushelf/src/features/auth"
	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/features/metrics"
	"github.com/contre95/m3ushelf/src/features/playlists"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, playlistService *playlists.Service) *Server {
	serverCfg := cfg.Get().Server

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("Internal Server Error", "error", err, "path", c.Path())
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
		AppName:               "m3ushelf",
		DisableStartupMessage: true,
		EnablePrintRoutes:     serverCfg.PrintRoutes,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		// Bodies above BodyLimit are streamed to the handler instead of buffered.
		StreamRequestBody: true,
		BodyLimit:         int(cfg.Get().Upload.MaxJSONBytes) + 64*1024,
		ReadTimeout:       serverCfg.ReadTimeout,
		WriteTimeout:      serverCfg.WriteTimeout,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	metrics.RegisterRoutes(app)

	api := app.Group("/api")
	if serverCfg.RateLimit > 0 {
		api.Use(RateLimitMiddleware(serverCfg.RateLimit))
	}
	api.Use(auth.Middleware(cfg))

	config.RegisterRoutes(api, cfg)
	playlists.RegisterRoutes(api, playlistService)

	return &Server{app: app, port: serverCfg.Port}
}

// RateLimitMiddleware allows perMinute requests per client IP.
func RateLimitMiddleware(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			slog.Warn("Rate limit reached", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		},
	})
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
