// Package api is the HTTP presentation layer: it accepts commands and
// structured intents, and exposes services, history, logs and tasks.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/api/handlers"
	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/database"
	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/pipeline"
	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/scheduler"
	"github.com/arrmate/arrmate/internal/websocket"
)

// Options are the components the server exposes. Pipeline, Registry and
// Config are required; the rest are optional and their routes answer 503
// when missing.
type Options struct {
	Pipeline  *pipeline.Pipeline
	Registry  *registry.Registry
	Config    func() *config.Config
	History   *history.Service
	Scheduler *scheduler.Scheduler
	Hub       *websocket.Hub
	Logs      LogsProvider
	Database  *database.Manager
}

// Server handles HTTP requests for the arrmate API.
type Server struct {
	echo      *echo.Echo
	opts      Options
	startTime time.Time
	logger    zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(opts Options, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		opts:      opts,
		startTime: time.Now(),
		logger:    logger.With().Str("component", "api").Logger(),
	}

	if opts.Hub != nil {
		opts.Hub.SetCommandHandler(func(ctx context.Context, p websocket.SubmitPayload) {
			s.opts.Pipeline.Run(ctx, pipeline.Command{Text: p.Command, DryRun: p.DryRun, Source: history.SourceWebSocket})
		})
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("requestId", v.RequestID).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// securityHeaders sets conservative browser headers and disables caching of
// API responses.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store")
			}
			return next(c)
		}
	}
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.opts.Hub != nil {
		s.echo.GET("/ws", s.opts.Hub.HandleWebSocket)
	}

	api := s.echo.Group("/api/v1")

	api.POST("/command", s.runCommand)
	api.POST("/intent", s.runIntent)

	api.GET("/services", s.listServices)
	api.GET("/config", s.getConfig)

	if s.opts.History != nil {
		history.NewHandlers(s.opts.History).RegisterRoutes(api.Group("/history"))
	} else {
		api.Any("/history*", unavailable("command history is disabled"))
	}

	system := api.Group("/system")
	system.GET("/status", s.getStatus)
	system.PUT("/demo", s.setDemoMode)

	if s.opts.Logs != nil {
		NewLogsHandlers(s.opts.Logs).RegisterRoutes(system.Group("/logs"))
	}

	if s.opts.Scheduler != nil {
		tasks := handlers.NewSchedulerHandler(s.opts.Scheduler)
		system.GET("/tasks", tasks.ListTasks)
		system.GET("/tasks/:id", tasks.GetTask)
		system.POST("/tasks/:id/run", tasks.RunTask)
	} else {
		system.Any("/tasks*", unavailable("scheduler is not running"))
	}
}

func unavailable(msg string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, msg)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
