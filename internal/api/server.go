// Package api exposes the tracker over HTTP and pushes live notification
// events to connected clients over WebSocket.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/config"
	"github.com/shriniketh555/medcare/internal/tracker"
)

// Server handles the HTTP API and the WebSocket event stream.
type Server struct {
	app     *fiber.App
	config  *config.Config
	tracker *tracker.Tracker
	hub     *Hub
	logger  *zap.Logger
}

// New creates the API server. The hub is exposed so the caller can wire it
// into the notification fan-out.
func New(cfg *config.Config, trk *tracker.Tracker, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:     app,
		config:  cfg,
		tracker: trk,
		hub:     NewHub(logger),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// Hub returns the WebSocket event hub, itself a notification sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Server.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	api.Get("/medicines", s.handleListMedicines)
	api.Post("/medicines", s.handleAddMedicine)
	api.Get("/medicines/:id", s.handleGetMedicine)
	api.Put("/medicines/:id", s.handleUpdateMedicine)
	api.Delete("/medicines/:id", s.handleDeleteMedicine)

	api.Post("/intakes", s.handleSetIntakeStatus)
	api.Get("/intakes", s.handleListIntakes)

	api.Get("/schedule", s.handleSchedule)
	api.Get("/report", s.handleReport)

	api.Get("/profile", s.handleGetProfile)
	api.Put("/profile", s.handleSetProfile)

	api.Get("/export.csv", s.handleExportCSV)

	s.app.Get("/ws/events", websocket.New(s.hub.handleConn))
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("API server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	return s.app.ShutdownWithContext(ctx)
}
