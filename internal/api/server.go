package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Controller is the part of the engine the API drives
type Controller interface {
	Snapshot() orchestrator.Snapshot
	Submit(cmd orchestrator.Command) bool
	ClosePosition(ctx context.Context, symbol string) (position.Position, error)
}

// Server serves the dashboard document, the control surface, metrics and health
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	engine     Controller
	hub        *WSHub
	health     http.Handler
	metrics    http.Handler
	logger     *logger.Logger
}

// NewServer builds the router; health and metrics may be nil
func NewServer(cfg config.APIConfig, engine Controller, hub *WSHub, health, metrics http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if hub == nil {
		hub = NewWSHub(cfg.AllowedOrigins, log)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log.With("http")))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:  router,
		config:  cfg,
		engine:  engine,
		hub:     hub,
		health:  health,
		metrics: metrics,
		logger:  log.With("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	if s.health != nil {
		s.router.GET("/health", gin.WrapH(s.health))
	}
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}
	s.router.GET("/ws", s.hub.serveWS(s.engine.Snapshot))

	api := s.router.Group("/api")
	{
		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/portfolio", s.handlePortfolio)
		api.GET("/risk", s.handleRisk)
		api.GET("/positions", s.handlePositions)
		api.GET("/positions/closed", s.handleClosedPositions)
		api.POST("/positions/:symbol/close", s.handleClosePosition)
		api.GET("/alerts", s.handleAlerts)
		api.GET("/signals", s.handleSignals)

		control := api.Group("/control")
		control.POST("/:command", s.handleControl)
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub the engine publishes to
func (s *Server) Hub() *WSHub { return s.hub }

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Status("listening on %s", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
