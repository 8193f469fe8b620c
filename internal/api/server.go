package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/datalog"
)

// BrickAPI is the subset of brick operations the HTTP handlers use.
type BrickAPI interface {
	GetBatteryLevel() (uint16, error)
	GetFirmwareVersion() (*brick.FwVersion, error)
	GetDeviceInfo() (*brick.DeviceInfo, error)
	GetInputValues(port brick.InPort) (*brick.InputValues, error)
	ListFiles(pattern string) ([]brick.FindFileHandle, error)
}

// Server is the REST monitor server for nxtd.
type Server struct {
	cfg   *config.Config
	brick BrickAPI
	store *datalog.Store

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server. The store may be nil when the
// datalog is disabled; the sample routes then report unavailability.
func NewServer(cfg *config.Config, b BrickAPI, store *datalog.Store) *Server {
	if cfg.GetDaemon().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:   cfg,
		brick: b,
		store: store,
	}
}

// Start runs the API server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.router = s.buildRouter()

	addr := fmt.Sprintf(":%d", s.cfg.GetDaemon().API.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("monitor API starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.GetDaemon().API.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/info", s.handleInfo)
		api.GET("/battery", s.handleBattery)
		api.GET("/sensors", s.handleSensors)
		api.GET("/files", s.handleFiles)
		api.GET("/host/cpu", s.handleHostCPU)
		api.GET("/host/memory", s.handleHostMemory)
		api.GET("/samples/recent", s.handleRecentSamples)
		api.GET("/files/recent", s.handleRecentFiles)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
