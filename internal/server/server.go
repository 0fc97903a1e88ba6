package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/silverhost/panel/internal/api/http"
	"github.com/silverhost/panel/internal/api/middleware"
	"github.com/silverhost/panel/internal/files"
	"github.com/silverhost/panel/internal/infrastructure/config"
	"github.com/silverhost/panel/internal/infrastructure/logging"
	"github.com/silverhost/panel/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	engine  *files.Service
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing panel file service",
		zap.String("port", cfg.Server.Port),
		zap.String("base_path", cfg.Files.BasePath),
	)

	// Initialize metrics first (needed by the engine)
	metrics := monitoring.NewMetrics()

	// Initialize file engine
	engineCfg := files.DefaultConfig(cfg.Files.BasePath)
	engineCfg.MaxUploadBytes = cfg.Files.MaxUploadBytes
	engine, err := files.NewService(engineCfg, logger)
	if err != nil {
		return nil, err
	}
	engine = engine.WithMetrics(metrics)
	logger.Info("File engine initialized", zap.String("base_path", cfg.Files.BasePath))

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Operational endpoints
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "panel-files",
			"status":  "running",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", func(c *gin.Context) {
		snap := metrics.Snapshot()
		avg := 0.0
		if snap.RequestCount > 0 {
			avg = snap.TotalDuration / float64(snap.RequestCount)
		}
		c.JSON(200, gin.H{
			"total_requests":      snap.TotalRequests,
			"total_errors":        snap.TotalErrors,
			"avg_request_seconds": avg,
		})
	})

	// Tenant-scoped API
	handlers := apihttp.NewHandlers(engine, logger)
	api := router.Group("/api")
	api.Use(middleware.Tenant())
	handlers.Register(api)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		engine:  engine,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the gin engine, used by tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.logger.Sync()
	return nil
}
