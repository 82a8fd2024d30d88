package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duynhne/customer-service/config"
	database "github.com/duynhne/customer-service/internal/core"
	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/internal/core/repository/dynamo"
	"github.com/duynhne/customer-service/internal/core/repository/psql"
	"github.com/duynhne/customer-service/internal/core/repository/s3store"
	logicv1 "github.com/duynhne/customer-service/internal/logic/v1"
	v1 "github.com/duynhne/customer-service/internal/web/v1"
	"github.com/duynhne/customer-service/middleware"
)

func main() {
	// Load configuration from environment variables (with .env file support for local dev)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize structured logger
	logger, err := middleware.NewLoggerFromConfig(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Service starting",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("env", cfg.Service.Env),
		zap.String("port", cfg.Service.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	// Initialize OpenTelemetry tracing with centralized config
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
		} else {
			tp = provider
			logger.Info("Tracing initialized",
				zap.String("endpoint", cfg.Tracing.Endpoint),
				zap.Float64("sample_rate", cfg.Tracing.SampleRate),
			)
		}
	} else {
		logger.Info("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg.Profiling); err != nil {
			logger.Warn("Failed to initialize profiling", zap.Error(err))
		} else {
			logger.Info("Profiling initialized",
				zap.String("endpoint", cfg.Profiling.Endpoint),
			)
			defer middleware.StopProfiling()
		}
	} else {
		logger.Info("Profiling disabled (PROFILING_ENABLED=false)")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	awsCfg, err := database.LoadAWSConfig(startupCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	// Customer table: DynamoDB by default, PostgreSQL JSONB table when STORAGE_BACKEND=postgres
	var (
		table     domain.Table
		closeDB   = func() {}
		tableName = cfg.Storage.Table
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := database.Connect(startupCtx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		closeDB = pool.Close
		pgTable := psql.NewTable(pool, tableName, domain.AttrCustomerID)
		if cfg.Storage.AutoCreate {
			if err := pgTable.EnsureSchema(startupCtx); err != nil {
				logger.Fatal("Failed to create customer table", zap.Error(err))
			}
		}
		table = pgTable
		logger.Info("Database connection pool established",
			zap.String("table", tableName),
			zap.Int("max_connections", cfg.Database.MaxConnections),
			zap.String("pool_mode", cfg.Database.PoolMode),
			zap.String("pooler_type", cfg.Database.PoolerType),
		)
	default:
		client := database.NewDynamoDBClient(awsCfg, cfg.Storage)
		dynamoTable := dynamo.NewTable(client, tableName, domain.AttrCustomerID)
		if cfg.Storage.AutoCreate {
			if err := dynamoTable.EnsureTable(startupCtx); err != nil {
				logger.Fatal("Failed to create customer table", zap.Error(err))
			}
		}
		table = dynamoTable
		logger.Info("DynamoDB client initialized",
			zap.String("table", tableName),
			zap.String("region", cfg.Storage.Region),
			zap.String("endpoint", cfg.Storage.Endpoint),
		)
	}
	defer closeDB()

	bucket := s3store.NewBucket(database.NewS3Client(awsCfg, cfg.Blob), cfg.Blob.Bucket)
	logger.Info("S3 client initialized", zap.String("bucket", cfg.Blob.Bucket))

	customerHandler := v1.NewCustomerHandler(logicv1.NewCustomerService(table))
	imageHandler := v1.NewImageHandler(logicv1.NewImageService(bucket, cfg.Blob.Bucket, cfg.Blob.PublicDomain))

	r := gin.New()
	r.Use(gin.Recovery())

	var isShuttingDown atomic.Bool

	// Tracing middleware (must be first for context propagation)
	r.Use(middleware.TracingMiddleware())

	// Logging middleware (must be before Prometheus middleware)
	r.Use(middleware.LoggingMiddleware(logger))

	// Prometheus middleware
	if cfg.Metrics.Enabled {
		r.Use(middleware.PrometheusMiddleware())
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Customer API
	v1.RegisterRoutes(r, customerHandler, imageHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting customer service", zap.String("port", cfg.Service.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown - modern signal handling with context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Fail readiness first and wait for propagation.
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		logger.Info("Readiness drain delay started", zap.Duration("delay", drainDelay))
		time.Sleep(drainDelay)
		logger.Info("Readiness drain delay completed", zap.Duration("delay", drainDelay))
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server...", zap.Duration("timeout", shutdownTimeout))

	// Explicit cleanup sequence: HTTP Server → Database → Tracer

	// 1. Shutdown HTTP server (stop accepting new connections, wait for in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server shutdown complete")
	}

	// 2. Close database connections. AWS clients hold no resources beyond idle HTTP connections.
	closeDB()
	logger.Info("Storage clients closed")

	// 3. Shutdown tracer (flush pending spans)
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		} else {
			logger.Info("Tracer shutdown complete")
		}
	}

	logger.Info("Graceful shutdown complete")
}
