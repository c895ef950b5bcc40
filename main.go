package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payment-widget/internal/config"
	"payment-widget/internal/handlers"
	"payment-widget/internal/kafka"
	"payment-widget/internal/logger"
	"payment-widget/internal/middleware"
	"payment-widget/internal/monitor"
	rediswrap "payment-widget/internal/redis"
	"payment-widget/internal/services"
	"payment-widget/internal/storage"
	"payment-widget/internal/stripesdk"
	"payment-widget/internal/telemetry"
)

var log *logger.Logger

func main() {
	log = logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Payment Widget service starting up...")
	cfg := config.Load()
	log.Info("CONFIG", "Configuration loaded successfully")

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("TELEMETRY", "Failed to initialize tracing: "+err.Error())
	}

	var store storage.Store
	var dbHealth func() error
	if cfg.Database.Enabled {
		log.LogProcess("DATABASE", "Initializing MySQL database...")
		mysqlStore, err := storage.NewMySQLStore(cfg.Database, log)
		if err != nil {
			log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
		}
		defer mysqlStore.Close()
		store, dbHealth = mysqlStore, mysqlStore.HealthCheck
	} else {
		log.Warn("DATABASE", "DB_ENABLED is false, widget configurations are kept in memory")
		store = storage.NewInMemoryStore()
	}

	var lock services.SubmitLock
	var redisHealth func(context.Context) error
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer redisClient.Close()
		r := rediswrap.NewRedis(redisClient, cfg.Redis.LockTTL)
		if err := r.Ping(context.Background()); err != nil {
			log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
		}
		lock, redisHealth = r, r.Ping
		log.LogProcess("REDIS", "Redis connection successful, submit lock enabled")
	} else {
		log.Warn("REDIS", "REDIS_ADDR not set, submissions are only guarded within this process")
	}

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()

	contract, err := monitor.NewWidgetConfigMonitor()
	if err != nil {
		log.Fatal("MONITOR", "Failed to compile configuration contract: "+err.Error())
	}

	loader := stripesdk.NewLoader(cfg.Stripe, log)
	widgetService := services.NewWidgetService(loader, store, kafkaProducer, lock, services.Options{
		MountTarget:       cfg.Widget.MountTarget,
		ErrorDisplayDelay: cfg.Widget.ErrorDisplayDelay,
	}, log)
	log.LogProcess("SERVICE", "Widget service initialized")

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if !cfg.Kafka.MockMode {
		configConsumer, err := kafka.NewConfigConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ConfigTopic, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create Kafka consumer: "+err.Error())
		}
		defer configConsumer.Close()

		go func() {
			log.LogKafka("START", cfg.Kafka.ConfigTopic, "Starting configuration consumer")
			if err := configConsumer.ConsumeConfigs(consumerCtx, widgetService.HandleConfigUpdate); err != nil && consumerCtx.Err() == nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	widgetHandler := handlers.NewWidgetHandler(widgetService, contract, log)
	router := setupRouter(cfg.Server, widgetHandler, dbHealth, redisHealth)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "Health check available at: http://localhost"+cfg.Server.Port+"/health")
		log.Info("STARTUP", "Widget API available at: http://localhost"+cfg.Server.Port+"/api/v1/widgets")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")
	stopConsumer()

	// Destroying widgets ends open event streams, which lets Shutdown finish.
	widgetService.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error("SHUTDOWN", "Failed to flush traces: "+err.Error())
	}

	log.Info("SHUTDOWN", "Payment Widget service shutdown completed")
}

func setupRouter(cfg config.ServerConfig, widgetHandler *handlers.WidgetHandler, dbHealth func() error, redisHealth func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.RateLimit(log, cfg.RateLimit, cfg.RateBurst))

	router.GET("/health", func(c *gin.Context) {
		checks := gin.H{}
		status := http.StatusOK
		if dbHealth != nil {
			checks["database"] = "ok"
			if err := dbHealth(); err != nil {
				checks["database"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if redisHealth != nil {
			checks["redis"] = "ok"
			if err := redisHealth(c.Request.Context()); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    checks,
			"timestamp": time.Now().UTC(),
			"service":   "payment-widget",
			"version":   "1.0.0",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	widgetHandler.RegisterRoutes(router.Group("/api/v1"))

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
