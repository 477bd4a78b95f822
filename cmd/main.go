package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/plagiarism"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/storage"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/middleware"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/routes"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Redis is used for HTTP rate limiting; the broker connection itself is
	// owned by the queue manager. A Redis outage here is not fatal - the
	// pipeline degrades to the inline fallback.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unreachable at startup; rate limiting disabled, checks will run inline", "error", err.Error())
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	// Pipeline wiring: one queue manager and one fallback runner for the
	// process lifetime, injected into the upload handler.
	queueManager := queue.NewManager(cfg)
	defer queueManager.Close()

	resultStore := plagiarism.NewResultStore(db)
	engine := plagiarism.NewEngine(cfg.ShingleSize, cfg.MatchNoiseFloor, cfg.MaxMatchedSources, plagiarism.StubProvider{})
	corpusBuilder := plagiarism.NewCorpusBuilder(db, cfg.CorpusLimit)
	notifier := services.NewNotificationService(db, cfg)
	processor := plagiarism.NewProcessor(resultStore, store, nil, corpusBuilder, engine, notifier,
		cfg.ShortTextThreshold, cfg.CheckTimeout)
	fallback := plagiarism.NewSyncRunner(processor, resultStore)

	maintenance := services.NewMaintenanceService(queueManager.Inspector(), db, cfg)
	go maintenance.Start()
	defer maintenance.Stop()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	routes.SetupSubmissionRoutes(router, authMiddleware, routes.SubmissionDeps{
		Config:      cfg,
		DB:          db,
		Store:       store,
		Queue:       queueManager,
		Fallback:    fallback,
		ResultStore: resultStore,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
