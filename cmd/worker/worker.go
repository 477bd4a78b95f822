package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/plagiarism"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/storage"
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
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	resultStore := plagiarism.NewResultStore(db)
	engine := plagiarism.NewEngine(cfg.ShingleSize, cfg.MatchNoiseFloor, cfg.MaxMatchedSources, plagiarism.StubProvider{})
	corpusBuilder := plagiarism.NewCorpusBuilder(db, cfg.CorpusLimit)
	notifier := services.NewNotificationService(db, cfg)
	processor := plagiarism.NewProcessor(resultStore, store, nil, corpusBuilder, engine, notifier,
		cfg.ShortTextThreshold, cfg.CheckTimeout)
	worker := plagiarism.NewWorker(processor, resultStore, cfg.WorkerRatePerMinute)

	// Create Asynq server: two concurrent checks, with retries backed off
	// 5s -> 10s -> 20s.
	server := asynq.NewServer(
		config.AsynqRedisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				cfg.CheckQueue: 1,
			},
			RetryDelayFunc: queue.RetryDelay(cfg.CheckRetryBaseDelay),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err.Error())
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskPlagiarismCheck, worker.HandleCheck)

	logger.Info("Starting originality check worker",
		"concurrency", cfg.WorkerConcurrency,
		"queue", cfg.CheckQueue,
		"rate_per_minute", cfg.WorkerRatePerMinute,
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
