package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reverie/internal/config"
	"reverie/internal/pipeline"
	"reverie/internal/queue"
	"reverie/internal/storage"
	"reverie/internal/worker"
	"reverie/pkg/cache"
	"reverie/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Initialize logger
	debug := true
	if err := logger.Init(debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting reverie worker service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
		return
	}

	// Connect to database
	db, err := storage.NewPostgresStorage(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
		return
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Initialize S3 storage from config
	s3Storage, err := storage.NewS3Storage(
		cfg.S3.Endpoint,
		cfg.S3.Region,
		cfg.S3.AccessKey,
		cfg.S3.SecretKey,
		cfg.S3.Bucket,
	)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	logger.Info("S3 storage initialized")

	// Initialize the normalization pipeline
	llm, err := pipeline.NewOpenAILLM(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel)
	if err != nil {
		logger.Fatal("Failed to initialize chat model client", zap.Error(err))
		return
	}

	speech, err := pipeline.NewOpenAISpeech(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.TranscribeModel)
	if err != nil {
		logger.Fatal("Failed to initialize transcription client", zap.Error(err))
		return
	}

	pipe := pipeline.New(llm, speech)

	logger.Info("Normalization pipeline initialized",
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("transcribe_model", cfg.OpenAI.TranscribeModel))

	// Initialize Telegram bot
	botSettings := tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
	}

	bot, err := tele.NewBot(botSettings)
	if err != nil {
		logger.Fatal("Failed to create Telegram bot", zap.Error(err))
		return
	}

	logger.Info("Telegram bot initialized")

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		24*time.Hour,
	)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	// Create processor
	processor := worker.NewProcessor(db, s3Storage, pipe, bot, redisCache)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		go func(n int) {
			logger.Info("Starting queue consumer", zap.Int("consumer", n))
			if err := rabbitMQ.Consume(queue.QueueNameEntryProcessing, processor.ProcessTask); err != nil {
				logger.Error("Failed to consume messages", zap.Error(err))
				cancel()
			}
		}(i)
	}

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Worker service shutdown complete")
}
