package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"pressroom/internal/config"
	"pressroom/internal/logger"
	"pressroom/internal/publish"
	"pressroom/internal/pubsub"
	"pressroom/internal/repository"
	"pressroom/internal/service"
	"pressroom/internal/worker/activation"
	"pressroom/internal/worker/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Worker mode: retry|activation")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Initialize DB connection pool
	pool, err := pgxpool.New(context.Background(), cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Initialize Pub/Sub publisher so promotions hit the dispatch topic
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg.GCPProjectID)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}
	notifier := pubsub.NewDispatchNotifier(pubSubPublisher, cfg.PubSubDispatchTopic)

	queueRepo := repository.NewQueueRepo(pool)
	queueSvc := service.NewQueueService(queueRepo, notifier, service.QueueConfig{
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: time.Duration(cfg.QueueBackoffBaseSec) * time.Second,
		BackoffMax:  time.Duration(cfg.QueueBackoffMaxSec) * time.Second,
	}, logger)

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Dispatch to the selected worker
	var runErr error
	switch *mode {
	case "retry":
		dispatchSvc, err := buildDispatchService(cfg, pool, queueSvc, queueRepo, logger)
		if err != nil {
			logger.Fatal().Msgf("Failed to build dispatch service: %v", err)
		}
		runErr = retry.Run(ctx, logger, queueRepo, dispatchSvc, retry.Config{
			Platform:     cfg.RetryPlatformFilter,
			BatchLimit:   cfg.RetryBatchLimit,
			MaxWallClock: time.Duration(cfg.RetryMaxWallClockMs) * time.Millisecond,
			Interval:     time.Duration(cfg.RetryIntervalSec) * time.Second,
		})
	case "activation":
		runErr = activation.Run(ctx, logger, queueRepo, queueSvc, activation.Config{
			Platform:     cfg.ActivationPlatformFilter,
			BatchLimit:   cfg.ActivationBatchLimit,
			MaxWallClock: time.Duration(cfg.ActivationMaxWallClockMs) * time.Millisecond,
			Interval:     time.Duration(cfg.ActivationIntervalSec) * time.Second,
			StaleAfter:   time.Duration(cfg.ActivationStaleAfterSec) * time.Second,
		})
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s worker failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s worker stopped gracefully", *mode)
}

// buildDispatchService wires the full publish path; only the retry worker
// needs it, the activation worker just promotes.
func buildDispatchService(cfg *config.Config, pool *pgxpool.Pool, queueSvc service.QueueService, queueRepo repository.QueueRepository, log zerolog.Logger) (service.DispatchService, error) {
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	var secretStore service.WebhookSecretStore
	if cfg.WebhookSecretsInSecretManager {
		secretStore, err = service.NewGCPSecretStore(context.Background(), cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
	} else {
		secretStore = service.NewRowSecretStore()
	}

	registry := publish.NewRegistry()
	bridgeTimeout := time.Duration(cfg.PlatformBridgeTimeoutSec) * time.Second
	for platform, endpoint := range cfg.PlatformBridges {
		registry.Register(platform, publish.NewHTTPAdapter(platform, endpoint, bridgeTimeout, log))
	}

	contentSvc := service.NewContentService(repository.NewContentRepo(pool), s3Client, cfg.S3Bucket)
	webhookSvc := service.NewWebhookService(repository.NewWebhookRepo(pool), repository.NewDeliveryLogRepo(pool), secretStore, service.WebhookConfig{
		FailureThreshold: cfg.WebhookFailureThreshold,
		DeliveryTimeout:  time.Duration(cfg.WebhookTimeoutSec) * time.Second,
	}, log)

	return service.NewDispatchService(queueSvc, queueRepo, contentSvc, registry, webhookSvc, log), nil
}
