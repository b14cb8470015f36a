package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"pressroom/internal/api/v1/handler"
	"pressroom/internal/config"
	"pressroom/internal/middleware"
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
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}
	// For non-development environments that use a transaction pooler like pgbouncer,
	// we must use the simple query protocol to avoid issues with server-side prepared statements.
	if cfg.Environment != "development" {
		if !strings.Contains(dsn, "prefer_simple_protocol") {
			separator := "&"
			if !strings.Contains(dsn, "?") {
				separator = "?"
			}
			dsn += separator + "prefer_simple_protocol=true"
		}
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection pool: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client for media asset presigning
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for the immediate-dispatch path
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg.GCPProjectID)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		return nil, nil, err
	}
	notifier := pubsub.NewDispatchNotifier(pubSubPublisher, cfg.PubSubDispatchTopic)

	// 5. Webhook signing secrets live either on the subscription row or in
	// Secret Manager, depending on deployment.
	var secretStore service.WebhookSecretStore
	if cfg.WebhookSecretsInSecretManager {
		secretStore, err = service.NewGCPSecretStore(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
			return nil, nil, err
		}
	} else {
		secretStore = service.NewRowSecretStore()
	}

	// 6. Platform adapter registry from configured bridge endpoints
	registry := publish.NewRegistry()
	bridgeTimeout := time.Duration(cfg.PlatformBridgeTimeoutSec) * time.Second
	for platform, endpoint := range cfg.PlatformBridges {
		registry.Register(platform, publish.NewHTTPAdapter(platform, endpoint, bridgeTimeout, logger))
	}

	// 7. Initialize repositories & services & handlers
	queueRepo := repository.NewQueueRepo(pool)
	webhookRepo := repository.NewWebhookRepo(pool)
	deliveryRepo := repository.NewDeliveryLogRepo(pool)
	contentRepo := repository.NewContentRepo(pool)

	queueSvc := service.NewQueueService(queueRepo, notifier, service.QueueConfig{
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: time.Duration(cfg.QueueBackoffBaseSec) * time.Second,
		BackoffMax:  time.Duration(cfg.QueueBackoffMaxSec) * time.Second,
	}, logger)
	contentSvc := service.NewContentService(contentRepo, s3Client, cfg.S3Bucket)
	webhookSvc := service.NewWebhookService(webhookRepo, deliveryRepo, secretStore, service.WebhookConfig{
		FailureThreshold: cfg.WebhookFailureThreshold,
		DeliveryTimeout:  time.Duration(cfg.WebhookTimeoutSec) * time.Second,
	}, logger)
	dispatchSvc := service.NewDispatchService(queueSvc, queueRepo, contentSvc, registry, webhookSvc, logger)

	retryCfg := retry.Config{
		Platform:     cfg.RetryPlatformFilter,
		BatchLimit:   cfg.RetryBatchLimit,
		MaxWallClock: time.Duration(cfg.RetryMaxWallClockMs) * time.Millisecond,
	}
	activationCfg := activation.Config{
		Platform:     cfg.ActivationPlatformFilter,
		BatchLimit:   cfg.ActivationBatchLimit,
		MaxWallClock: time.Duration(cfg.ActivationMaxWallClockMs) * time.Millisecond,
		StaleAfter:   time.Duration(cfg.ActivationStaleAfterSec) * time.Second,
	}

	queueHandler := handler.NewQueueHandler(queueSvc, webhookSvc, validate, logger)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, validate, logger)
	workerHandler := handler.NewWorkerHandler(queueRepo, queueSvc, dispatchSvc, retryCfg, activationCfg, validate, logger)
	dispatchHandler := handler.NewDispatchHandler(dispatchSvc, logger)

	// 8. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	triggerAuthMiddleware := middleware.TriggerAuthMiddleware(cfg.WorkerTriggerSecret, cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.DispatchEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	// 9. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	queueHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	webhookHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	workerHandler.RegisterRoutes(apiV1Mux, triggerAuthMiddleware)
	dispatchHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Add Swagger documentation
	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger/swagger.json")
	})
	mux.Handle("/swagger/", http.StripPrefix("/swagger/", http.FileServer(http.Dir("./docs/swagger/swagger-ui"))))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 10. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
