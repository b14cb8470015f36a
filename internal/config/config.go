package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// WorkerTriggerSecret authenticates cron-style worker trigger requests
	// via the X-Worker-Secret header.
	WorkerTriggerSecret string `envconfig:"WORKER_TRIGGER_SECRET" required:"true"`

	// Object storage for content media assets
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Pub/Sub immediate-dispatch path
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID" required:"true"`
	PubSubDispatchTopic           string `envconfig:"PUBSUB_DISPATCH_TOPIC" default:"publish_dispatch"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	DispatchEndpointURL           string `envconfig:"DISPATCH_ENDPOINT_URL"`

	// When set, webhook signing secrets live in GCP Secret Manager instead
	// of the subscription row.
	WebhookSecretsInSecretManager bool `envconfig:"WEBHOOK_SECRETS_IN_SECRET_MANAGER" default:"false"`

	// Queue state machine settings
	QueueMaxAttempts    int `envconfig:"QUEUE_MAX_ATTEMPTS" default:"5"`
	QueueBackoffBaseSec int `envconfig:"QUEUE_BACKOFF_BASE_SEC" default:"60"`
	QueueBackoffMaxSec  int `envconfig:"QUEUE_BACKOFF_MAX_SEC" default:"3600"`

	// Retry worker settings
	RetryBatchLimit     int    `envconfig:"RETRY_BATCH_LIMIT" default:"50"`
	RetryMaxWallClockMs int    `envconfig:"RETRY_MAX_WALL_CLOCK_MS" default:"50000"`
	RetryIntervalSec    int    `envconfig:"RETRY_INTERVAL_SEC" default:"60"`
	RetryPlatformFilter string `envconfig:"RETRY_PLATFORM_FILTER"`

	// Activation worker settings
	ActivationBatchLimit     int    `envconfig:"ACTIVATION_BATCH_LIMIT" default:"100"`
	ActivationMaxWallClockMs int    `envconfig:"ACTIVATION_MAX_WALL_CLOCK_MS" default:"50000"`
	ActivationIntervalSec    int    `envconfig:"ACTIVATION_INTERVAL_SEC" default:"60"`
	ActivationPlatformFilter string `envconfig:"ACTIVATION_PLATFORM_FILTER"`
	// Queued items older than this get their dispatch notification
	// republished; 0 disables the pass.
	ActivationStaleAfterSec int `envconfig:"ACTIVATION_STALE_AFTER_SEC" default:"600"`

	// Webhook dispatcher settings
	WebhookFailureThreshold int `envconfig:"WEBHOOK_FAILURE_THRESHOLD" default:"5"`
	WebhookTimeoutSec       int `envconfig:"WEBHOOK_TIMEOUT_SEC" default:"30"`

	// Platform bridge endpoints, e.g. "linkedin:http://bridges:9000/linkedin,x:http://bridges:9000/x"
	PlatformBridges          map[string]string `envconfig:"PLATFORM_BRIDGES"`
	PlatformBridgeTimeoutSec int               `envconfig:"PLATFORM_BRIDGE_TIMEOUT_SEC" default:"120"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
