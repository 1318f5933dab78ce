package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "STOCKBRIDGE_APP_ENV"
	EnvPort            = "STOCKBRIDGE_APP_PORT"
	EnvRedisURL        = "STOCKBRIDGE_REDIS_URL"
	EnvRemoteBaseURL   = "STOCKBRIDGE_REMOTE_BASE_URL"
	EnvWebhookSecret   = "STOCKBRIDGE_WEBHOOK_SHARED_SECRET"
	EnvGCPProjectID    = "STOCKBRIDGE_GCP_PROJECT_ID"
	EnvPubSubEventsSub = "STOCKBRIDGE_PUBSUB_EVENTS_SUBSCRIPTION"

	EnvDBDSN  = "STOCKBRIDGE_DB_DSN"
	EnvDBHost = "STOCKBRIDGE_DB_HOST"
	EnvDBUser = "STOCKBRIDGE_DB_USER"
	EnvDBName = "STOCKBRIDGE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
