package config

// EnvPrefix scopes every environment variable read by envconfig.
const EnvPrefix = "stockroom"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "STOCKROOM_APP_ENV"
	EnvPort               = "STOCKROOM_APP_PORT"
	EnvDBDSN              = "STOCKROOM_DB_DSN"
	EnvDBHost             = "STOCKROOM_DB_HOST"
	EnvDBUser             = "STOCKROOM_DB_USER"
	EnvDBName             = "STOCKROOM_DB_NAME"
	EnvRedisURL           = "STOCKROOM_REDIS_URL"
	EnvJWTSecret          = "STOCKROOM_JWT_SECRET"
	EnvJWTIssuer          = "STOCKROOM_JWT_ISSUER"
	EnvGCPProjectID       = "STOCKROOM_GCP_PROJECT_ID"
	EnvGCSBucket          = "STOCKROOM_GCS_BUCKET_NAME"
	EnvPubSubOrdersTopic  = "STOCKROOM_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub    = "STOCKROOM_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubInvTopic     = "STOCKROOM_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubInvSub       = "STOCKROOM_PUBSUB_INVENTORY_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
