package config

const (
	EnvPrefix = "LECTO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	ServiceKindAPI             = "api"
	ServiceKindCronWorker      = "cron-worker"
	ServiceKindOutboxPublisher = "outbox-publisher"

	EnvDBDSN      = "LECTO_DB_DSN"
	EnvDBHost     = "LECTO_DB_HOST"
	EnvDBUser     = "LECTO_DB_USER"
	EnvDBPassword = "LECTO_DB_PASSWORD"
	EnvDBName     = "LECTO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
