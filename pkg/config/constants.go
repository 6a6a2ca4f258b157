package config

// EnvPrefix is intentionally empty: every variable carries the full
// RASTROMAX_ name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RASTROMAX_DB_DSN"
	EnvDBHost = "RASTROMAX_DB_HOST"
	EnvDBUser = "RASTROMAX_DB_USER"
	EnvDBName = "RASTROMAX_DB_NAME"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
