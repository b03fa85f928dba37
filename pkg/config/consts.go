package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// qualified names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BOOKINGTMS_DB_DSN"
	EnvDBHost = "BOOKINGTMS_DB_HOST"
	EnvDBUser = "BOOKINGTMS_DB_USER"
	EnvDBName = "BOOKINGTMS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
