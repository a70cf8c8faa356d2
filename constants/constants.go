package constants

// Tables

const (
	LogTableNameDefault          = "requests" // the ever-growing event table is loaded with append semantics.
	ReservedTableSubstring       = "catalog"  // catalog/metadata tables are not real data tables.
	SchemaVersionLatest          = "latest"
	StagedObjectExtension        = ".csv"
	RawDumpExtension             = ".txt"
	DataDirName                  = "data"
	DownloadDirName              = "downloads"
	CsvDirName                   = "csvs"
	NullMarker                   = `\N`
	TimeFormatYearSeconds        = "20060102T150405" // used for human readable file names
	TimeFormatYearSecondsRegex   = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	StatsDumpFrequencySeconds    = 30
	CanvasDataBaseURLDefault     = "https://api.inshosteddata.com"
	ServiceName                  = "cdsync"
	ConfigDirName                = ".cdsync"
	ConfigFileName               = "config.yaml"
	EmojiBang                    = "\U0001F4A5"
	EnvVarPrefix                 = "CDS" // prefixed for optional environment variables
	EnvVar12FactorMode           = EnvVarPrefix + "_12FACTOR_MODE"
	EnvVarLogLevel               = EnvVarPrefix + "_LOG_LEVEL"
	EnvVarBucketName             = "BUCKET_NAME"
	EnvVarProjectName            = "PROJECT_NAME"
	EnvVarDatasetName            = "DATASET_NAME"
	EnvVarDatasetNameLegacy      = "TABLE_NAME" // older deployments named the dataset variable TABLE_NAME.
	EnvVarAPIKey                 = "API_KEY"
	EnvVarAPISecret              = "API_SECRET"
	StageTypeGCS                 = "gcs"
	StageTypeS3                  = "s3"
	WarehouseTypeBigQuery        = "bigquery"
	WarehouseTypeSnowflake       = "snowflake"
	ExitCodeOK                   = 0
	ExitCodeTableFailures        = 1
	ExitCodeFatal                = 2
	TwelveFactorModeLambda       = "lambda"
	DefaultWorkers               = 1
	DefaultWebServerPort         = 8080
	DefaultShutdownTimeoutSecond = 30
)
