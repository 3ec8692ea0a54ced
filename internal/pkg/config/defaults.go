package config

// Default values for configuration.
const (
	// Path defaults
	DefaultRawDir       = "telegram/exports/raw_json"
	DefaultProcessedDir = "telegram/exports/processed_json"
	DefaultOutDir       = "output"
	DefaultAggDir       = "output/agg"

	// Server defaults
	DefaultServerHost             = "0.0.0.0"
	DefaultServerPort             = 8080
	DefaultShutdownTimeoutSeconds = 15
	DefaultMaxUploadSizeMB        = 100

	// Processing defaults
	DefaultTaskTTLMinutes  = 60
	DefaultCacheTTLMinutes = 60

	// Analysis defaults
	DefaultMinAuthorMessages = 1000
	DefaultMattrWindow       = 1000

	// Logging defaults
	DefaultLogLevel = "info"
)
