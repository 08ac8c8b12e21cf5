package config

type (
	// DBServiceConfig represents the database service configuration
	DBServiceConfig struct {
		Port    int           `yaml:"port"`
		Logger  LoggerConfig  `yaml:"logger"`
		Metrics MetricsConfig `yaml:"metrics"`
		CORS    CORSConfig    `yaml:"cors"`
		Query   QueryConfig   `yaml:"query"`
	}

	// QueryConfig bounds query execution on managed connections
	QueryConfig struct {
		DefaultLimit int `yaml:"default_limit"` // rows returned when the request omits a limit
		MaxLimit     int `yaml:"max_limit"`     // hard cap on requested limits
	}
)
