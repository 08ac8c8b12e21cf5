package config

import "time"

type (
	// GatewayConfig represents the API gateway configuration
	GatewayConfig struct {
		Port    int           `yaml:"port"`
		Logger  LoggerConfig  `yaml:"logger"`
		Metrics MetricsConfig `yaml:"metrics"`
		CORS    CORSConfig    `yaml:"cors"`
		OpenAI  OpenAIConfig  `yaml:"openai"`
		Upload  UploadConfig  `yaml:"upload"`
		JWT     JWTConfig     `yaml:"jwt"`
		Routes  RoutesConfig  `yaml:"routes"`
	}

	// UploadConfig represents the file upload configuration
	UploadConfig struct {
		Dir       string `yaml:"dir"`         // directory for stored uploads
		MaxSizeMB int    `yaml:"max_size_mb"` // maximum upload size in MB
	}

	// JWTConfig represents the gateway authentication configuration.
	// Auth is enabled when a secret key is configured.
	JWTConfig struct {
		SecretKey     string        `yaml:"secret_key"`
		Duration      time.Duration `yaml:"duration"`
		AdminUsername string        `yaml:"admin_username"`
		AdminPassword string        `yaml:"admin_password"`
	}

	// RoutesConfig holds downstream service addresses for proxied routes
	RoutesConfig struct {
		AgentServiceURL    string `yaml:"agent_service_url"`    // MCP server base URL for /agent/* routes
		DatabaseServiceURL string `yaml:"database_service_url"` // database service base URL
	}
)
