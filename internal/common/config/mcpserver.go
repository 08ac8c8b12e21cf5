package config

import "time"

type (
	// MCPServerConfig represents the MCP server configuration
	MCPServerConfig struct {
		Port    int                `yaml:"port"`
		Logger  LoggerConfig       `yaml:"logger"`
		Metrics MetricsConfig      `yaml:"metrics"`
		CORS    CORSConfig         `yaml:"cors"`
		Store   ContextStoreConfig `yaml:"store"`
		OpenAI  OpenAIConfig       `yaml:"openai"`
	}

	// ContextStoreConfig represents the context store configuration
	ContextStoreConfig struct {
		Type          string             `yaml:"type"`           // "memory" or "redis"
		DefaultTTL    time.Duration      `yaml:"default_ttl"`    // applied when a context is created without a TTL
		SweepInterval time.Duration      `yaml:"sweep_interval"` // background expiry sweep; 0 disables
		Redis         ContextRedisConfig `yaml:"redis"`
	}

	// ContextRedisConfig represents the Redis configuration for the context store
	ContextRedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}
)
