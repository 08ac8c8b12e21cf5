package context

import (
	"fmt"

	"github.com/aurastack/aura/internal/common/config"

	"go.uber.org/zap"
)

// NewStore creates a context store backend based on the configuration.
func NewStore(logger *zap.Logger, cfg *config.ContextStoreConfig) (Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(logger, cfg.DefaultTTL, cfg.SweepInterval), nil
	case "redis":
		return NewRedisStore(logger, &cfg.Redis, cfg.DefaultTTL)
	default:
		return nil, fmt.Errorf("unsupported context store type: %s", cfg.Type)
	}
}
