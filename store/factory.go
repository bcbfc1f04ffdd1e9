package store

import (
	"fmt"

	"go.uber.org/zap"
)

// NewStore creates a new Store based on the configuration
func NewStore(config StoreConfig, logger *zap.Logger) (Store, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(config.Fingerprint, logger), nil
	case StoreTypeFile:
		return NewFileStore(config, logger)
	case StoreTypeRedis:
		return NewRedisStore(config, logger)
	case StoreTypeSQL:
		return NewSQLStore(config, logger)
	default:
		return nil, fmt.Errorf("unsupported marker store type: %s", config.Type)
	}
}

// MustNewStore creates a new Store or panics on error.
//
// WARNING: This function should ONLY be used during application initialization
// (e.g., in main()). For runtime store creation, use NewStore instead.
func MustNewStore(config StoreConfig, logger *zap.Logger) Store {
	s, err := NewStore(config, logger)
	if err != nil {
		panic(fmt.Sprintf("failed to create marker store: %v", err))
	}
	return s
}
