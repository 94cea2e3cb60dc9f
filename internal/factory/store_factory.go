package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/adapters/cache"
	"github.com/arjun/sms-guard/internal/adapters/reputation"
	"github.com/arjun/sms-guard/internal/adapters/store"
	"github.com/arjun/sms-guard/internal/config"
	"github.com/arjun/sms-guard/internal/core"
)

// StorageFactory creates the reputation store, the message store, and
// the result cache based on configuration.
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationStore creates a reputation store based on the configuration
func (f *StorageFactory) CreateReputationStore() (core.ReputationStore, error) {
	switch f.cfg.GetString("reputation.type") {
	case "memory":
		return reputation.NewMemoryStore(f.logger), nil
	case "sqlite":
		path := f.cfg.GetString("reputation.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return reputation.NewSQLiteStore(path, f.logger)
	case "mysql":
		return reputation.NewMySQLStore(f.cfg.GetString("reputation.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported reputation store type: %s", f.cfg.GetString("reputation.type"))
	}
}

// CreateMessageStore creates a message store based on the configuration
func (f *StorageFactory) CreateMessageStore() (core.MessageStore, error) {
	switch f.cfg.GetString("store.type") {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		path := f.cfg.GetString("store.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(path, f.logger)
	default:
		return nil, fmt.Errorf("unsupported message store type: %s", f.cfg.GetString("store.type"))
	}
}

// CreateResultCache creates the bounded LRU result cache
func (f *StorageFactory) CreateResultCache() (core.ResultCache, error) {
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	capacity := f.cfg.GetInt("cache.capacity")
	return cache.NewLRUCache(capacity, cleanupFreq, f.logger), nil
}

// GetCacheTTL returns the configured cache TTL
func (f *StorageFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}
