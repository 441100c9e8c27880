package collections

import (
	"fmt"
	"strings"

	"github.com/tracesearch/trace-ablate/internal/config"
)

// NewStore creates a Store instance based on the configuration.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryStore(), nil

	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantUseTLS,
			Prefix: cfg.CollectionPrefix,
		})

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
