package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/application/upload"
	infraconfig "github.com/legalintake/backend/internal/infrastructure/config"
)

// NewObjectStorage creates the configured storage backend
func NewObjectStorage(cfg *infraconfig.StorageConfig, logger *zap.Logger) (upload.ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "s3":
		return NewS3ObjectStorage(cfg, WithLogger(logger), WithPresignExpiration(cfg.PresignDuration))
	case "local", "":
		return NewLocalObjectStorage(cfg.LocalDir, "")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
