package imagestore

import (
	"context"
	"fmt"

	"github.com/spec-kit/adoption-service/internal/config"
)

// NewFromConfig returns the Store selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg config.ImageConfig) (Store, error) {
	switch cfg.Backend {
	case config.ImageBackendMemory:
		return NewMemoryStore(cfg.Prefix, cfg.PublicBaseURL), nil
	case config.ImageBackendS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 image backend requires a bucket")
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown image backend: %s", cfg.Backend)
	}
}
