package state

import (
	"context"
	"fmt"

	"clinic-call-backend/config"
)

// New builds the holder selected by cfg.Backend.
func New(ctx context.Context, cfg config.StateConfig) (Holder, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryHolder(), nil
	case "redis":
		h, err := NewRedisHolder(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
