package cache

import (
	"fmt"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/manuerp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates the idempotency store named by the
// configuration. The redis backend falls back to the in-memory store when the
// connection fails, logged loudly, so a Redis outage degrades replay
// protection to per-instance rather than taking writes down.
func NewIdempotencyStore(cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case "inmemory":
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
		store, err := NewRedisIdempotencyStore(cfg.Redis)
		if err != nil {
			log.Error("redis idempotency store unavailable, falling back to in-memory",
				zap.String("addr", cfg.Redis.Addr()),
				zap.Error(err))
			return NewInMemoryIdempotencyStore(), nil
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}
