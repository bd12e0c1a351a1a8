package shared

import (
	"context"
	"time"
)

// StoredResponse is the cached outcome of a completed write request.
// Replaying it must perform zero additional ledger writes.
type StoredResponse struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// IdempotencyStore caches the first response for a given idempotency
// key+endpoint+actor combination so client retries can be replayed instead of
// re-executed.
type IdempotencyStore interface {
	// Get returns the stored response for the key, or nil if none exists.
	Get(ctx context.Context, key string) (*StoredResponse, error)

	// Put stores the response under the key with a TTL. Returns true if the
	// response was newly stored, false if a response already existed (the
	// existing response wins).
	Put(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) (bool, error)

	// Close releases resources held by the store.
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a stored response is replayed for. After it expires the
	// same key executes the request again.
	TTL time.Duration

	// Enabled determines whether idempotency replay is active
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
