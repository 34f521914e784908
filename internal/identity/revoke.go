package identity

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/redis"
)

// Revoker remembers logged-out credentials until they would have expired.
type Revoker interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const redisRevokedPrefix = "helpdesk:revoked:"

// tokenDigest keeps raw credentials out of the revocation store.
func tokenDigest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type MemoryRevoker struct {
	mu      sync.Mutex
	clock   clock.Clock
	revoked map[string]time.Time
}

func NewMemoryRevoker(c clock.Clock) *MemoryRevoker {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryRevoker{clock: c, revoked: make(map[string]time.Time)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, token string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for k, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, k)
		}
	}
	if until.After(now) {
		m.revoked[tokenDigest(token)] = until
	}
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenDigest(token)]
	if !ok {
		return false, nil
	}
	return exp.After(m.clock.Now()), nil
}

type RedisRevoker struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisRevoker(client *redis.Client, c clock.Clock) *RedisRevoker {
	if c == nil {
		c = clock.Real()
	}
	return &RedisRevoker{client: client, clock: c}
}

func (r *RedisRevoker) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Raw().Set(ctx, redisRevokedPrefix+tokenDigest(token), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Raw().Exists(ctx, redisRevokedPrefix+tokenDigest(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
