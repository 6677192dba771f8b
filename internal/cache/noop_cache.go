package cache

import (
	"context"
	"time"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

// NoopUserCache satisfies UserCache without caching anything. Used when
// redis is not configured; every Get reports a miss.
type NoopUserCache struct{}

func NewNoopUserCache() *NoopUserCache { return &NoopUserCache{} }

func (NoopUserCache) Get(ctx context.Context, key string) (*domain.User, error) {
	return nil, ErrCacheMiss
}

func (NoopUserCache) Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error {
	return nil
}

func (NoopUserCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (NoopUserCache) BuildKeyByID(userID string) string   { return "user:id:" + userID }
func (NoopUserCache) BuildKeyByEmail(email string) string { return "user:email:" + email }
func (NoopUserCache) Close() error                        { return nil }
