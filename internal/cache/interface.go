// Package cache provides a read-through cache for user profiles so
// per-event membership checks do not hammer the database.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type UserCache interface {
	Get(ctx context.Context, key string) (*domain.User, error)
	Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(userID string) string
	BuildKeyByEmail(email string) string
	Close() error
}
