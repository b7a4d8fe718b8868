package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// PresenceCache is an in-memory projection of per-room online membership.
// It is rebuildable from the participant store at any time and is never the
// source of truth; the durable participant rows are.
type PresenceCache interface {
	SetOnline(ctx context.Context, roomID, userID string) error
	SetOffline(ctx context.Context, roomID, userID string) error
	OnlineCount(ctx context.Context, roomID string) (int, error)
	Close() error
}

// HistoryCache caches history pages. Keys embed a per-room version that is
// bumped on every message mutation, so stale pages age out immediately
// instead of waiting for the TTL.
type HistoryCache interface {
	Key(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) string
	Get(ctx context.Context, key string) ([]domain.Message, error)
	Set(ctx context.Context, key string, messages []domain.Message, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID string) error
	Close() error
}
