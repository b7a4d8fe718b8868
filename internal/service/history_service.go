package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/cache"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type historyService struct {
	messages repository.MessageRepository
	cache    cache.HistoryCache // optional
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewHistoryService creates the history reader. cache may be nil, in which
// case every read goes to the store.
func NewHistoryService(messages repository.MessageRepository, historyCache cache.HistoryCache, cacheTTL time.Duration) HistoryService {
	return &historyService{
		messages: messages,
		cache:    historyCache,
		cacheTTL: cacheTTL,
	}
}

// GetRoomMessages returns a history page ordered by persisted timestamp.
// The latest page (offset 0) always reads the store so a fresh send is
// immediately visible; deeper pages are cached with singleflight dedupe.
func (s *historyService) GetRoomMessages(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) ([]domain.Message, error) {
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	if s.cache == nil || offset == 0 {
		return s.messages.ListByRoom(ctx, roomID, limit, offset, includeDeleted)
	}

	key := s.cache.Key(ctx, roomID, limit, offset, includeDeleted)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.fetchWithCache(ctx, roomID, limit, offset, includeDeleted, key)
	})
	if err != nil {
		return nil, err
	}

	messages, ok := result.([]domain.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

func (s *historyService) fetchWithCache(ctx context.Context, roomID string, limit, offset int, includeDeleted bool, key string) ([]domain.Message, error) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("history cache get error")
	}

	messages, err := s.messages.ListByRoom(ctx, roomID, limit, offset, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Store in cache off the response path.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, key, messages, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("history cache set error")
		}
	}()

	return messages, nil
}
