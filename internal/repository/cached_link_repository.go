package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tinylink/urlshortener/internal/models"
	"go.uber.org/zap"
)

const linkCacheKeyPrefix = "tinylink:link:"

// CachedLinkRepository puts a Redis read-through cache in front of the
// active-link lookup used by redirects. Every other call goes straight to the
// wrapped store. Cache failures are logged and never fail the request.
type CachedLinkRepository struct {
	LinkRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedLinkRepository(inner LinkRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedLinkRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLinkRepository{LinkRepository: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func linkCacheKey(code string) string {
	return linkCacheKeyPrefix + code
}

func (r *CachedLinkRepository) GetActiveLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	key := linkCacheKey(code)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var link models.Link
		if jsonErr := json.Unmarshal(raw, &link); jsonErr == nil {
			return &link, nil
		}
		r.logger.Warn("discarding unreadable cached link", zap.String("code", code))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("link cache read failed", zap.String("code", code), zap.Error(err))
	}

	link, err := r.LinkRepository.GetActiveLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(link); err == nil {
		if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.logger.Warn("link cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return link, nil
}

// MarkDeleted evicts the cached entry so the link stops redirecting at once.
func (r *CachedLinkRepository) MarkDeleted(ctx context.Context, code string) error {
	if err := r.LinkRepository.MarkDeleted(ctx, code); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, linkCacheKey(code)).Err(); err != nil {
		r.logger.Warn("link cache eviction failed", zap.String("code", code), zap.Error(err))
	}
	return nil
}

func (r *CachedLinkRepository) Close() error {
	cacheErr := r.rdb.Close()
	if err := r.LinkRepository.Close(); err != nil {
		return err
	}
	return cacheErr
}
