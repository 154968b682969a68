// Package cache holds the redis-backed read-through cache for singleton documents.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/model"
)

// DocumentCache stores serialized documents under config.CacheKey.DocumentKey.
type DocumentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDocumentCache(rdb *redis.Client, ttl time.Duration) *DocumentCache {
	return &DocumentCache{rdb: rdb, ttl: ttl}
}

type cachedDocument struct {
	Kind      model.DocumentKind `json:"kind"`
	Body      json.RawMessage    `json:"body"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Get returns the cached document of kind. A miss is reported as (nil, nil).
func (c *DocumentCache) Get(ctx context.Context, kind model.DocumentKind) (*model.StoredDocument, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.DocumentKey(string(kind))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached %s: %w", kind, err)
	}

	var cd cachedDocument
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", kind, err)
	}
	return &model.StoredDocument{
		Kind:      cd.Kind,
		Body:      cd.Body,
		CreatedAt: cd.CreatedAt,
		UpdatedAt: cd.UpdatedAt,
	}, nil
}

// maxSetAttempts bounds retries when a concurrent writer touches the key
// between WATCH and EXEC.
const maxSetAttempts = 3

// Set caches doc for the configured TTL unless the cached copy is at least
// as new. Readers filling the cache after a miss and writers storing a
// committed document both go through here, so a reader holding a document
// read before a write can never replace the written one.
func (c *DocumentCache) Set(ctx context.Context, doc *model.StoredDocument) error {
	key := config.CacheKey.DocumentKey(string(doc.Kind))
	raw, err := json.Marshal(cachedDocument{
		Kind:      doc.Kind,
		Body:      doc.Body,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Kind, err)
	}

	setIfNewer := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cached cachedDocument
			if json.Unmarshal(current, &cached) == nil && !cached.UpdatedAt.Before(doc.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		err = c.rdb.Watch(ctx, setIfNewer, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("set cached %s: %w", doc.Kind, err)
	}
	return nil
}

// Invalidate drops the cached document of kind.
func (c *DocumentCache) Invalidate(ctx context.Context, kind model.DocumentKind) error {
	return c.rdb.Del(ctx, config.CacheKey.DocumentKey(string(kind))).Err()
}
