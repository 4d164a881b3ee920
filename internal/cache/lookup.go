// Package cache provides a small Redis-backed cache for lookup-entity name
// maps. A nil *Lookup is valid and always falls through to the loader, so
// callers do not branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Lookup caches ID-to-name maps for stable lookup entities (delivery methods,
// alert types, alert categories).
type Lookup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLookup constructs a Lookup. A nil client yields a pass-through cache.
func NewLookup(client *redis.Client, ttl time.Duration) *Lookup {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Lookup{client: client, ttl: ttl}
}

// NameMap returns the cached name map under key, invoking loader on miss and
// storing the result. Cache failures are logged and degrade to the loader;
// they never fail the read path.
func (c *Lookup) NameMap(ctx context.Context, key string, loader func(context.Context) (map[int64]string, error)) (map[int64]string, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	cached, errGet := c.client.Get(ctx, key).Bytes()
	if errGet == nil {
		var names map[int64]string
		if errDecode := json.Unmarshal(cached, &names); errDecode == nil {
			return names, nil
		}
	} else if errGet != redis.Nil {
		log.WithError(errGet).Warnf("cache: read %s", key)
	}

	names, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	encoded, errEncode := json.Marshal(names)
	if errEncode == nil {
		if errSet := c.client.Set(ctx, key, encoded, c.ttl).Err(); errSet != nil {
			log.WithError(errSet).Warnf("cache: write %s", key)
		}
	}
	return names, nil
}
