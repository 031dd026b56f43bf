package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "route:"

// decisionCache is a fingerprint-keyed cache of route decisions. It is
// tenant-agnostic: routing depends only on the query text, and tenant
// isolation is enforced upstream at the gateway.
type decisionCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func newDecisionCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *decisionCache {
	return &decisionCache{rdb: rdb, ttl: ttl, logger: logger}
}

// fingerprint computes the cache key for a query string.
func fingerprint(query string) string {
	sum := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])[:16]
}

// get looks up a cached decision. A miss or any cache error is reported as
// (zero, false); cache errors are logged but never surfaced to the caller.
func (c *decisionCache) get(ctx context.Context, query string) (RouteDecision, bool) {
	key := fingerprint(query)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("route cache lookup failed", "error", err, "key", key)
		}
		return RouteDecision{}, false
	}

	var decision RouteDecision
	if err := json.Unmarshal([]byte(val), &decision); err != nil {
		c.logger.Warn("route cache entry unparsable", "error", err, "key", key)
		return RouteDecision{}, false
	}

	decision.Cached = true
	return decision, true
}

// set stores a decision under the query's fingerprint. Failure is logged and
// never surfaced: cache writes are fire-and-forget.
func (c *decisionCache) set(ctx context.Context, query string, decision RouteDecision) {
	key := fingerprint(query)
	payload, err := json.Marshal(decision)
	if err != nil {
		c.logger.Warn("failed to marshal route decision for cache", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to set route cache entry", "error", err, "key", key)
	}
}
