package cachex

import (
	"context"
	"log/slog"
	"time"
)

// Failover serves from a shared primary (typically Redis) and falls
// back to a process-local secondary when the primary errors. Reads that
// fall back are correct but less shared; the source of truth is always
// the store behind the cache, never the cache itself.
//
// Deletes are applied to both layers so a failed primary delete cannot
// leave a stale local entry behind.
type Failover struct {
	primary   Cache
	secondary Cache
	logger    *slog.Logger
}

func NewFailover(primary, secondary Cache, logger *slog.Logger) *Failover {
	if secondary == nil {
		secondary = NewMemory()
	}
	return &Failover{primary: primary, secondary: secondary, logger: logger}
}

func (c *Failover) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.primary != nil {
		val, ok, err := c.primary.Get(ctx, key)
		if err == nil {
			return val, ok, nil
		}
		c.logger.Warn("cache primary get failed; using local fallback", "key", key, "err", err)
	}
	return c.secondary.Get(ctx, key)
}

func (c *Failover) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.primary != nil {
		if err := c.primary.Set(ctx, key, value, ttl); err == nil {
			return nil
		} else {
			c.logger.Warn("cache primary set failed; using local fallback", "key", key, "err", err)
		}
	}
	return c.secondary.Set(ctx, key, value, ttl)
}

func (c *Failover) Delete(ctx context.Context, keys ...string) error {
	var primaryErr error
	if c.primary != nil {
		primaryErr = c.primary.Delete(ctx, keys...)
		if primaryErr != nil {
			c.logger.Warn("cache primary delete failed", "err", primaryErr)
		}
	}
	if err := c.secondary.Delete(ctx, keys...); err != nil {
		return err
	}
	return primaryErr
}
