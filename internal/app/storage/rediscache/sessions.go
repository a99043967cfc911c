// Package rediscache provides a read-through Redis cache in front of the
// session store. Cache failures are never fatal: every operation falls back
// to the underlying store.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/classtrack/classtrack/internal/app/domain/user"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/pkg/logger"
)

const keyPrefix = "session:"

// SessionCache decorates a SessionStore with Redis-backed lookups keyed by
// token hash. Session validation happens on every authenticated request, so
// this is the one hot read path worth caching.
type SessionCache struct {
	next   storage.SessionStore
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ storage.SessionStore = (*SessionCache)(nil)

// New wraps next with a Redis cache. ttl bounds how long a cached session may
// be served without consulting the database.
func New(next storage.SessionStore, client *redis.Client, ttl time.Duration, log *logger.Logger) *SessionCache {
	if log == nil {
		log = logger.NewDefault("rediscache")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SessionCache{next: next, client: client, ttl: ttl, log: log}
}

func (c *SessionCache) CreateSession(ctx context.Context, s user.Session) (user.Session, error) {
	created, err := c.next.CreateSession(ctx, s)
	if err != nil {
		return user.Session{}, err
	}
	c.put(ctx, created)
	return created, nil
}

func (c *SessionCache) GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error) {
	raw, err := c.client.Get(ctx, keyPrefix+tokenHash).Bytes()
	if err == nil {
		var sess user.Session
		if err := json.Unmarshal(raw, &sess); err == nil {
			return sess, nil
		}
	} else if err != redis.Nil {
		c.log.WithError(err).Debug("session cache read failed; falling back to store")
	}

	sess, err := c.next.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		return user.Session{}, err
	}
	c.put(ctx, sess)
	return sess, nil
}

func (c *SessionCache) TouchSession(ctx context.Context, id string, at time.Time) error {
	// Activity timestamps are cosmetic; the cached copy is allowed to lag.
	return c.next.TouchSession(ctx, id, at)
}

func (c *SessionCache) DeleteSession(ctx context.Context, id string) error {
	if hash, err := c.client.Get(ctx, keyPrefix+"id:"+id).Result(); err == nil {
		if err := c.client.Del(ctx, keyPrefix+hash, keyPrefix+"id:"+id).Err(); err != nil {
			c.log.WithError(err).Warn("session cache invalidation failed")
		}
	}
	return c.next.DeleteSession(ctx, id)
}

func (c *SessionCache) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	// Cached entries carry a TTL no longer than the session expiry window,
	// so the purge only needs to hit the database.
	return c.next.PurgeExpiredSessions(ctx, now)
}

func (c *SessionCache) put(ctx context.Context, sess user.Session) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}

	ttl := c.ttl
	if remaining := time.Until(sess.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, keyPrefix+sess.TokenHash, raw, ttl)
	pipe.Set(ctx, keyPrefix+"id:"+sess.ID, sess.TokenHash, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Debug("session cache write failed")
	}
}
