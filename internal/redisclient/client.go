package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"upgrade-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	catalogKey        = "catalog:upgrade-options"
	catalogVersionKey = "catalog:version"
)

// setCatalogScript caches the catalog only while the version it was loaded
// under is still current.
var setCatalogScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

type Client struct {
	rdb        *redis.Client
	catalogTTL time.Duration
	sessionTTL time.Duration
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int, catalogTTL, sessionTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:        rdb,
		catalogTTL: catalogTTL,
		sessionTTL: sessionTTL,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetCatalog returns the cached raw catalog rows. ok is false on a cache miss.
func (c *Client) GetCatalog(ctx context.Context) (rows []models.UpgradeOption, ok bool, err error) {
	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get catalog: %w", err)
	}

	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	return rows, true, nil
}

// CatalogVersion returns the current catalog version. It starts at 0 and
// grows with every invalidation.
func (c *Client) CatalogVersion(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, catalogVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get catalog version: %w", err)
	}
	return v, nil
}

// SetCatalog caches raw catalog rows for the configured TTL, unless the
// catalog was invalidated after version was read. stored reports whether
// the rows were cached.
func (c *Client) SetCatalog(ctx context.Context, version int64, rows []models.UpgradeOption) (stored bool, err error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return false, fmt.Errorf("encode catalog: %w", err)
	}

	res, err := setCatalogScript.Run(ctx, c.rdb,
		[]string{catalogVersionKey, catalogKey},
		version, data, c.catalogTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("set catalog: %w", err)
	}
	return res == 1, nil
}

// InvalidateCatalog bumps the catalog version and drops the cached catalog
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, catalogVersionKey)
		pipe.Del(ctx, catalogKey)
		return nil
	})
	return err
}

// SaveSession stores a configuration session and refreshes its TTL
func (c *Client) SaveSession(ctx context.Context, session *models.ConfigurationSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(session.ID), data, c.sessionTTL).Err()
}

// GetSession loads a configuration session. It returns nil when the session
// does not exist or has expired.
func (c *Client) GetSession(ctx context.Context, id string) (*models.ConfigurationSession, error) {
	data, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.ConfigurationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a configuration session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, sessionKey(id)).Err()
}

// AcquireLock acquires a short-lived lock, used to serialize finalization
// of one idempotency key across replicas
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func sessionKey(id string) string {
	return fmt.Sprintf("configuration:%s", id)
}
