// Package core provides Redis client abstractions for the storefront service.
// RedisClient wraps go-redis with key namespacing and DB isolation and
// implements the Memory interface, so per-client state, chat transcripts and
// documentation jobs can live in Redis instead of process memory.
//
// Database Allocation:
//   - DB 0: Per-client storefront state (cart, wishlist, theme)
//   - DB 1: Rate limiting
//   - DB 2: Assistant chat sessions
//   - DB 3: Documentation jobs
//
// Namespacing:
// All keys are prefixed with the namespace, e.g. "storefront:<client>:cart".
//
// Usage:
//
//	client, err := NewRedisClient(RedisClientOptions{
//	    RedisURL:  "redis://localhost:6379",
//	    DB:        RedisDBClientState,
//	    Namespace: "storefront",
//	})
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient provides a namespaced Redis-backed Memory implementation
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client
type RedisClientOptions struct {
	RedisURL  string
	DB        int    // Redis DB number for isolation (0-15), -1 keeps the URL's DB
	Namespace string // Key namespace for organization
	Logger    Logger // Optional logger
}

// NewRedisClient creates a new Redis client and verifies the connection
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		logger.Error("Failed to initialize Redis client", map[string]interface{}{
			"error":      "Redis URL is required",
			"error_type": "ErrInvalidConfiguration",
		})
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	if opts.DB >= 0 && opts.DB <= 15 {
		redisOpt.DB = opts.DB
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"db":         redisOpt.DB,
			"db_name":    GetRedisDBName(redisOpt.DB),
			"namespace":  opts.Namespace,
		})
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", redisOpt.DB, ErrStorageUnavailable)
	}

	rc := &RedisClient{
		client:    client,
		dbID:      redisOpt.DB,
		namespace: opts.Namespace,
		logger:    logger,
	}

	logger.Info("Redis client connected", map[string]interface{}{
		"db":        rc.dbID,
		"db_name":   GetRedisDBName(rc.dbID),
		"namespace": rc.namespace,
	})

	return rc, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	err := r.client.Close()
	if err != nil {
		r.logger.Error("Failed to close Redis client", map[string]interface{}{
			"error":     err,
			"db":        r.dbID,
			"namespace": r.namespace,
		})
	}
	return err
}

// GetDB returns the DB number being used
func (r *RedisClient) GetDB() int {
	return r.dbID
}

// GetNamespace returns the namespace being used
func (r *RedisClient) GetNamespace() string {
	return r.namespace
}

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

func (r *RedisClient) wrap(op, key string, err error) error {
	r.logger.Warn("Redis operation failed", map[string]interface{}{
		"operation": op,
		"key":       key,
		"error":     err,
	})
	return &StoreError{Op: "redis." + op, Kind: KindStorage, ID: key, Err: fmt.Errorf("%v: %w", err, ErrStorageUnavailable)}
}

// Get retrieves a value. A missing key yields "" and no error.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", r.wrap("get", key, err)
	}
	return val, nil
}

// Set stores a value with optional TTL
func (r *RedisClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.formatKey(key), value, ttl).Err(); err != nil {
		return r.wrap("set", key, err)
	}
	return nil
}

// Delete removes a key
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.formatKey(key)).Err(); err != nil {
		return r.wrap("delete", key, err)
	}
	return nil
}

// Exists checks if a key exists
func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.formatKey(key)).Result()
	if err != nil {
		return false, r.wrap("exists", key, err)
	}
	return n > 0, nil
}

// --- Rate Limiting Operations ---

// Incr increments a counter
func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.formatKey(key)).Result()
}

// Expire sets a TTL on a key
func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.formatKey(key), ttl).Err()
}

// TTL gets the TTL of a key
func (r *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, r.formatKey(key)).Result()
}

// HealthCheck verifies Redis connectivity
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		r.logger.ErrorWithContext(ctx, "Redis health check failed", map[string]interface{}{
			"error":     err,
			"db":        r.dbID,
			"db_name":   GetRedisDBName(r.dbID),
			"namespace": r.namespace,
		})
		return fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	return nil
}

// --- Standard Redis DB Allocation ---

const (
	// RedisDBClientState holds per-client cart, wishlist and theme
	RedisDBClientState = 0

	// RedisDBRateLimiting is for rate limiting (isolated)
	RedisDBRateLimiting = 1

	// RedisDBSessions is for assistant chat sessions
	RedisDBSessions = 2

	// RedisDBDocJobs is for documentation generator jobs
	RedisDBDocJobs = 3
)

// GetRedisDBName returns a human-readable name for the Redis DB
func GetRedisDBName(db int) string {
	switch db {
	case RedisDBClientState:
		return "Client State"
	case RedisDBRateLimiting:
		return "Rate Limiting"
	case RedisDBSessions:
		return "Sessions"
	case RedisDBDocJobs:
		return "Doc Jobs"
	default:
		return fmt.Sprintf("DB %d", db)
	}
}
