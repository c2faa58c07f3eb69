package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned when no answer is cached for a question.
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config holds Redis connection settings for the answer cache.
type Config struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	DefaultTTL   time.Duration `yaml:"default_ttl" json:"default_ttl"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`

	// HealthCheckInterval enables a background ping loop when positive.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig returns the default answer cache configuration.
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DB:                  0,
		DefaultTTL:          24 * time.Hour,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// CachedAnswer is one stored answer together with the Cypher queries that
// produced it.
type CachedAnswer struct {
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	CypherQueries []string  `json:"cypher_queries,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnswerCache stores answers in Redis keyed by normalized question hash.
type AnswerCache struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// New connects to Redis and returns the answer cache. The connection is
// verified with a ping before returning.
func New(config Config, logger *zap.Logger) (*AnswerCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	c := &AnswerCache{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "answer_cache")),
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	c.logger.Info("answer cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("default_ttl", config.DefaultTTL),
	)
	return c, nil
}

// Key returns the cache key for a question. Questions are lowercased and
// whitespace-normalized before hashing so trivial rephrasings share a key.
func Key(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "answer:" + hex.EncodeToString(sum[:])
}

// Get returns the cached answer for a question, or ErrCacheMiss.
func (c *AnswerCache) Get(ctx context.Context, question string) (*CachedAnswer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errors.New("answer cache is closed")
	}

	val, err := c.redis.Get(ctx, Key(question)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.Error(err))
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var answer CachedAnswer
	if err := json.Unmarshal([]byte(val), &answer); err != nil {
		// A corrupt entry behaves like a miss so the caller recomputes it.
		c.logger.Warn("dropping corrupt cache entry", zap.Error(err))
		return nil, ErrCacheMiss
	}
	return &answer, nil
}

// Set stores an answer under the question's key. A zero ttl uses the
// configured default.
func (c *AnswerCache) Set(ctx context.Context, answer *CachedAnswer, ttl time.Duration) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("answer cache is closed")
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal cached answer: %w", err)
	}
	if err := c.redis.Set(ctx, Key(answer.Question), data, ttl).Err(); err != nil {
		c.logger.Error("cache set failed", zap.Error(err))
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate removes the cached answers for the given questions.
func (c *AnswerCache) Invalidate(ctx context.Context, questions ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("answer cache is closed")
	}
	if len(questions) == 0 {
		return nil
	}

	keys := make([]string, len(questions))
	for i, q := range questions {
		keys[i] = Key(q)
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *AnswerCache) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("answer cache is closed")
	}
	return c.redis.Ping(ctx).Err()
}

// Close releases the Redis connection. Safe to call twice.
func (c *AnswerCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("closing answer cache")
	return c.redis.Close()
}

func (c *AnswerCache) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Ping(ctx); err != nil {
			c.logger.Error("cache health check failed", zap.Error(err))
		}
		cancel()
	}
}
