package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Store decides whether one more request from key is allowed.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps a token bucket per key in process.
type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func NewMemoryStore(rps float64, burst int) *MemoryStore {
	return &MemoryStore{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow(), nil
}

// Sweep forgets keys idle for longer than idle.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, v := range s.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(s.visitors, key)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps idle keys every interval until ctx is done.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(interval)
			}
		}
	}()
}

// RedisStore counts requests per key in fixed windows shared by every
// instance pointing at the same Redis.
type RedisStore struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, limit: int64(limit), window: window, prefix: "ratelimit:"}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixNano() / int64(s.window)
	k := fmt.Sprintf("%s%s:%d", s.prefix, key, slot)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= s.limit, nil
}

type RateLimiter struct {
	store Store
	log   *logrus.Logger
}

func NewRateLimiter(store Store, log *logrus.Logger) *RateLimiter {
	return &RateLimiter{store: store, log: log}
}

// Middleware limits requests per client IP. Store errors let the request
// through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := rl.store.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			rl.log.WithError(err).Warn("ratelimit: store unavailable")
		}
		if !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try later."})
			c.Abort()
			return
		}
		c.Next()
	}
}
