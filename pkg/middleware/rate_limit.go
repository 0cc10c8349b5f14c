package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	// Visitors idle for longer than TTL are forgotten
	TTL time.Duration
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	visitors *ttlcache.Cache
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.TTL == 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerSecond * 2
	}

	visitors := ttlcache.NewCache()
	visitors.SkipTTLExtensionOnHit(false)
	if err := visitors.SetTTL(cfg.TTL); err != nil {
		zap.L().Warn("Failed to set rate limiter ttl", zap.Error(err))
	}

	return &RateLimiter{
		cfg:      cfg,
		visitors: visitors,
	}
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, err := r.visitors.Get(ip); err == nil {
		if l, ok := v.(*rate.Limiter); ok {
			return l
		}
	}

	l := rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
	if err := r.visitors.Set(ip, l); err != nil {
		zap.L().Warn("Failed to store rate limiter", zap.Error(err))
	}

	return l
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

func (r *RateLimiter) Close() error {
	return r.visitors.Close()
}
