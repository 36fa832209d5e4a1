package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/observability"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

const (
	maxTrackedKeys = 10_000
	idleKeyTTL     = 10 * time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a global limit plus one limit per caller key.
type Limiter struct {
	global *rate.Limiter
	perKey map[string]*keyLimiter
	mu     sync.Mutex

	rps   rate.Limit
	burst int
	now   func() time.Time
}

// New builds a limiter from config. Non-positive rates disable that tier.
func New(cfg config.RateLimitConfig) *Limiter {
	globalLimit := rate.Inf
	if cfg.GlobalPerSecond > 0 {
		globalLimit = rate.Limit(cfg.GlobalPerSecond)
	}
	keyLimit := rate.Inf
	if cfg.ActorPerSecond > 0 {
		keyLimit = rate.Limit(cfg.ActorPerSecond)
	}
	return &Limiter{
		global: rate.NewLimiter(globalLimit, cfg.GlobalBurst),
		perKey: make(map[string]*keyLimiter),
		rps:    keyLimit,
		burst:  cfg.ActorBurst,
		now:    time.Now,
	}
}

// Allow reports whether key may perform one more operation now. The caller's
// own bucket is consulted first; a rejected call never spends a global token,
// and a global rejection hands the caller's token back.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	item, ok := l.perKey[key]
	if !ok {
		item = &keyLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.perKey[key] = item
	}
	item.lastSeen = now

	if len(l.perKey) > maxTrackedKeys {
		l.cleanupLocked(now.Add(-idleKeyTTL))
	}

	reservation := item.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false
	}
	if reservation.DelayFrom(now) > 0 {
		reservation.CancelAt(now)
		return false
	}
	if !l.global.AllowN(now, 1) {
		reservation.CancelAt(now)
		return false
	}
	return true
}

func (l *Limiter) cleanupLocked(threshold time.Time) {
	for key, entry := range l.perKey {
		if entry.lastSeen.Before(threshold) {
			delete(l.perKey, key)
		}
	}
}

// Middleware rejects requests over the limit with 429. keyFn picks the caller
// key; an empty key falls back to the client IP.
func (l *Limiter) Middleware(metrics *observability.Metrics, keyFn func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = c.IP()
		}
		if !l.Allow(key) {
			metrics.RecordRateLimited()
			return apperrors.NewTooManyRequests("rate limit exceeded")
		}
		return c.Next()
	}
}
