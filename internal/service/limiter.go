package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterPool hands out one token bucket per client key.
type LimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterPool builds a pool allowing qps per key; qps <= 0 means unlimited.
func NewLimiterPool(qps float64, burst int) *LimiterPool {
	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterPool{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		lastGC:   time.Now(),
	}
}

func (p *LimiterPool) Get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if now.Sub(p.lastGC) > p.idleTTL {
		for k, e := range p.limiters {
			if now.Sub(e.lastSeen) > p.idleTTL {
				delete(p.limiters, k)
			}
		}
		p.lastGC = now
	}

	entry, ok := p.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (p *LimiterPool) Allow(key string) bool {
	return p.Get(key).Allow()
}
