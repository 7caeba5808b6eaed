package server

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// limiterCacheSize 同时跟踪的身份数
const limiterCacheSize = 8192

// limiters 按身份的令牌桶，长时间不活跃的身份被淘汰
type limiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	cache *expirable.LRU[string, *rate.Limiter]
}

// newLimiters perSecond <= 0 时返回 nil（不限流）
func newLimiters(perSecond float64, burst int) *limiters {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		cache: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, 10*time.Minute),
	}
}

// allow nil 接收者总是放行
func (l *limiters) allow(identity string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.cache.Get(identity)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.cache.Add(identity, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}
