package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/user/pricewatch-service/pkg/metrics"
	"github.com/user/pricewatch-service/pkg/utils"
	"golang.org/x/time/rate"
)

// DomainRateLimiter spaces requests to the same host by at least minDelay.
// Hosts are independent of each other. URLs without a parseable host share
// the "unknown" bucket.
type DomainRateLimiter struct {
	minDelay time.Duration
	metrics  *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewDomainRateLimiter(minDelay time.Duration, m *metrics.Metrics) *DomainRateLimiter {
	return &DomainRateLimiter{
		minDelay: minDelay,
		metrics:  m,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to rawURL's host may be issued and claims the
// slot. It returns early only when ctx is done.
func (l *DomainRateLimiter) Wait(ctx context.Context, rawURL string) error {
	start := time.Now()
	err := l.limiterFor(utils.Hostname(rawURL)).Wait(ctx)
	l.metrics.ObserveThrottleWait(time.Since(start))
	return err
}

func (l *DomainRateLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		// burst 1: one token per minDelay, first request passes immediately
		lim = rate.NewLimiter(rate.Every(l.minDelay), 1)
		l.limiters[host] = lim
	}
	return lim
}

// Hosts returns the number of hosts seen so far.
func (l *DomainRateLimiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
