package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/omriShneor/calpal/internal/auth"
)

const (
	limiterCacheSize = 4096
	// An idle user's bucket is full again long before this.
	limiterIdleTTL = time.Hour
)

// ErrRateLimited is returned when a user exceeded their completion budget.
var ErrRateLimited = errors.New("llm rate limit exceeded for user")

// RateLimited wraps a completer with a token bucket per user. The user comes from
// the request context; calls without one share a single anonymous bucket.
// Over-limit calls fail fast so the caller falls back to keyword matching.
type RateLimited struct {
	next  Completer
	limit rate.Limit
	burst int

	mu     sync.Mutex
	bucket *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimited allows perMinute completions per user with the given burst.
func NewRateLimited(next Completer, perMinute float64, burst int) *RateLimited {
	return newRateLimited(next, perMinute, burst, limiterCacheSize)
}

func newRateLimited(next Completer, perMinute float64, burst, size int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:   next,
		limit:  rate.Limit(perMinute / 60),
		burst:  burst,
		bucket: expirable.NewLRU[string, *rate.Limiter](size, nil, limiterIdleTTL),
	}
}

func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	userID, _ := auth.UserIDFromContext(ctx)
	if !r.limiterForUser(userID).Allow() {
		return "", ErrRateLimited
	}
	return r.next.Complete(ctx, prompt)
}

func (r *RateLimited) limiterForUser(userID string) *rate.Limiter {
	key := userID
	if key == "" {
		key = "anonymous"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.bucket.Get(key)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.bucket.Add(key, limiter)
	}
	return limiter
}
