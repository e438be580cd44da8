package util

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobscout-engine/internal/clock"
)

// HostLimiter rate-limits per hostname so retries against one portal are paced.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	return hl.limiterFor(HostOf(raw)).Wait(ctx)
}

// BudgetWindow is the length of a DomainBudget window.
const BudgetWindow = time.Hour

type budget struct {
	start time.Time
	count int
}

// DomainBudget counts requests per domain in fixed windows. Unlike
// HostLimiter it never blocks: once a domain's budget is spent, Allow
// says no until the window rolls over. State is not persisted.
type DomainBudget struct {
	mu    sync.Mutex
	clock clock.Clock
	m     map[string]*budget
}

func NewDomainBudget(c clock.Clock) *DomainBudget {
	if c == nil {
		c = clock.Real{}
	}
	return &DomainBudget{clock: c, m: make(map[string]*budget)}
}

func (db *DomainBudget) Allow(domain string, limit int) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.clock.Now()
	b, ok := db.m[domain]
	if !ok || now.Sub(b.start) > BudgetWindow {
		db.m[domain] = &budget{start: now, count: 1}
		return limit > 0
	}
	if b.count < limit {
		b.count++
		return true
	}
	return false
}

// Remaining reports how many requests domain may still make in its current window.
func (db *DomainBudget) Remaining(domain string, limit int) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.m[domain]
	if !ok || db.clock.Now().Sub(b.start) > BudgetWindow {
		return limit
	}
	if n := limit - b.count; n > 0 {
		return n
	}
	return 0
}

func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "_"
	}
	return strings.ToLower(u.Hostname())
}
