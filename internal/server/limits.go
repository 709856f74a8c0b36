package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"netsight/internal/insight"
)

// AnalysisBudget meters Gemini calls across all runs. Both windows roll:
// the minute window bounds burst rate, the day window bounds total spend.
type AnalysisBudget struct {
	mu             sync.Mutex
	callsPerMinute int
	dailyLimit     int
	dayKey         string
	spentToday     int
	lastMinute     []time.Time
}

func NewAnalysisBudget(cfg GeminiConfig) *AnalysisBudget {
	perMinute := cfg.CallsPerMinute
	if perMinute <= 0 {
		perMinute = 12
	}
	daily := cfg.DailyCallLimit
	if daily <= 0 {
		daily = 1000
	}
	return &AnalysisBudget{
		callsPerMinute: perMinute,
		dailyLimit:     daily,
	}
}

// Allow reserves one model call, or reports why it cannot.
func (b *AnalysisBudget) Allow() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	dayKey := now.UTC().Format("2006-01-02")
	if b.dayKey != dayKey {
		b.dayKey = dayKey
		b.spentToday = 0
		b.lastMinute = nil
	}
	b.lastMinute = filterRecentTime(b.lastMinute, now.Add(-1*time.Minute))

	if b.spentToday >= b.dailyLimit {
		return false, "daily_limit"
	}
	if len(b.lastMinute) >= b.callsPerMinute {
		return false, "rate_limit"
	}
	b.spentToday++
	b.lastMinute = append(b.lastMinute, now)
	return true, ""
}

func (b *AnalysisBudget) SpentToday() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentToday
}

// GuardedGenerator enforces the analysis budget in front of the real
// generator. A blocked call surfaces as a quota error, which the insight
// orchestrator already treats as non-retryable.
type GuardedGenerator struct {
	inner  insight.Generator
	budget *AnalysisBudget
	obs    *Observability
}

func NewGuardedGenerator(inner insight.Generator, budget *AnalysisBudget, obs *Observability) *GuardedGenerator {
	return &GuardedGenerator{inner: inner, budget: budget, obs: obs}
}

func (g *GuardedGenerator) Model() string { return g.inner.Model() }

func (g *GuardedGenerator) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if ok, reason := g.budget.Allow(); !ok {
		if g.obs != nil {
			g.obs.MarkQuotaBlocked(ctx, reason)
		}
		return nil, fmt.Errorf("%w: local analysis budget (%s)", insight.ErrQuotaExhausted, reason)
	}
	return g.inner.GenerateJSON(ctx, prompt)
}

type ipRateLimiter struct {
	mu      sync.Mutex
	rpm     int
	records map[string][]time.Time
}

func newIPRateLimiter(rpm int) *ipRateLimiter {
	if rpm <= 0 {
		rpm = 6
	}
	return &ipRateLimiter{
		rpm:     rpm,
		records: map[string][]time.Time{},
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.TrimSpace(key) == "" {
		key = "unknown"
	}
	now := time.Now()
	cutoff := now.Add(-1 * time.Minute)
	items := filterRecentTime(l.records[key], cutoff)
	if len(items) >= l.rpm {
		l.records[key] = items
		return false
	}
	items = append(items, now)
	l.records[key] = items
	return true
}

func filterRecentTime(items []time.Time, cutoff time.Time) []time.Time {
	if len(items) == 0 {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if item.After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}
