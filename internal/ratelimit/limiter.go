// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/metrics"
)

// shardCount is the number of independently locked key spaces.
const shardCount = 32

// Limiter names used for metrics and error reporting.
const (
	NameAI   = "ai"
	NameData = "data"
)

// Default limits.
const (
	DefaultAIRequests   = 10
	DefaultAIWindow     = 60 * time.Second
	DefaultDataRequests = 120
	DefaultDataWindow   = 60 * time.Second
)

type shard struct {
	mu   sync.Mutex
	logs map[string][]time.Time
}

// Limiter is a per-key sliding-window log. Each key keeps the timestamps of
// its admitted requests inside the trailing window; a request is admitted
// while fewer than max timestamps remain after pruning.
type Limiter struct {
	name   string
	max    int
	window time.Duration
	shards [shardCount]*shard
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting max requests per key per window.
func New(name string, max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{name: name, max: max, window: window, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{logs: make(map[string][]time.Time)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewAI creates the strict limiter guarding the AI tool path.
func NewAI(max int, window time.Duration, opts ...Option) *Limiter {
	return New(NameAI, max, window, opts...)
}

// NewData creates the looser limiter guarding plain data queries.
func NewData(max int, window time.Duration, opts ...Option) *Limiter {
	return New(NameData, max, window, opts...)
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

// Max returns the per-window request budget.
func (l *Limiter) Max() int { return l.max }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }

func (l *Limiter) shardFor(key string) *shard {
	return l.shards[murmur3.Sum32([]byte(key))%shardCount]
}

// prune drops timestamps at or before now-window. Must be called with the shard lock held.
func (l *Limiter) prune(log []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}

// IsAllowed reports whether key may make a request now, recording it if so.
func (l *Limiter) IsAllowed(key string) bool {
	s := l.shardFor(key)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := l.prune(s.logs[key], now)
	if len(log) >= l.max {
		s.logs[key] = log
		metrics.RateLimitRejections.WithLabelValues(l.name).Inc()
		return false
	}
	s.logs[key] = append(log, now)
	return true
}

// RetryAfterSeconds returns how long key must wait before its next request is
// admitted: 0 when there is room, otherwise at least 1.
func (l *Limiter) RetryAfterSeconds(key string) int {
	s := l.shardFor(key)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := l.prune(s.logs[key], now)
	s.logs[key] = log
	if len(log) < l.max {
		return 0
	}

	wait := log[0].Add(l.window).Sub(now)
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Allow is IsAllowed returning a RateLimitExceeded error with the retry hint.
func (l *Limiter) Allow(key string) error {
	if l.IsAllowed(key) {
		return nil
	}
	return apperr.RateLimited(l.name, l.RetryAfterSeconds(key))
}

// Sweep prunes every window and drops keys with no remaining timestamps.
// Returns the number of keys still tracked.
func (l *Limiter) Sweep() int {
	now := l.now()
	tracked := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for key, log := range s.logs {
			log = l.prune(log, now)
			if len(log) == 0 {
				delete(s.logs, key)
				continue
			}
			s.logs[key] = log
			tracked++
		}
		s.mu.Unlock()
	}
	metrics.RateLimitTrackedKeys.WithLabelValues(l.name).Set(float64(tracked))
	return tracked
}

// Janitor periodically sweeps limiters. It is a suture.Service.
type Janitor struct {
	limiters []*Limiter
	interval time.Duration
}

// NewJanitor creates a janitor sweeping limiters every interval.
func NewJanitor(interval time.Duration, limiters ...*Limiter) *Janitor {
	return &Janitor{limiters: limiters, interval: interval}
}

// Serve sweeps until ctx is cancelled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, l := range j.limiters {
				l.Sweep()
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (j *Janitor) String() string {
	return "rate-limit-janitor"
}
