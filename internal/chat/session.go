// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/tomtom215/prodledger/internal/metrics"
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Defaults used when the store is created with zero values.
const (
	DefaultMaxTurns = 10
	DefaultTTL      = 30 * time.Minute
)

const shardCount = 32

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a bounded conversation history.
type Session struct {
	ID         string
	Turns      []Turn
	CreatedAt  time.Time
	LastAccess time.Time
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return s.LastAccess.Add(ttl).Before(now)
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Store holds conversation histories in memory. Each session keeps at most
// 2*maxTurns turns (one user and one model turn per exchange); idle sessions
// are removed by SweepExpired, which callers run at the start of every
// session-touching request.
type Store struct {
	maxTurns int
	ttl      time.Duration
	shards   [shardCount]*shard
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a session store.
func NewStore(maxTurns int, ttl time.Duration, opts ...Option) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{maxTurns: maxTurns, ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// MaxTurns returns the exchange bound.
func (s *Store) MaxTurns() int { return s.maxTurns }

func (s *Store) shardFor(id string) *shard {
	return s.shards[murmur3.Sum32([]byte(id))%shardCount]
}

// lookup returns the session for id. An expired session not yet swept is
// removed and reported missing. Callers hold sh.mu.
func (s *Store) lookup(sh *shard, id string, now time.Time) (*Session, bool) {
	sess, ok := sh.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.expired(now, s.ttl) {
		delete(sh.sessions, id)
		metrics.ActiveSessions.Dec()
		metrics.SessionsExpired.Inc()
		return nil, false
	}
	return sess, true
}

// GetHistory returns a copy of the session's turns, or an empty slice for an
// unknown or expired session.
func (s *Store) GetHistory(id string) []Turn {
	sh := s.shardFor(id)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := s.lookup(sh, id, now)
	if !ok {
		return []Turn{}
	}
	sess.LastAccess = now
	return copyTurns(sess.Turns)
}

// SaveHistory replaces the session's turns, keeping only the most recent
// 2*maxTurns. Unknown and expired sessions are created afresh.
func (s *Store) SaveHistory(id string, turns []Turn) {
	sh := s.shardFor(id)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := s.lookup(sh, id, now)
	if !ok {
		sess = &Session{ID: id, CreatedAt: now}
		sh.sessions[id] = sess
		metrics.ActiveSessions.Inc()
	}
	sess.Turns = s.truncate(turns)
	sess.LastAccess = now
}

// AppendExchange appends a user turn and a model turn and returns the
// resulting history. An expired session starts over.
func (s *Store) AppendExchange(id, user, model string) []Turn {
	sh := s.shardFor(id)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := s.lookup(sh, id, now)
	if !ok {
		sess = &Session{ID: id, CreatedAt: now}
		sh.sessions[id] = sess
		metrics.ActiveSessions.Inc()
	}
	turns := append(copyTurns(sess.Turns),
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleModel, Content: model},
	)
	sess.Turns = s.truncate(turns)
	sess.LastAccess = now
	return copyTurns(sess.Turns)
}

// Session returns a snapshot of the session and whether it exists and has
// not expired.
func (s *Store) Session(id string) (Session, bool) {
	sh := s.shardFor(id)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := s.lookup(sh, id, now)
	if !ok {
		return Session{}, false
	}
	out := *sess
	out.Turns = copyTurns(sess.Turns)
	return out, true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[id]; ok {
		delete(sh.sessions, id)
		metrics.ActiveSessions.Dec()
	}
}

// SweepExpired removes sessions idle for longer than the TTL and returns how many were removed.
func (s *Store) SweepExpired() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.expired(now, s.ttl) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		metrics.SessionsExpired.Add(float64(removed))
	}
	return removed
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

func (s *Store) truncate(turns []Turn) []Turn {
	limit := 2 * s.maxTurns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return copyTurns(turns)
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
