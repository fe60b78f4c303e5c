package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultIdle is how long an unused session cache is kept before eviction.
const DefaultIdle = 12 * time.Hour

// Sessions owns the per-user history caches. A cache is created on login
// (or lazily on first use), shared by every device the user is signed in
// on, and dropped on logout or after sitting idle.
type Sessions struct {
	source MoodSource
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	caches map[int]*session
}

type session struct {
	cache    *Cache
	lastUsed time.Time
}

func NewSessions(source MoodSource, ttl time.Duration, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		caches: make(map[int]*session),
	}
}

// Init starts the session cache for userID on login. A cache already live
// for another device is kept.
func (s *Sessions) Init(userID int) *Cache {
	return s.Get(userID)
}

// Get returns the user's session cache, starting one if none is live.
func (s *Sessions) Get(userID int) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.caches[userID]; ok {
		sess.lastUsed = s.now()
		return sess.cache
	}
	c := NewCache(userID, s.source, s.ttl, s.logger)
	s.caches[userID] = &session{cache: c, lastUsed: s.now()}
	s.logger.Debug("history session started", zap.Int("user_id", userID))
	return c
}

// Teardown discards the user's cache; late fetch results are ignored.
func (s *Sessions) Teardown(userID int) {
	s.mu.Lock()
	sess, ok := s.caches[userID]
	delete(s.caches, userID)
	s.mu.Unlock()
	if ok {
		sess.cache.Close()
		s.logger.Debug("history session ended", zap.Int("user_id", userID))
	}
}

// NotifyJournalWritten invalidates the user's cache after a journal write.
// Users without a live session have nothing to invalidate.
func (s *Sessions) NotifyJournalWritten(userID int) {
	s.mu.Lock()
	sess, ok := s.caches[userID]
	s.mu.Unlock()
	if ok {
		sess.cache.Invalidate()
	}
}

// InvalidateAll marks every live cache for refresh, for when journal write
// notifications may have been missed.
func (s *Sessions) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.caches {
		sess.cache.Invalidate()
	}
}

// EvictIdle closes and drops caches unused for longer than idle, and
// reports how many were evicted.
func (s *Sessions) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var evicted []*Cache

	s.mu.Lock()
	for userID, sess := range s.caches {
		if sess.lastUsed.Before(cutoff) {
			evicted = append(evicted, sess.cache)
			delete(s.caches, userID)
		}
	}
	s.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	return len(evicted)
}

// Sweep evicts idle sessions periodically until ctx is done.
func (s *Sessions) Sweep(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(max(idle/4, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.logger.Info("evicted idle history sessions", zap.Int("count", n))
			}
		}
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.caches)
}
