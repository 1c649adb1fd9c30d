// Package session holds the in-memory session table: one transcript per
// caller-supplied session identifier. Access to a single session is
// serialized so concurrent requests observe linear history, and a janitor
// evicts idle sessions so the table cannot grow without bound.
package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"reception-voicebot/pkg"
)

// DefaultSessionID is used when a request does not supply a session id.
const DefaultSessionID = "default"

type entry struct {
	mu         sync.Mutex
	transcript pkg.Transcript
	lastActive time.Time
}

// Store is the session table. The table map is guarded by mu; each entry has
// its own mutex so a slow LLM round-trip for one session never blocks others.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl   time.Duration
	limit int
	log   *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewStore creates a session table and starts its eviction janitor. Sessions
// idle longer than ttl are evicted; when the table exceeds limit, the
// longest-idle sessions are evicted first. Close must be called on shutdown.
func NewStore(ttl time.Duration, limit int, log *zap.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		limit:    limit,
		log:      log,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.janitor()
	return s
}

// Close stops the janitor goroutine.
func (s *Store) Close() {
	close(s.done)
	s.wg.Wait()
}

// Update runs fn on the transcript of the given session under that session's
// lock and stores the returned transcript. The entry is created empty on
// first use; fn's error is returned unchanged and leaves the transcript as fn
// returned it (callers substitute error replies rather than aborting, so a
// partially advanced transcript is still the truth of what happened).
func (s *Store) Update(sessionID string, fn func(t pkg.Transcript) (pkg.Transcript, error)) error {
	e := s.getOrCreate(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := fn(e.transcript)
	e.transcript = updated
	e.lastActive = time.Now()
	return err
}

// Transcript returns a copy of the session's transcript, or an empty one if
// the session does not exist. The copy keeps callers from observing appends
// made after the read.
func (s *Store) Transcript(sessionID string) pkg.Transcript {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(pkg.Transcript, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// Reset deletes the session's transcript. Resetting an unknown session is a
// no-op.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Stats reports the number of live sessions and the total message count
// across all of them, computed on demand.
func (s *Store) Stats() (sessions, messages int) {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		messages += len(e.transcript)
		e.mu.Unlock()
	}
	return len(entries), messages
}

func (s *Store) getOrCreate(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{lastActive: time.Now()}
		s.sessions[sessionID] = e
	}
	return e
}

func (s *Store) janitor() {
	defer s.wg.Done()
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evict(time.Now())
		}
	}
}

// evict removes sessions idle past the TTL, then trims the longest-idle
// sessions until the table fits the limit.
func (s *Store) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An entry whose lock is held is mid-request; treat it as active rather
	// than stalling every other session behind its LLM round-trip.
	lastActive := func(e *entry) time.Time {
		if !e.mu.TryLock() {
			return now
		}
		defer e.mu.Unlock()
		return e.lastActive
	}

	for id, e := range s.sessions {
		if now.Sub(lastActive(e)) > s.ttl {
			delete(s.sessions, id)
			s.log.Info("evicted idle session", zap.String("session_id", id))
		}
	}
	if len(s.sessions) <= s.limit {
		return
	}
	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(s.sessions))
	for id, e := range s.sessions {
		all = append(all, aged{id, lastActive(e)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	for _, a := range all[:len(s.sessions)-s.limit] {
		delete(s.sessions, a.id)
		s.log.Warn("evicted session over limit", zap.String("session_id", a.id))
	}
}
