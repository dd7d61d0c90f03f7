package repository

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/metrics"
)

type sessionEntry struct {
	id         string
	turns      []domain.ChatTurn
	lastUpdate time.Time
	elem       *list.Element
}

// sessionRepository keeps conversations in memory. Sessions expire after ttl
// of inactivity and the least recently updated one is evicted once
// maxSessions is exceeded.
type sessionRepository struct {
	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	recent      *list.List
	ttl         time.Duration
	maxSessions int
	maxTurns    int
	now         func() time.Time
}

func NewSessionRepository(ttl time.Duration, maxSessions, maxTurns int) *sessionRepository {
	return &sessionRepository{
		sessions:    make(map[string]*sessionEntry),
		recent:      list.New(),
		ttl:         ttl,
		maxSessions: maxSessions,
		maxTurns:    maxTurns,
		now:         time.Now,
	}
}

// History returns up to limit most recent turns, oldest first. An unknown
// or expired session has an empty history.
func (s *sessionRepository) History(_ context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.isExpired(entry) {
		s.remove(entry, "ttl")
		return nil, nil
	}

	turns := entry.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]domain.ChatTurn(nil), turns...), nil
}

// Append adds turns to the session in the given order, creating it on first use.
func (s *sessionRepository) Append(_ context.Context, sessionID string, turns ...domain.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if ok && s.isExpired(entry) {
		s.remove(entry, "ttl")
		ok = false
	}
	if !ok {
		entry = &sessionEntry{id: sessionID}
		entry.elem = s.recent.PushFront(entry)
		s.sessions[sessionID] = entry
		s.evictOverflow()
	}

	entry.turns = append(entry.turns, turns...)
	if s.maxTurns > 0 && len(entry.turns) > s.maxTurns {
		entry.turns = append([]domain.ChatTurn(nil), entry.turns[len(entry.turns)-s.maxTurns:]...)
	}
	entry.lastUpdate = s.now()
	s.recent.MoveToFront(entry.elem)

	return nil
}

func (s *sessionRepository) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[sessionID]; ok {
		s.remove(entry, "reset")
	}
	return nil
}

func (s *sessionRepository) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops every expired session and returns how many were removed.
func (s *sessionRepository) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for e := s.recent.Back(); e != nil; {
		entry := e.Value.(*sessionEntry)
		prev := e.Prev()
		if !s.isExpired(entry) {
			// the list is ordered by lastUpdate, everything in front is newer
			break
		}
		s.remove(entry, "ttl")
		removed++
		e = prev
	}
	return removed
}

func (s *sessionRepository) Name() string { return "session_janitor" }

// Start sweeps expired sessions until ctx is cancelled.
func (s *sessionRepository) Start(ctx context.Context) error {
	if s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := max(s.ttl/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Expired sessions swept", "count", n, "remaining", s.Len())
			}
		}
	}
}

func (s *sessionRepository) isExpired(entry *sessionEntry) bool {
	return s.ttl > 0 && s.now().Sub(entry.lastUpdate) > s.ttl
}

func (s *sessionRepository) evictOverflow() {
	for s.maxSessions > 0 && len(s.sessions) > s.maxSessions {
		oldest := s.recent.Back()
		if oldest == nil {
			return
		}
		s.remove(oldest.Value.(*sessionEntry), "capacity")
	}
}

func (s *sessionRepository) remove(entry *sessionEntry, reason string) {
	s.recent.Remove(entry.elem)
	delete(s.sessions, entry.id)
	metrics.SessionsEvicted.WithLabelValues(reason).Inc()
}
