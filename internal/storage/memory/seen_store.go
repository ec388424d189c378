package memory

import (
	"sync"

	"solana-trade-alerts/internal/storage"
)

// DefaultSeenWindow bounds the per-venue recent-signature window.
const DefaultSeenWindow = 512

// SeenStore is the in-memory dedupe state: per venue, a bounded window of
// processed signatures plus the newest one. There is intentionally no
// persistent implementation; a restart re-seeds from the next poll.
type SeenStore struct {
	mu     sync.Mutex
	window int
	venues map[string]*venueSeen
}

type venueSeen struct {
	last  string
	set   map[string]struct{}
	order []string // FIFO for window eviction
}

// NewSeenStore creates a SeenStore with the given per-venue window size;
// zero or negative uses DefaultSeenWindow.
func NewSeenStore(window int) *SeenStore {
	if window <= 0 {
		window = DefaultSeenWindow
	}
	return &SeenStore{
		window: window,
		venues: make(map[string]*venueSeen),
	}
}

var _ storage.SeenStore = (*SeenStore)(nil)

// MarkSeen records a signature for a venue. The check and write are one
// atomic step under the lock, so concurrent sources cannot both claim a
// signature as new.
func (s *SeenStore) MarkSeen(venue, signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.venues[venue]
	if !ok {
		v = &venueSeen{set: make(map[string]struct{})}
		s.venues[venue] = v
	}

	if _, dup := v.set[signature]; dup {
		return false
	}

	v.set[signature] = struct{}{}
	v.order = append(v.order, signature)
	v.last = signature

	if len(v.order) > s.window {
		oldest := v.order[0]
		v.order = v.order[1:]
		delete(v.set, oldest)
	}
	return true
}

// Seen reports whether a signature was already recorded.
func (s *SeenStore) Seen(venue, signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.venues[venue]
	if !ok {
		return false
	}
	_, dup := v.set[signature]
	return dup
}

// LastSeen returns the most recently marked signature for a venue.
func (s *SeenStore) LastSeen(venue string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.venues[venue]
	if !ok || v.last == "" {
		return "", false
	}
	return v.last, true
}

// Known reports whether the venue has been seeded at all.
func (s *SeenStore) Known(venue string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.venues[venue]
	return ok
}

// Forget drops all state for a venue.
func (s *SeenStore) Forget(venue string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.venues, venue)
}
