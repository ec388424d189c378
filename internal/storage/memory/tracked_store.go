// Package memory provides in-memory store implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/storage"
)

// TrackedTokenStore is an in-memory implementation of
// storage.TrackedTokenStore.
type TrackedTokenStore struct {
	mu   sync.RWMutex
	data map[trackedKey]*domain.TrackedToken
}

type trackedKey struct {
	chatID int64
	mint   string
}

// NewTrackedTokenStore creates a new in-memory tracked-token store.
func NewTrackedTokenStore() *TrackedTokenStore {
	return &TrackedTokenStore{
		data: make(map[trackedKey]*domain.TrackedToken),
	}
}

var _ storage.TrackedTokenStore = (*TrackedTokenStore)(nil)

// Upsert inserts or replaces a subscription.
func (s *TrackedTokenStore) Upsert(_ context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneTracked(t)
	s.data[trackedKey{t.ChatID, t.Mint}] = cp
	return nil
}

// Get retrieves one subscription.
func (s *TrackedTokenStore) Get(_ context.Context, chatID int64, mint string) (*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[trackedKey{chatID, mint}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneTracked(t), nil
}

// ListActive returns every active subscription across all chats.
func (s *TrackedTokenStore) ListActive(_ context.Context) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedToken
	for _, t := range s.data {
		if t.Active {
			result = append(result, cloneTracked(t))
		}
	}
	sortTracked(result)
	return result, nil
}

// ListByChat returns all subscriptions for one chat.
func (s *TrackedTokenStore) ListByChat(_ context.Context, chatID int64) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedToken
	for k, t := range s.data {
		if k.chatID == chatID {
			result = append(result, cloneTracked(t))
		}
	}
	sortTracked(result)
	return result, nil
}

// Delete removes a subscription.
func (s *TrackedTokenStore) Delete(_ context.Context, chatID int64, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, trackedKey{chatID, mint})
	return nil
}

// SetThreshold updates the per-token whale threshold.
func (s *TrackedTokenStore) SetThreshold(_ context.Context, chatID int64, mint string, usd float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[trackedKey{chatID, mint}]
	if !ok {
		return storage.ErrNotFound
	}
	t.MinAlertUSD = usd
	return nil
}

// SetMedia updates the media attached to alerts.
func (s *TrackedTokenStore) SetMedia(_ context.Context, chatID int64, mint, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[trackedKey{chatID, mint}]
	if !ok {
		return storage.ErrNotFound
	}
	t.MediaFileID = fileID
	return nil
}

// SetSymbol caches the display symbol for a mint in every chat.
func (s *TrackedTokenStore) SetSymbol(_ context.Context, mint, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, t := range s.data {
		if k.mint == mint {
			t.Symbol = symbol
		}
	}
	return nil
}

// SetVenue caches the located venue for a mint in every chat.
func (s *TrackedTokenStore) SetVenue(_ context.Context, mint string, v *domain.VenueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, t := range s.data {
		if k.mint == mint {
			cp := *v
			t.Venue = &cp
		}
	}
	return nil
}

// SetPrice caches the latest price snapshot for a mint.
func (s *TrackedTokenStore) SetPrice(_ context.Context, mint string, p *domain.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, t := range s.data {
		if k.mint == mint {
			cp := *p
			t.Price = &cp
		}
	}
	return nil
}

func cloneTracked(t *domain.TrackedToken) *domain.TrackedToken {
	cp := *t
	if t.Venue != nil {
		v := *t.Venue
		cp.Venue = &v
	}
	if t.Price != nil {
		p := *t.Price
		cp.Price = &p
	}
	return &cp
}

func sortTracked(ts []*domain.TrackedToken) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].ChatID != ts[j].ChatID {
			return ts[i].ChatID < ts[j].ChatID
		}
		return ts[i].Mint < ts[j].Mint
	})
}
