// Package storage defines the persistence interfaces for tracking
// subscriptions and the in-process dedupe state.
package storage

import (
	"context"
	"time"

	"solana-trade-alerts/internal/domain"
)

// TrackedTokenStore holds tracking subscriptions, keyed (chat_id, mint).
// Unlike trade events, subscriptions are mutable configuration: Upsert
// replaces the row.
type TrackedTokenStore interface {
	// Upsert inserts or replaces a subscription.
	Upsert(ctx context.Context, t *domain.TrackedToken) error

	// Get retrieves one subscription. Returns ErrNotFound if absent.
	Get(ctx context.Context, chatID int64, mint string) (*domain.TrackedToken, error)

	// ListActive returns every active subscription across all chats.
	ListActive(ctx context.Context) ([]*domain.TrackedToken, error)

	// ListByChat returns all subscriptions for one chat.
	ListByChat(ctx context.Context, chatID int64) ([]*domain.TrackedToken, error)

	// Delete removes a subscription. Deleting a missing row is a no-op.
	Delete(ctx context.Context, chatID int64, mint string) error

	// SetThreshold updates the per-token whale threshold.
	SetThreshold(ctx context.Context, chatID int64, mint string, usd float64) error

	// SetMedia updates the media attached to alerts.
	SetMedia(ctx context.Context, chatID int64, mint, fileID string) error

	// SetSymbol caches the display symbol for a mint in every chat
	// tracking it.
	SetSymbol(ctx context.Context, mint, symbol string) error

	// SetVenue caches the located venue for a mint in every chat
	// tracking it. Settings (threshold, media, symbol) are preserved.
	SetVenue(ctx context.Context, mint string, v *domain.VenueSnapshot) error

	// SetPrice caches the latest price snapshot for a mint.
	SetPrice(ctx context.Context, mint string, p *domain.PriceSnapshot) error
}

// SeenStore is the dedupe memory: per venue, the recent window of
// processed signatures and the newest one. It is deliberately
// memory-resident; a restart re-seeds from the next poll without
// back-alerting.
type SeenStore interface {
	// MarkSeen records a signature for a venue. Returns true when the
	// signature was new, false when it was already recorded. The check
	// and the write are one atomic step.
	MarkSeen(venue, signature string) bool

	// Seen reports whether a signature was already recorded.
	Seen(venue, signature string) bool

	// LastSeen returns the most recently marked signature for a venue.
	LastSeen(venue string) (string, bool)

	// Known reports whether the venue has been seeded at all.
	Known(venue string) bool

	// Forget drops all state for a venue (after a handoff the
	// pre-listing window is dead weight).
	Forget(venue string)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
