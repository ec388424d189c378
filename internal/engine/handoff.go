package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/market"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/storage"
)

// Resyncer reconciles streaming subscriptions after a venue change.
type Resyncer interface {
	Sync(ctx context.Context) error
}

// HandoffWatcher periodically re-checks pre-listing tokens for a
// liquidity pool. When one appears it migrates the token to venue-based
// tracking: the venue cache is updated for every chat, the stale
// pre-listing dedupe state is dropped, and the streaming subscriber is
// resynced. Per-chat settings survive the switch. A token that stays
// poolless past the attempt limit is silently given up on.
type HandoffWatcher struct {
	logger      *zap.Logger
	locator     market.VenueLocator
	tokens      storage.TrackedTokenStore
	seen        storage.SeenStore
	resyncer    Resyncer
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]int // per mint
}

// HandoffWatcherOptions contains configuration for creating a
// HandoffWatcher.
type HandoffWatcherOptions struct {
	Logger      *zap.Logger
	Locator     market.VenueLocator
	Tokens      storage.TrackedTokenStore
	Seen        storage.SeenStore
	Resyncer    Resyncer      // optional
	Interval    time.Duration // Default: 60s
	MaxAttempts int           // Default: 60
}

// NewHandoffWatcher creates a new HandoffWatcher.
func NewHandoffWatcher(opts HandoffWatcherOptions) *HandoffWatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 60
	}

	return &HandoffWatcher{
		logger:      logger,
		locator:     opts.Locator,
		tokens:      opts.Tokens,
		seen:        opts.Seen,
		resyncer:    opts.Resyncer,
		interval:    interval,
		maxAttempts: maxAttempts,
		attempts:    make(map[string]int),
	}
}

// Run re-checks pre-listing tokens until the context is cancelled.
func (h *HandoffWatcher) Run(ctx context.Context) error {
	h.logger.Info("handoff watcher started",
		zap.Duration("interval", h.interval),
		zap.Int("maxAttempts", h.maxAttempts),
	)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("handoff watcher stopping")
			return ctx.Err()
		case <-ticker.C:
			h.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs one reconciliation pass. Already-listed tokens are not
// touched, so re-locating a migrated token is a no-op.
func (h *HandoffWatcher) CheckOnce(ctx context.Context) {
	subs, err := h.tokens.ListActive(ctx)
	if err != nil {
		h.logger.Error("list active subscriptions", zap.Error(err))
		return
	}

	pending := make(map[string][]*domain.TrackedToken)
	for _, sub := range subs {
		if sub.Listed() {
			continue
		}
		pending[sub.Mint] = append(pending[sub.Mint], sub)
	}

	for mint, mintSubs := range pending {
		if ctx.Err() != nil {
			return
		}
		h.checkMint(ctx, mint, mintSubs)
	}
}

func (h *HandoffWatcher) checkMint(ctx context.Context, mint string, subs []*domain.TrackedToken) {
	h.mu.Lock()
	n := h.attempts[mint]
	if n >= h.maxAttempts {
		h.mu.Unlock()
		return
	}
	h.attempts[mint] = n + 1
	h.mu.Unlock()

	snap, err := h.locator.Locate(ctx, mint)
	if err != nil {
		h.logger.Debug("locate venue", zap.String("mint", mint), zap.Error(err))
		return
	}
	if snap.PreListing() {
		return
	}

	if err := h.tokens.SetVenue(ctx, mint, snap); err != nil {
		h.logger.Error("migrate venue",
			zap.String("mint", mint),
			zap.String("pair", snap.PairAddress),
			zap.Error(err),
		)
		return
	}

	// The pre-listing watermark is dead weight after migration.
	for _, sub := range subs {
		h.seen.Forget(dedupeVenue(sub))
	}

	h.mu.Lock()
	delete(h.attempts, mint)
	h.mu.Unlock()

	observability.RecordHandoff()
	h.logger.Info("venue handoff",
		zap.String("mint", mint),
		zap.String("pair", snap.PairAddress),
		zap.Int("chats", len(subs)),
	)

	if h.resyncer != nil {
		if err := h.resyncer.Sync(ctx); err != nil {
			h.logger.Warn("resync subscriptions", zap.Error(err))
		}
	}
}
