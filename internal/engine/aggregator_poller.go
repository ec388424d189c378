package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/market"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/storage"
)

// AggregatorPoller periodically lists recent trades for each listed
// token's venue from a third-party aggregator. It is the fail-safe path:
// the data source is independent of the RPC and streaming feeds, so it
// recovers events the stream silently missed. Pre-listing tokens have no
// venue and are skipped.
type AggregatorPoller struct {
	logger     *zap.Logger
	lister     market.TradeLister
	tokens     storage.TrackedTokenStore
	seen       storage.SeenStore
	dispatcher *Dispatcher
	interval   time.Duration
	limit      int
}

// AggregatorPollerOptions contains configuration for creating an
// AggregatorPoller.
type AggregatorPollerOptions struct {
	Logger     *zap.Logger
	Lister     market.TradeLister
	Tokens     storage.TrackedTokenStore
	Seen       storage.SeenStore
	Dispatcher *Dispatcher
	Interval   time.Duration // Default: 60s
	Limit      int           // Default: 50 trades per poll
}

// NewAggregatorPoller creates a new AggregatorPoller.
func NewAggregatorPoller(opts AggregatorPollerOptions) *AggregatorPoller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}
	limit := opts.Limit
	if limit == 0 {
		limit = 50
	}

	return &AggregatorPoller{
		logger:     logger,
		lister:     opts.Lister,
		tokens:     opts.Tokens,
		seen:       opts.Seen,
		dispatcher: opts.Dispatcher,
		interval:   interval,
		limit:      limit,
	}
}

// Run polls until the context is cancelled.
func (p *AggregatorPoller) Run(ctx context.Context) error {
	p.logger.Info("aggregator poller started",
		zap.Duration("interval", p.interval),
		zap.Int("limit", p.limit),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("aggregator poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one polling pass over every listed subscription.
func (p *AggregatorPoller) PollOnce(ctx context.Context) {
	subs, err := p.tokens.ListActive(ctx)
	if err != nil {
		p.logger.Error("list active subscriptions", zap.Error(err))
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceAggregator).Inc()
		return
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		if !sub.Listed() {
			continue
		}
		p.pollVenue(ctx, sub)
	}
}

func (p *AggregatorPoller) pollVenue(ctx context.Context, sub *domain.TrackedToken) {
	venue := dedupeVenue(sub)
	pair := sub.Venue.PairAddress

	trades, err := p.lister.RecentTrades(ctx, pair, p.limit)
	if err != nil {
		p.logger.Warn("list aggregator trades",
			zap.String("pair", pair),
			zap.Error(err),
		)
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceAggregator).Inc()
		return
	}
	if len(trades) == 0 {
		return
	}

	// Seed on first sight instead of alerting on backlog.
	if !p.seen.Known(venue) {
		for _, t := range trades {
			p.seen.MarkSeen(venue, t.TxHash)
		}
		return
	}

	// Trades arrive newest first; walk to the last-seen transaction to
	// find the gap, then process it oldest to newest.
	var gap []market.AggregatorTrade
	for _, t := range trades {
		if p.seen.Seen(venue, t.TxHash) {
			break
		}
		gap = append(gap, t)
	}

	for i := len(gap) - 1; i >= 0; i-- {
		t := gap[i]
		ev := &domain.TradeEvent{
			Mint:         sub.Mint,
			Venue:        sub.VenueKey(),
			Signature:    t.TxHash,
			Direction:    t.Side,
			Amount:       t.TokenAmount,
			CounterParty: t.Owner,
			USDValue:     t.USDValue,
			Priced:       t.USDValue > 0,
			ObservedAt:   time.Unix(t.BlockTime, 0).UTC(),
		}
		p.dispatcher.Submit(ctx, SourceAggregator, ev, sub)
		p.seen.MarkSeen(venue, t.TxHash)
	}
}
