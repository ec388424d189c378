package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/decode"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/solana"
	"solana-trade-alerts/internal/storage"
)

// RPCPoller periodically lists recent signatures touching each tracked
// mint and decodes the unseen ones into trade candidates.
type RPCPoller struct {
	logger     *zap.Logger
	rpc        solana.RPCClient
	decoder    *decode.Decoder
	resolver   PriceResolver
	tokens     storage.TrackedTokenStore
	seen       storage.SeenStore
	dispatcher *Dispatcher
	interval   time.Duration
	limit      int
	maxSigAge  time.Duration // 0 disables the age cutoff
}

// RPCPollerOptions contains configuration for creating an RPCPoller.
type RPCPollerOptions struct {
	Logger     *zap.Logger
	RPC        solana.RPCClient
	Decoder    *decode.Decoder
	Resolver   PriceResolver
	Tokens     storage.TrackedTokenStore
	Seen       storage.SeenStore
	Dispatcher *Dispatcher
	Interval   time.Duration // Default: 20s
	Limit      int           // Default: 5 signatures per poll
	MaxSigAge  time.Duration // Default: 0 (disabled)
}

// NewRPCPoller creates a new RPCPoller.
func NewRPCPoller(opts RPCPollerOptions) *RPCPoller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.Interval
	if interval == 0 {
		interval = 20 * time.Second
	}
	limit := opts.Limit
	if limit == 0 {
		limit = 5
	}

	return &RPCPoller{
		logger:     logger,
		rpc:        opts.RPC,
		decoder:    opts.Decoder,
		resolver:   opts.Resolver,
		tokens:     opts.Tokens,
		seen:       opts.Seen,
		dispatcher: opts.Dispatcher,
		interval:   interval,
		limit:      limit,
		maxSigAge:  opts.MaxSigAge,
	}
}

// Run polls until the context is cancelled.
func (p *RPCPoller) Run(ctx context.Context) error {
	p.logger.Info("rpc poller started",
		zap.Duration("interval", p.interval),
		zap.Int("limit", p.limit),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("rpc poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one polling pass over every active subscription.
func (p *RPCPoller) PollOnce(ctx context.Context) {
	subs, err := p.tokens.ListActive(ctx)
	if err != nil {
		p.logger.Error("list active subscriptions", zap.Error(err))
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceRPC).Inc()
		return
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		p.pollSubscription(ctx, sub)
	}
}

func (p *RPCPoller) pollSubscription(ctx context.Context, sub *domain.TrackedToken) {
	venue := dedupeVenue(sub)

	sigs, err := p.rpc.GetSignaturesForAddress(ctx, sub.Mint, &solana.SignaturesOpts{Limit: p.limit})
	if err != nil {
		p.logger.Warn("list signatures",
			zap.String("mint", sub.Mint),
			zap.Error(err),
		)
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceRPC).Inc()
		return
	}
	if len(sigs) == 0 {
		return
	}

	// First sight of this venue: seed the window with the existing
	// backlog instead of alerting on it.
	if !p.seen.Known(venue) {
		for _, s := range sigs {
			p.seen.MarkSeen(venue, s.Signature)
		}
		p.logger.Debug("seeded dedupe state",
			zap.String("mint", sub.Mint),
			zap.Int("signatures", len(sigs)),
		)
		return
	}

	// Signatures arrive newest first; collect the unseen prefix.
	var gap []solana.SignatureInfo
	for _, s := range sigs {
		if p.seen.Seen(venue, s.Signature) {
			break
		}
		gap = append(gap, s)
	}
	if len(gap) == 0 {
		return
	}

	p.refreshPrice(ctx, sub)

	// Process oldest to newest so the watermark advances monotonically
	// and nothing is skipped when several land between polls.
	for i := len(gap) - 1; i >= 0; i-- {
		p.processSignature(ctx, sub, venue, gap[i])
	}
}

func (p *RPCPoller) processSignature(ctx context.Context, sub *domain.TrackedToken, venue string, sig solana.SignatureInfo) {
	if sig.Err != nil {
		p.seen.MarkSeen(venue, sig.Signature)
		return
	}
	if p.maxSigAge > 0 && sig.BlockTime != nil {
		age := time.Since(time.Unix(*sig.BlockTime, 0))
		if age > p.maxSigAge {
			p.seen.MarkSeen(venue, sig.Signature)
			return
		}
	}

	tx, err := p.rpc.GetTransaction(ctx, sig.Signature)
	if err != nil {
		// Leave unmarked: the next poll retries this signature.
		p.logger.Warn("fetch transaction",
			zap.String("signature", sig.Signature),
			zap.Error(err),
		)
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceRPC).Inc()
		return
	}
	if tx == nil {
		p.seen.MarkSeen(venue, sig.Signature)
		return
	}

	if ev, ok := p.decodeEither(tx, sub); ok {
		p.dispatcher.Submit(ctx, SourceRPC, ev, sub)
	} else {
		observability.DefaultMetrics.DecodeMisses.Inc()
	}

	// Advance the watermark even when the transaction was not a trade
	// or the candidate was filtered out.
	p.seen.MarkSeen(venue, sig.Signature)
}

func (p *RPCPoller) decodeEither(tx *solana.Transaction, sub *domain.TrackedToken) (*domain.TradeEvent, bool) {
	ev, ok := p.decoder.Decode(tx, sub.Mint, domain.DirectionBuy)
	if !ok {
		ev, ok = p.decoder.Decode(tx, sub.Mint, domain.DirectionSell)
	}
	if !ok {
		return nil, false
	}

	ev.Venue = sub.VenueKey()
	if sub.Price != nil && sub.Price.PriceUSD > 0 {
		ev.USDValue = ev.Amount * sub.Price.PriceUSD
		ev.Priced = true
	}
	return ev, true
}

// refreshPrice resolves the current price before valuing a gap and
// backfills the symbol cache on first success. Resolution failure is not
// an error here; the dispatcher handles unpriced candidates.
func (p *RPCPoller) refreshPrice(ctx context.Context, sub *domain.TrackedToken) {
	if p.resolver == nil {
		return
	}

	info, err := p.resolver.Resolve(ctx, sub.Mint)
	if err != nil || info.PriceUSD <= 0 {
		return
	}

	snap := &domain.PriceSnapshot{
		PriceUSD:     info.PriceUSD,
		MarketCapUSD: info.MarketCapUSD,
		FetchedAt:    time.Now().UTC(),
	}
	sub.Price = snap
	if err := p.tokens.SetPrice(ctx, sub.Mint, snap); err != nil {
		p.logger.Warn("cache price", zap.String("mint", sub.Mint), zap.Error(err))
	}

	if sub.Symbol == "" && info.Symbol != "" {
		sub.Symbol = info.Symbol
		if err := p.tokens.SetSymbol(ctx, sub.Mint, info.Symbol); err != nil {
			p.logger.Warn("cache symbol", zap.String("mint", sub.Mint), zap.Error(err))
		}
	}
}
