package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/decode"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/solana"
	"solana-trade-alerts/internal/storage"
)

// StreamSubscriber maintains one logs subscription per tracked venue
// (listed tokens) or mint (pre-listing tokens) and turns push
// notifications into trade candidates. Reconnect and resubscription are
// handled inside the WebSocket client; this layer only reconciles which
// addresses are watched.
type StreamSubscriber struct {
	logger       *zap.Logger
	ws           solana.WSClient
	rpc          solana.RPCClient
	decoder      *decode.Decoder
	resolver     PriceResolver
	tokens       storage.TrackedTokenStore
	dispatcher   *Dispatcher
	syncInterval time.Duration

	mu      sync.Mutex
	watches map[string]*watch // keyed by watched address
}

type watch struct {
	address string
	mint    string
	sub     *solana.LogSubscription
}

// StreamSubscriberOptions contains configuration for creating a
// StreamSubscriber.
type StreamSubscriberOptions struct {
	Logger       *zap.Logger
	WS           solana.WSClient
	RPC          solana.RPCClient
	Decoder      *decode.Decoder
	Resolver     PriceResolver
	Tokens       storage.TrackedTokenStore
	Dispatcher   *Dispatcher
	SyncInterval time.Duration // Default: 30s
}

// NewStreamSubscriber creates a new StreamSubscriber.
func NewStreamSubscriber(opts StreamSubscriberOptions) *StreamSubscriber {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	syncInterval := opts.SyncInterval
	if syncInterval == 0 {
		syncInterval = 30 * time.Second
	}

	return &StreamSubscriber{
		logger:       logger,
		ws:           opts.WS,
		rpc:          opts.RPC,
		decoder:      opts.Decoder,
		resolver:     opts.Resolver,
		tokens:       opts.Tokens,
		dispatcher:   opts.Dispatcher,
		syncInterval: syncInterval,
		watches:      make(map[string]*watch),
	}
}

// Run reconciles subscriptions until the context is cancelled.
func (s *StreamSubscriber) Run(ctx context.Context) error {
	s.logger.Info("stream subscriber started",
		zap.Duration("syncInterval", s.syncInterval),
	)

	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial subscription sync", zap.Error(err))
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stream subscriber stopping")
			s.unsubscribeAll()
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Warn("subscription sync", zap.Error(err))
			}
		}
	}
}

// Sync reconciles the watched addresses with the active subscriptions: a
// listed token is watched by its pair address, a pre-listing token by its
// mint, never both. The handoff watcher calls this after migrating a
// token so the old subscription drops immediately.
func (s *StreamSubscriber) Sync(ctx context.Context) error {
	subs, err := s.tokens.ListActive(ctx)
	if err != nil {
		return err
	}

	desired := make(map[string]string) // address -> mint
	for _, sub := range subs {
		if sub.Listed() {
			desired[sub.Venue.PairAddress] = sub.Mint
		} else {
			desired[sub.Mint] = sub.Mint
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, w := range s.watches {
		if _, ok := desired[addr]; ok {
			continue
		}
		if err := s.ws.Unsubscribe(ctx, w.sub); err != nil {
			s.logger.Warn("unsubscribe", zap.String("address", addr), zap.Error(err))
		}
		delete(s.watches, addr)
		s.logger.Info("dropped log subscription", zap.String("address", addr))
	}

	for addr, mint := range desired {
		if _, ok := s.watches[addr]; ok {
			continue
		}
		sub, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{addr}})
		if err != nil {
			s.logger.Warn("subscribe",
				zap.String("address", addr),
				zap.Error(err),
			)
			observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceStream).Inc()
			continue
		}
		w := &watch{address: addr, mint: mint, sub: sub}
		s.watches[addr] = w
		go s.consume(ctx, w)
		s.logger.Info("added log subscription",
			zap.String("address", addr),
			zap.String("mint", mint),
		)
	}

	observability.DefaultMetrics.WSSubscriptions.Set(float64(len(s.watches)))
	return nil
}

func (s *StreamSubscriber) unsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for addr, w := range s.watches {
		if err := s.ws.Unsubscribe(ctx, w.sub); err != nil {
			s.logger.Warn("unsubscribe", zap.String("address", addr), zap.Error(err))
		}
		delete(s.watches, addr)
	}
	observability.DefaultMetrics.WSSubscriptions.Set(0)
}

// consume drains one subscription's channel until it is cancelled.
func (s *StreamSubscriber) consume(ctx context.Context, w *watch) {
	for {
		select {
		case n := <-w.sub.C:
			if n.Err != nil {
				continue
			}
			s.handleNotification(ctx, w.mint, n)
		case <-w.sub.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *StreamSubscriber) handleNotification(ctx context.Context, mint string, n solana.LogNotification) {
	tx, err := s.rpc.GetTransaction(ctx, n.Signature)
	if err != nil {
		s.logger.Warn("fetch streamed transaction",
			zap.String("signature", n.Signature),
			zap.Error(err),
		)
		observability.DefaultMetrics.SourceErrors.WithLabelValues(SourceStream).Inc()
		return
	}
	if tx == nil {
		return
	}

	ev, ok := s.decoder.Decode(tx, mint, domain.DirectionBuy)
	if !ok {
		ev, ok = s.decoder.Decode(tx, mint, domain.DirectionSell)
	}
	if !ok {
		observability.DefaultMetrics.DecodeMisses.Inc()
		return
	}

	var price *domain.TokenInfo
	if s.resolver != nil {
		if info, rerr := s.resolver.Resolve(ctx, mint); rerr == nil && info.PriceUSD > 0 {
			price = info
		}
	}

	subs, err := s.tokens.ListActive(ctx)
	if err != nil {
		s.logger.Error("list active subscriptions", zap.Error(err))
		return
	}

	for _, sub := range subs {
		if sub.Mint != mint {
			continue
		}
		candidate := *ev
		candidate.Venue = sub.VenueKey()
		if price != nil {
			candidate.USDValue = candidate.Amount * price.PriceUSD
			candidate.Priced = true
		}
		s.dispatcher.Submit(ctx, SourceStream, &candidate, sub)
	}
}
