package engine

import (
	"context"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/alert"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/storage"
)

// Dispatcher is the dedup & dispatch core: every candidate from every
// source adapter funnels through Submit, which guarantees at most one
// alert per unique (venue, signature) per destination.
type Dispatcher struct {
	logger     *zap.Logger
	seen       storage.SeenStore
	sink       alert.Sink
	defaultUSD float64
}

// NewDispatcher creates a Dispatcher. A zero defaultThresholdUSD uses
// DefaultWhaleThresholdUSD.
func NewDispatcher(logger *zap.Logger, seen storage.SeenStore, sink alert.Sink, defaultThresholdUSD float64) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultThresholdUSD <= 0 {
		defaultThresholdUSD = DefaultWhaleThresholdUSD
	}
	return &Dispatcher{
		logger:     logger,
		seen:       seen,
		sink:       sink,
		defaultUSD: defaultThresholdUSD,
	}
}

// Submit evaluates one candidate for one subscription and emits zero or
// one alert. Returns true when an alert was dispatched.
//
// Order matters: the USD gate runs first (unpriced candidates fall back
// to the subscription's cached price or are dropped, never valued at a
// fabricated $0), then the threshold, then the atomic seen-check. The
// signature is recorded as seen before delivery, so a crash or sink
// failure can under-alert once but never double-alert.
func (d *Dispatcher) Submit(ctx context.Context, source string, ev *domain.TradeEvent, sub *domain.TrackedToken) bool {
	observability.RecordCandidate(source)

	if !ev.Priced {
		if sub.Price != nil && sub.Price.PriceUSD > 0 && ev.Amount > 0 {
			ev.USDValue = ev.Amount * sub.Price.PriceUSD
			ev.Priced = true
		} else {
			d.logger.Debug("dropping unpriced candidate",
				zap.String("source", source),
				zap.String("mint", ev.Mint),
				zap.String("signature", ev.Signature),
			)
			observability.DefaultMetrics.UnpricedDropped.Inc()
			return false
		}
	}

	threshold := sub.MinAlertUSD
	if threshold <= 0 {
		threshold = d.defaultUSD
	}
	if ev.USDValue < threshold {
		observability.DefaultMetrics.BelowThreshold.Inc()
		return false
	}

	if !d.seen.MarkSeen(dedupeVenue(sub), ev.Signature) {
		observability.RecordDuplicate(source)
		return false
	}

	a := alert.Alert{
		ChatID:       sub.ChatID,
		Symbol:       sub.Symbol,
		Mint:         ev.Mint,
		Direction:    ev.Direction,
		Amount:       ev.Amount,
		USDValue:     ev.USDValue,
		CounterParty: ev.CounterParty,
		Signature:    ev.Signature,
		MediaFileID:  sub.MediaFileID,
	}
	if sub.Listed() {
		a.PairAddress = sub.Venue.PairAddress
	}
	if sub.Price != nil {
		a.MarketCapUSD = sub.Price.MarketCapUSD
	} else if sub.Venue != nil {
		a.MarketCapUSD = sub.Venue.MarketCapUSD
	}

	if err := d.sink.Deliver(ctx, a); err != nil {
		// The event stays seen: a flaky sink must not cause alert
		// storms on replayed candidates.
		d.logger.Error("alert delivery failed",
			zap.Int64("chatID", sub.ChatID),
			zap.String("signature", ev.Signature),
			zap.Error(err),
		)
		observability.DefaultMetrics.AlertFailures.Inc()
		return true
	}

	observability.RecordAlertSent(ev.Direction.String())
	return true
}
