// Package alert defines the delivery boundary for trade alerts.
package alert

import (
	"context"

	"solana-trade-alerts/internal/domain"
)

// Alert is one rendered-ready trade notification.
type Alert struct {
	ChatID       int64
	Symbol       string
	Mint         string
	Direction    domain.Direction
	Amount       float64 // token units
	USDValue     float64
	MarketCapUSD float64 // 0 when unknown
	CounterParty string  // wallet address, may be empty
	Signature    string  // transaction reference
	PairAddress  string  // empty for pre-listing tokens
	MediaFileID  string  // optional photo attached to the message
}

// Sink delivers alerts to their destination. A delivery failure is the
// caller's to log; it never gates dedup state.
type Sink interface {
	Deliver(ctx context.Context, a Alert) error
}
