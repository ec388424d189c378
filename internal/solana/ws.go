package solana

import (
	"context"
	"sync"
)

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs mentioning the
	// addresses in the filter. The subscription survives reconnects.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogSubscription, error)

	// Unsubscribe cancels a subscription. Done is closed; no further
	// notifications are delivered on C.
	Unsubscribe(ctx context.Context, sub *LogSubscription) error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these addresses
	// (a pool address for listed tokens, a mint for pre-listing ones).
	Mentions []string
}

// LogSubscription is a live logs subscription. C delivers notifications
// until the subscription is cancelled; consumers select on Done to stop.
// C itself is never closed, so a delivery racing the cancel cannot panic.
type LogSubscription struct {
	C <-chan LogNotification

	ch         chan LogNotification // send side, owned by the client
	done       chan struct{}
	cancelOnce sync.Once
}

// NewLogSubscription creates a subscription handle delivering on C. The
// send side belongs to the WSClient implementation that returned it.
func NewLogSubscription(buffer int) *LogSubscription {
	ch := make(chan LogNotification, buffer)
	return &LogSubscription{C: ch, ch: ch, done: make(chan struct{})}
}

// Done is closed when the subscription is cancelled.
func (s *LogSubscription) Done() <-chan struct{} {
	return s.done
}

// Publish delivers a notification to the subscription's channel. Blocks
// while the consumer is behind; returns without delivering once the
// subscription is cancelled.
func (s *LogSubscription) Publish(n LogNotification) {
	select {
	case s.ch <- n:
	case <-s.done:
	}
}

// Cancel marks the subscription finished, unblocking Publish and any
// consumer selecting on Done. Safe to call more than once.
func (s *LogSubscription) Cancel() {
	s.cancelOnce.Do(func() { close(s.done) })
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
