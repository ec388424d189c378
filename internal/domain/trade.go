package domain

import "time"

// Direction classifies a decoded trade.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TradeEvent is one detected on-chain trade, normalized from any source
// adapter. (Venue, Signature) is the global dedup key: the same underlying
// signature may be framed differently per source, but never per venue.
type TradeEvent struct {
	Mint         string
	Venue        string // pair address, or PreListingVenue
	Signature    string // transaction signature
	Direction    Direction
	Amount       float64 // token units, non-negative
	CounterParty string  // buyer or seller wallet, may be empty
	USDValue     float64 // estimate; meaningful only when Priced is true
	Priced       bool    // false when no price source resolved
	Slot         int64
	ObservedAt   time.Time
}

// DedupeKey returns the (venue, signature) identity used for at-most-once
// alerting.
func (e *TradeEvent) DedupeKey() string {
	return e.Venue + "|" + e.Signature
}
