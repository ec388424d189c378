package domain

import "time"

// PreListingVenue is the sentinel venue for tokens that trade only on the
// bonding curve and have no liquidity pool yet. It participates in the
// dedup key like a real pair address.
const PreListingVenue = "PRE_LISTING"

// NativeSOLMint is the wrapped-SOL placeholder address. It is not a
// trackable SPL mint and is rejected at configuration time.
const NativeSOLMint = "So11111111111111111111111111111111111111112"

// TrackedToken is one (chat, mint) tracking subscription.
// Uniquely keyed by (ChatID, Mint).
type TrackedToken struct {
	ChatID      int64   // destination chat/channel
	Mint        string  // SPL mint address
	Symbol      string  // cached display symbol, may be empty until first resolve
	MediaFileID string  // optional media attached to alerts
	MinAlertUSD float64 // per-token whale threshold; 0 means use the default
	Active      bool

	// Venue cache. A nil Venue means the venue has not been located yet;
	// a snapshot with empty PairAddress means the token is pre-listing.
	Venue *VenueSnapshot

	// Price cache, used as an explicit fallback when live pricing fails.
	Price *PriceSnapshot
}

// VenueKey returns the dedup venue for this subscription: the pair address
// when listed, the pre-listing sentinel otherwise.
func (t *TrackedToken) VenueKey() string {
	if t.Venue != nil && t.Venue.PairAddress != "" {
		return t.Venue.PairAddress
	}
	return PreListingVenue
}

// Listed reports whether the token has a located liquidity pool.
func (t *TrackedToken) Listed() bool {
	return t.Venue != nil && t.Venue.PairAddress != ""
}

// VenueSnapshot is the resolved trading venue for a token.
type VenueSnapshot struct {
	Mint         string
	PairAddress  string // empty means pre-listing
	BaseSymbol   string
	QuoteSymbol  string
	PriceUSD     float64
	LiquidityUSD float64
	MarketCapUSD float64
}

// PreListing reports whether the snapshot describes a token without a pool.
func (v *VenueSnapshot) PreListing() bool {
	return v.PairAddress == ""
}

// PriceSnapshot is a cached price observation for a tracked token.
type PriceSnapshot struct {
	PriceUSD     float64
	MarketCapUSD float64
	FetchedAt    time.Time
}

// TokenInfo is the best-effort identity and pricing returned by the
// price/identity resolver. A zero PriceUSD means "unknown", never a real
// zero-dollar valuation.
type TokenInfo struct {
	Symbol       string
	Name         string
	PriceUSD     float64
	MarketCapUSD float64
}
