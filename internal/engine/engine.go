// Package engine coordinates the source adapters, the dedup & dispatch
// core, and the pre-listing handoff watcher.
package engine

import (
	"context"
	"strconv"

	"solana-trade-alerts/internal/domain"
)

// Source adapter names, used for logging and metrics labels.
const (
	SourceRPC        = "rpc"
	SourceStream     = "stream"
	SourceAggregator = "aggregator"
)

// DefaultWhaleThresholdUSD applies when a subscription has no configured
// minimum alert value.
const DefaultWhaleThresholdUSD = 1000

// PriceResolver is the slice of market.Resolver the adapters need.
type PriceResolver interface {
	Resolve(ctx context.Context, mint string) (*domain.TokenInfo, error)
}

// dedupeVenue scopes a subscription's dedup state. Keys are per
// destination chat so every tracking community alerts independently, and
// the pre-listing sentinel is widened with the mint so two poolless
// tokens in one chat never share a watermark.
func dedupeVenue(sub *domain.TrackedToken) string {
	v := sub.VenueKey()
	if v == domain.PreListingVenue {
		v = domain.PreListingVenue + ":" + sub.Mint
	}
	return strconv.FormatInt(sub.ChatID, 10) + "|" + v
}
