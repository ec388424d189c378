package market

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/observability"
)

// ErrUnresolved is returned when every provider failed or had no data for
// a token. Callers must treat it as "price unknown" and suppress
// USD-dependent alerting, never as a real zero-dollar valuation.
var ErrUnresolved = errors.New("token unresolved by all providers")

// Provider is one external market-data source.
type Provider interface {
	Name() string

	// TokenInfo returns identity and pricing for a mint, or an error
	// (including ErrNoData) when this provider cannot help.
	TokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error)
}

// Resolver queries an ordered list of providers and returns the first
// non-empty answer. Provider failures are swallowed and logged; only the
// exhaustion of the whole list surfaces, as ErrUnresolved.
type Resolver struct {
	providers []Provider
	logger    *zap.Logger
}

// NewResolver creates a Resolver trying providers in the given order.
func NewResolver(logger *zap.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{providers: providers, logger: logger}
}

// Resolve returns best-effort symbol, price and market cap for a mint.
func (r *Resolver) Resolve(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	for _, p := range r.providers {
		info, err := p.TokenInfo(ctx, mint)
		if err != nil {
			r.logger.Debug("provider miss",
				zap.String("provider", p.Name()),
				zap.String("mint", mint),
				zap.Error(err))
			observability.RecordProviderFailure(p.Name())
			continue
		}
		if info == nil || (info.Symbol == "" && info.PriceUSD == 0) {
			continue
		}
		return info, nil
	}
	return nil, ErrUnresolved
}
