package market

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
)

// DefaultPumpFunBaseURL is the pump.fun token API endpoint.
const DefaultPumpFunBaseURL = "https://api.pump.fun"

// PumpFunProvider resolves bonding-curve tokens that have no pool yet.
// It is first in the provider chain because pre-listing tokens exist
// nowhere else.
type PumpFunProvider struct {
	baseURL string
	http    *httpJSON
}

// NewPumpFunProvider creates a pump.fun provider. An empty baseURL uses
// the public endpoint.
func NewPumpFunProvider(logger *zap.Logger, baseURL string) *PumpFunProvider {
	if baseURL == "" {
		baseURL = DefaultPumpFunBaseURL
	}
	return &PumpFunProvider{
		baseURL: baseURL,
		http:    newHTTPJSON(logger, nil),
	}
}

func (p *PumpFunProvider) Name() string { return "pumpfun" }

type pumpFunResponse struct {
	Data struct {
		Symbol    string  `json:"symbol"`
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
		MarketCap float64 `json:"marketCap"`
	} `json:"data"`
}

// TokenInfo implements Provider.
func (p *PumpFunProvider) TokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	var resp pumpFunResponse
	url := fmt.Sprintf("%s/v1/token/%s", p.baseURL, mint)
	if err := p.http.get(ctx, url, &resp); err != nil {
		return nil, err
	}

	if resp.Data.Symbol == "" && resp.Data.Price == 0 {
		return nil, ErrNoData
	}

	return &domain.TokenInfo{
		Symbol:       resp.Data.Symbol,
		Name:         resp.Data.Name,
		PriceUSD:     resp.Data.Price,
		MarketCapUSD: resp.Data.MarketCap,
	}, nil
}

var _ Provider = (*PumpFunProvider)(nil)
