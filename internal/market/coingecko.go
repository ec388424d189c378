package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
)

// DefaultCoinGeckoBaseURL is the CoinGecko public API endpoint.
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com"

// CoinGeckoProvider is the slow directory of established assets, last in
// the provider chain.
type CoinGeckoProvider struct {
	baseURL string
	http    *httpJSON
}

// NewCoinGeckoProvider creates a CoinGecko provider. An empty baseURL
// uses the public endpoint.
func NewCoinGeckoProvider(logger *zap.Logger, baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	return &CoinGeckoProvider{
		baseURL: baseURL,
		http:    newHTTPJSON(logger, nil),
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

type coinGeckoResponse struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
		MarketCap    map[string]float64 `json:"market_cap"`
	} `json:"market_data"`
}

// TokenInfo implements Provider.
func (p *CoinGeckoProvider) TokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	var resp coinGeckoResponse
	url := fmt.Sprintf("%s/api/v3/coins/solana/contract/%s", p.baseURL, mint)
	if err := p.http.get(ctx, url, &resp); err != nil {
		return nil, err
	}

	if resp.Symbol == "" {
		return nil, ErrNoData
	}

	return &domain.TokenInfo{
		Symbol:       strings.ToUpper(resp.Symbol),
		Name:         resp.Name,
		PriceUSD:     resp.MarketData.CurrentPrice["usd"],
		MarketCapUSD: resp.MarketData.MarketCap["usd"],
	}, nil
}

var _ Provider = (*CoinGeckoProvider)(nil)
