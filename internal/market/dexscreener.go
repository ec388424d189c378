package market

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
)

// DefaultDexScreenerBaseURL is the DexScreener public API endpoint.
const DefaultDexScreenerBaseURL = "https://api.dexscreener.com"

// DexScreenerClient queries DexScreener token pairs. It backs both the
// second resolver provider and the venue locator.
type DexScreenerClient struct {
	baseURL string
	http    *httpJSON
}

// NewDexScreenerClient creates a DexScreener client. An empty baseURL
// uses the public endpoint.
func NewDexScreenerClient(logger *zap.Logger, baseURL string) *DexScreenerClient {
	if baseURL == "" {
		baseURL = DefaultDexScreenerBaseURL
	}
	return &DexScreenerClient{
		baseURL: baseURL,
		http:    newHTTPJSON(logger, nil),
	}
}

func (c *DexScreenerClient) Name() string { return "dexscreener" }

type dexScreenerResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	PairAddress string   `json:"pairAddress"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
	PriceUsd    string   `json:"priceUsd"`
	Fdv         float64  `json:"fdv"`
	MarketCap   float64  `json:"marketCap"`
	Liquidity   *struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// fetchPairs returns all known pairs for a mint, primary pair first.
func (c *DexScreenerClient) fetchPairs(ctx context.Context, mint string) ([]dexPair, error) {
	var resp dexScreenerResponse
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)
	if err := c.http.get(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// TokenInfo implements Provider using the primary pair. Market cap prefers
// FDV and falls back to the explicit marketCap field.
func (c *DexScreenerClient) TokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	pairs, err := c.fetchPairs(ctx, mint)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, ErrNoData
	}

	pair := pairs[0]
	price, _ := strconv.ParseFloat(pair.PriceUsd, 64)

	mc := pair.Fdv
	if mc == 0 {
		mc = pair.MarketCap
	}

	return &domain.TokenInfo{
		Symbol:       pair.BaseToken.Symbol,
		Name:         pair.BaseToken.Name,
		PriceUSD:     price,
		MarketCapUSD: mc,
	}, nil
}

var _ Provider = (*DexScreenerClient)(nil)

// Locate resolves the primary liquidity venue for a mint. A token with no
// pairs is pre-listing: the snapshot carries an empty PairAddress and no
// error. Only a fetch failure is an error.
func (c *DexScreenerClient) Locate(ctx context.Context, mint string) (*domain.VenueSnapshot, error) {
	pairs, err := c.fetchPairs(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("locate venue for %s: %w", mint, err)
	}

	snap := &domain.VenueSnapshot{Mint: mint}
	if len(pairs) == 0 {
		return snap, nil
	}

	pair := pairs[0]
	snap.PairAddress = pair.PairAddress
	snap.BaseSymbol = pair.BaseToken.Symbol
	snap.QuoteSymbol = pair.QuoteToken.Symbol
	snap.PriceUSD, _ = strconv.ParseFloat(pair.PriceUsd, 64)
	snap.MarketCapUSD = pair.Fdv
	if pair.Liquidity != nil {
		snap.LiquidityUSD = pair.Liquidity.Usd
	}
	return snap, nil
}

// VenueLocator resolves the current trading venue for a token.
type VenueLocator interface {
	Locate(ctx context.Context, mint string) (*domain.VenueSnapshot, error)
}

var _ VenueLocator = (*DexScreenerClient)(nil)
