package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"solana-trade-alerts/internal/domain"
)

// DefaultBirdeyeBaseURL is the Birdeye public API endpoint.
const DefaultBirdeyeBaseURL = "https://public-api.birdeye.so"

// AggregatorTrade is one trade from the aggregator's per-venue list.
type AggregatorTrade struct {
	TxHash      string
	Side        domain.Direction
	USDValue    float64
	TokenAmount float64
	Owner       string
	BlockTime   int64 // Unix seconds
}

// TradeLister provides recent trades for a venue, newest first. It is the
// fail-safe path: a data source independent of the RPC and streaming
// feeds.
type TradeLister interface {
	RecentTrades(ctx context.Context, pairAddress string, limit int) ([]AggregatorTrade, error)
}

// BirdeyeClient lists recent swaps for a pair via the Birdeye txs API.
type BirdeyeClient struct {
	baseURL string
	http    *httpJSON
}

// NewBirdeyeClient creates a Birdeye trade-list client. An empty baseURL
// uses the public endpoint.
func NewBirdeyeClient(logger *zap.Logger, baseURL, apiKey string) *BirdeyeClient {
	if baseURL == "" {
		baseURL = DefaultBirdeyeBaseURL
	}
	headers := map[string]string{"x-chain": "solana"}
	if apiKey != "" {
		headers["X-API-KEY"] = apiKey
	}
	return &BirdeyeClient{
		baseURL: baseURL,
		http:    newHTTPJSON(logger, headers),
	}
}

type birdeyeTxsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []birdeyeTxItem `json:"items"`
	} `json:"data"`
}

type birdeyeTxItem struct {
	TxHash        string  `json:"txHash"`
	Side          string  `json:"side"`
	VolumeUSD     float64 `json:"volumeUSD"`
	Owner         string  `json:"owner"`
	BlockUnixTime int64   `json:"blockUnixTime"`
	From          *struct {
		UIAmount float64 `json:"uiAmount"`
	} `json:"from"`
	To *struct {
		UIAmount float64 `json:"uiAmount"`
	} `json:"to"`
}

// RecentTrades implements TradeLister. Results come back newest first,
// matching the API's sort order.
func (c *BirdeyeClient) RecentTrades(ctx context.Context, pairAddress string, limit int) ([]AggregatorTrade, error) {
	if limit <= 0 {
		limit = 50
	}

	var resp birdeyeTxsResponse
	url := fmt.Sprintf("%s/defi/txs/pair?address=%s&tx_type=swap&sort_type=desc&limit=%d",
		c.baseURL, pairAddress, limit)
	if err := c.http.get(ctx, url, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, ErrNoData
	}

	trades := make([]AggregatorTrade, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		var side domain.Direction
		switch strings.ToLower(item.Side) {
		case "buy":
			side = domain.DirectionBuy
		case "sell":
			side = domain.DirectionSell
		default:
			continue
		}

		t := AggregatorTrade{
			TxHash:    item.TxHash,
			Side:      side,
			USDValue:  item.VolumeUSD,
			Owner:     item.Owner,
			BlockTime: item.BlockUnixTime,
		}
		// Token amount is the received side on a buy, the sent side on
		// a sell.
		if side == domain.DirectionBuy && item.To != nil {
			t.TokenAmount = item.To.UIAmount
		} else if side == domain.DirectionSell && item.From != nil {
			t.TokenAmount = item.From.UIAmount
		}
		trades = append(trades, t)
	}

	return trades, nil
}

var _ TradeLister = (*BirdeyeClient)(nil)
