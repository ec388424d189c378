package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/storage"
)

// TrackedTokenStore implements storage.TrackedTokenStore using PostgreSQL.
type TrackedTokenStore struct {
	pool *Pool
}

// NewTrackedTokenStore creates a new TrackedTokenStore.
func NewTrackedTokenStore(pool *Pool) *TrackedTokenStore {
	return &TrackedTokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrackedTokenStore = (*TrackedTokenStore)(nil)

const trackedColumns = `
	chat_id, mint, symbol, media_file_id, min_alert_usd, active,
	venue_checked, pair_address, base_symbol, quote_symbol,
	venue_price_usd, venue_liquidity_usd, venue_market_cap_usd,
	price_usd, market_cap_usd, price_fetched_at
`

// Upsert inserts or replaces a subscription.
func (s *TrackedTokenStore) Upsert(ctx context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_tokens (
			chat_id, mint, symbol, media_file_id, min_alert_usd, active,
			venue_checked, pair_address, base_symbol, quote_symbol,
			venue_price_usd, venue_liquidity_usd, venue_market_cap_usd,
			price_usd, market_cap_usd, price_fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (chat_id, mint) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			media_file_id = EXCLUDED.media_file_id,
			min_alert_usd = EXCLUDED.min_alert_usd,
			active = EXCLUDED.active,
			venue_checked = EXCLUDED.venue_checked,
			pair_address = EXCLUDED.pair_address,
			base_symbol = EXCLUDED.base_symbol,
			quote_symbol = EXCLUDED.quote_symbol,
			venue_price_usd = EXCLUDED.venue_price_usd,
			venue_liquidity_usd = EXCLUDED.venue_liquidity_usd,
			venue_market_cap_usd = EXCLUDED.venue_market_cap_usd,
			price_usd = EXCLUDED.price_usd,
			market_cap_usd = EXCLUDED.market_cap_usd,
			price_fetched_at = EXCLUDED.price_fetched_at,
			updated_at = NOW()
	`

	venueChecked := t.Venue != nil
	var pairAddress, baseSymbol, quoteSymbol string
	var venuePrice, venueLiquidity, venueMarketCap float64
	if t.Venue != nil {
		pairAddress = t.Venue.PairAddress
		baseSymbol = t.Venue.BaseSymbol
		quoteSymbol = t.Venue.QuoteSymbol
		venuePrice = t.Venue.PriceUSD
		venueLiquidity = t.Venue.LiquidityUSD
		venueMarketCap = t.Venue.MarketCapUSD
	}

	var priceUSD, marketCapUSD float64
	var fetchedAt *time.Time
	if t.Price != nil {
		priceUSD = t.Price.PriceUSD
		marketCapUSD = t.Price.MarketCapUSD
		ts := t.Price.FetchedAt
		fetchedAt = &ts
	}

	_, err := s.pool.Exec(ctx, query,
		t.ChatID,
		t.Mint,
		t.Symbol,
		t.MediaFileID,
		t.MinAlertUSD,
		t.Active,
		venueChecked,
		pairAddress,
		baseSymbol,
		quoteSymbol,
		venuePrice,
		venueLiquidity,
		venueMarketCap,
		priceUSD,
		marketCapUSD,
		fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tracked token: %w", err)
	}
	return nil
}

// Get retrieves one subscription. Returns ErrNotFound if absent.
func (s *TrackedTokenStore) Get(ctx context.Context, chatID int64, mint string) (*domain.TrackedToken, error) {
	query := `
		SELECT ` + trackedColumns + `
		FROM tracked_tokens
		WHERE chat_id = $1 AND mint = $2
	`

	row := s.pool.QueryRow(ctx, query, chatID, mint)
	t, err := scanTracked(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked token: %w", err)
	}
	return t, nil
}

// ListActive returns every active subscription across all chats.
func (s *TrackedTokenStore) ListActive(ctx context.Context) ([]*domain.TrackedToken, error) {
	query := `
		SELECT ` + trackedColumns + `
		FROM tracked_tokens
		WHERE active
		ORDER BY chat_id, mint
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active tracked tokens: %w", err)
	}
	defer rows.Close()

	return collectTracked(rows)
}

// ListByChat returns all subscriptions for one chat.
func (s *TrackedTokenStore) ListByChat(ctx context.Context, chatID int64) ([]*domain.TrackedToken, error) {
	query := `
		SELECT ` + trackedColumns + `
		FROM tracked_tokens
		WHERE chat_id = $1
		ORDER BY mint
	`

	rows, err := s.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list tracked tokens by chat: %w", err)
	}
	defer rows.Close()

	return collectTracked(rows)
}

// Delete removes a subscription. Deleting a missing row is a no-op.
func (s *TrackedTokenStore) Delete(ctx context.Context, chatID int64, mint string) error {
	query := `DELETE FROM tracked_tokens WHERE chat_id = $1 AND mint = $2`

	if _, err := s.pool.Exec(ctx, query, chatID, mint); err != nil {
		return fmt.Errorf("delete tracked token: %w", err)
	}
	return nil
}

// SetThreshold updates the per-token whale threshold.
func (s *TrackedTokenStore) SetThreshold(ctx context.Context, chatID int64, mint string, usd float64) error {
	query := `
		UPDATE tracked_tokens
		SET min_alert_usd = $3, updated_at = NOW()
		WHERE chat_id = $1 AND mint = $2
	`

	tag, err := s.pool.Exec(ctx, query, chatID, mint, usd)
	if err != nil {
		return fmt.Errorf("set tracked token threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetMedia updates the media attached to alerts.
func (s *TrackedTokenStore) SetMedia(ctx context.Context, chatID int64, mint, fileID string) error {
	query := `
		UPDATE tracked_tokens
		SET media_file_id = $3, updated_at = NOW()
		WHERE chat_id = $1 AND mint = $2
	`

	tag, err := s.pool.Exec(ctx, query, chatID, mint, fileID)
	if err != nil {
		return fmt.Errorf("set tracked token media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetSymbol caches the display symbol for a mint in every chat tracking it.
func (s *TrackedTokenStore) SetSymbol(ctx context.Context, mint, symbol string) error {
	query := `
		UPDATE tracked_tokens
		SET symbol = $2, updated_at = NOW()
		WHERE mint = $1
	`

	if _, err := s.pool.Exec(ctx, query, mint, symbol); err != nil {
		return fmt.Errorf("set tracked token symbol: %w", err)
	}
	return nil
}

// SetVenue caches the located venue for a mint in every chat tracking it.
// Per-chat settings (threshold, media, symbol) are untouched.
func (s *TrackedTokenStore) SetVenue(ctx context.Context, mint string, v *domain.VenueSnapshot) error {
	if v == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tracked_tokens
		SET venue_checked = TRUE,
			pair_address = $2,
			base_symbol = $3,
			quote_symbol = $4,
			venue_price_usd = $5,
			venue_liquidity_usd = $6,
			venue_market_cap_usd = $7,
			updated_at = NOW()
		WHERE mint = $1
	`

	_, err := s.pool.Exec(ctx, query, mint,
		v.PairAddress, v.BaseSymbol, v.QuoteSymbol,
		v.PriceUSD, v.LiquidityUSD, v.MarketCapUSD,
	)
	if err != nil {
		return fmt.Errorf("set tracked token venue: %w", err)
	}
	return nil
}

// SetPrice caches the latest price snapshot for a mint.
func (s *TrackedTokenStore) SetPrice(ctx context.Context, mint string, p *domain.PriceSnapshot) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tracked_tokens
		SET price_usd = $2,
			market_cap_usd = $3,
			price_fetched_at = $4,
			updated_at = NOW()
		WHERE mint = $1
	`

	_, err := s.pool.Exec(ctx, query, mint, p.PriceUSD, p.MarketCapUSD, p.FetchedAt)
	if err != nil {
		return fmt.Errorf("set tracked token price: %w", err)
	}
	return nil
}

// scanTracked scans a single row into TrackedToken.
func scanTracked(row pgx.Row) (*domain.TrackedToken, error) {
	var t domain.TrackedToken
	var venueChecked bool
	var pairAddress, baseSymbol, quoteSymbol string
	var venuePrice, venueLiquidity, venueMarketCap float64
	var priceUSD, marketCapUSD float64
	var fetchedAt *time.Time

	err := row.Scan(
		&t.ChatID,
		&t.Mint,
		&t.Symbol,
		&t.MediaFileID,
		&t.MinAlertUSD,
		&t.Active,
		&venueChecked,
		&pairAddress,
		&baseSymbol,
		&quoteSymbol,
		&venuePrice,
		&venueLiquidity,
		&venueMarketCap,
		&priceUSD,
		&marketCapUSD,
		&fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	if venueChecked {
		t.Venue = &domain.VenueSnapshot{
			Mint:         t.Mint,
			PairAddress:  pairAddress,
			BaseSymbol:   baseSymbol,
			QuoteSymbol:  quoteSymbol,
			PriceUSD:     venuePrice,
			LiquidityUSD: venueLiquidity,
			MarketCapUSD: venueMarketCap,
		}
	}
	if fetchedAt != nil {
		t.Price = &domain.PriceSnapshot{
			PriceUSD:     priceUSD,
			MarketCapUSD: marketCapUSD,
			FetchedAt:    *fetchedAt,
		}
	}

	return &t, nil
}

func collectTracked(rows pgx.Rows) ([]*domain.TrackedToken, error) {
	var result []*domain.TrackedToken
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked tokens: %w", err)
	}
	return result, nil
}
