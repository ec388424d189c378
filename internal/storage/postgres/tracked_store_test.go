package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/storage"
)

func TestTrackedTokenStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	tok := &domain.TrackedToken{
		ChatID:      100,
		Mint:        "TrackedMint1",
		Symbol:      "TST",
		MediaFileID: "file-abc",
		MinAlertUSD: 1500,
		Active:      true,
	}

	err := store.Upsert(ctx, tok)
	require.NoError(t, err)

	got, err := store.Get(ctx, 100, "TrackedMint1")
	require.NoError(t, err)

	assert.Equal(t, tok.ChatID, got.ChatID)
	assert.Equal(t, tok.Mint, got.Mint)
	assert.Equal(t, tok.Symbol, got.Symbol)
	assert.Equal(t, tok.MediaFileID, got.MediaFileID)
	assert.InDelta(t, tok.MinAlertUSD, got.MinAlertUSD, 0.0001)
	assert.True(t, got.Active)
	assert.Nil(t, got.Venue, "venue should be unset until located")
	assert.Nil(t, got.Price, "price cache should be unset")
}

func TestTrackedTokenStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	tok := &domain.TrackedToken{ChatID: 100, Mint: "TrackedMint1", MinAlertUSD: 1000, Active: true}
	require.NoError(t, store.Upsert(ctx, tok))

	tok.MinAlertUSD = 2500
	tok.Symbol = "NEW"
	require.NoError(t, store.Upsert(ctx, tok))

	got, err := store.Get(ctx, 100, "TrackedMint1")
	require.NoError(t, err)
	assert.InDelta(t, 2500.0, got.MinAlertUSD, 0.0001)
	assert.Equal(t, "NEW", got.Symbol)
}

func TestTrackedTokenStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrackedTokenStore(pool)

	_, err := store.Get(context.Background(), 1, "Missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrackedTokenStore_VenueRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		ChatID: 100, Mint: "TrackedMint1", MinAlertUSD: 7777, Active: true,
	}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		ChatID: 200, Mint: "TrackedMint1", Active: true,
	}))

	venue := &domain.VenueSnapshot{
		Mint:         "TrackedMint1",
		PairAddress:  "PairXYZ",
		BaseSymbol:   "TST",
		QuoteSymbol:  "SOL",
		PriceUSD:     0.5,
		LiquidityUSD: 120000,
		MarketCapUSD: 900000,
	}
	require.NoError(t, store.SetVenue(ctx, "TrackedMint1", venue))

	for _, chatID := range []int64{100, 200} {
		got, err := store.Get(ctx, chatID, "TrackedMint1")
		require.NoError(t, err)
		require.NotNil(t, got.Venue, "chat %d", chatID)
		assert.Equal(t, "PairXYZ", got.Venue.PairAddress)
		assert.Equal(t, "TST", got.Venue.BaseSymbol)
		assert.InDelta(t, 0.5, got.Venue.PriceUSD, 0.0001)
	}

	// Per-chat settings survive the venue update.
	got, err := store.Get(ctx, 100, "TrackedMint1")
	require.NoError(t, err)
	assert.InDelta(t, 7777.0, got.MinAlertUSD, 0.0001)
}

func TestTrackedTokenStore_PreListingVenue(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		ChatID: 100, Mint: "CurveMint", Active: true,
	}))

	// A located-but-poolless venue is stored as checked with an empty
	// pair address, which is distinct from "never located".
	require.NoError(t, store.SetVenue(ctx, "CurveMint", &domain.VenueSnapshot{Mint: "CurveMint"}))

	got, err := store.Get(ctx, 100, "CurveMint")
	require.NoError(t, err)
	require.NotNil(t, got.Venue)
	assert.True(t, got.Venue.PreListing())
	assert.Equal(t, domain.PreListingVenue, got.VenueKey())
}

func TestTrackedTokenStore_PriceRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		ChatID: 100, Mint: "TrackedMint1", Active: true,
	}))

	fetchedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.SetPrice(ctx, "TrackedMint1", &domain.PriceSnapshot{
		PriceUSD:     0.042,
		MarketCapUSD: 420000,
		FetchedAt:    fetchedAt,
	}))

	got, err := store.Get(ctx, 100, "TrackedMint1")
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 0.042, got.Price.PriceUSD, 0.000001)
	assert.InDelta(t, 420000.0, got.Price.MarketCapUSD, 0.0001)
	assert.True(t, fetchedAt.Equal(got.Price.FetchedAt),
		"fetched_at = %v, want %v", got.Price.FetchedAt, fetchedAt)
}

func TestTrackedTokenStore_ListActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 2, Mint: "MintA", Active: true}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MintB", Active: true}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MintA", Active: false}))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ChatID)
	assert.Equal(t, "MintB", active[0].Mint)
	assert.Equal(t, int64(2), active[1].ChatID)
	assert.Equal(t, "MintA", active[1].Mint)
}

func TestTrackedTokenStore_ListByChat(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MintA", Active: true}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MintB", Active: false}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 2, Mint: "MintA", Active: true}))

	rows, err := store.ListByChat(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, int64(1), r.ChatID)
	}
}

func TestTrackedTokenStore_DeleteAndSetters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrackedTokenStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MintA", Active: true}))

	require.NoError(t, store.SetThreshold(ctx, 1, "MintA", 5000))
	require.NoError(t, store.SetMedia(ctx, 1, "MintA", "file-123"))
	require.NoError(t, store.SetSymbol(ctx, "MintA", "WIF"))

	got, err := store.Get(ctx, 1, "MintA")
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, got.MinAlertUSD, 0.0001)
	assert.Equal(t, "file-123", got.MediaFileID)
	assert.Equal(t, "WIF", got.Symbol)

	assert.ErrorIs(t, store.SetThreshold(ctx, 9, "MintA", 1), storage.ErrNotFound)
	assert.ErrorIs(t, store.SetMedia(ctx, 9, "MintA", "x"), storage.ErrNotFound)

	require.NoError(t, store.Delete(ctx, 1, "MintA"))
	_, err = store.Get(ctx, 1, "MintA")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting a missing row is a no-op.
	require.NoError(t, store.Delete(ctx, 1, "MintA"))
}
