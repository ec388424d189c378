package engine

import (
	"context"
	"testing"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/storage/memory"
)

func preListingSnap() *domain.VenueSnapshot {
	return &domain.VenueSnapshot{}
}

func listedSnap(pair string) *domain.VenueSnapshot {
	return &domain.VenueSnapshot{
		PairAddress: pair,
		BaseSymbol:  "TST",
		QuoteSymbol: "SOL",
		PriceUSD:    0.1,
	}
}

func TestHandoffWatcher_MigratesWhenVenueAppears(t *testing.T) {
	ctx := context.Background()

	tokens := memory.NewTrackedTokenStore()
	sub := &domain.TrackedToken{ChatID: 1, Mint: "MINT2", MinAlertUSD: 25, Active: true}
	if err := tokens.Upsert(ctx, sub); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	seen := memory.NewSeenStore(0)
	seen.MarkSeen(dedupeVenue(sub), "curve-sig") // pre-listing watermark

	locator := &fakeLocator{snaps: []*domain.VenueSnapshot{
		preListingSnap(), preListingSnap(), listedSnap("PairNew"),
	}}
	resyncer := &fakeResyncer{}

	w := NewHandoffWatcher(HandoffWatcherOptions{
		Locator:  locator,
		Tokens:   tokens,
		Seen:     seen,
		Resyncer: resyncer,
	})

	// Two checks while still poolless.
	w.CheckOnce(ctx)
	w.CheckOnce(ctx)

	got, _ := tokens.Get(ctx, 1, "MINT2")
	if got.Listed() {
		t.Fatal("token listed before the venue appeared")
	}

	// Third check finds the pool and migrates.
	w.CheckOnce(ctx)

	got, err := tokens.Get(ctx, 1, "MINT2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Listed() || got.Venue.PairAddress != "PairNew" {
		t.Fatalf("venue = %+v, want PairNew", got.Venue)
	}
	// Settings survive the migration.
	if got.MinAlertUSD != 25 {
		t.Errorf("threshold after handoff = %v, want 25", got.MinAlertUSD)
	}
	// Stale pre-listing dedupe state is dropped.
	if seen.Known(dedupeVenue(sub)) {
		t.Error("pre-listing dedupe state survived the handoff")
	}
	if resyncer.callCount() != 1 {
		t.Errorf("resync calls = %d, want 1", resyncer.callCount())
	}
}

func TestHandoffWatcher_Idempotent(t *testing.T) {
	ctx := context.Background()

	tokens := memory.NewTrackedTokenStore()
	if err := tokens.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MINT2", Active: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	locator := &fakeLocator{snaps: []*domain.VenueSnapshot{listedSnap("PairNew")}}
	resyncer := &fakeResyncer{}

	w := NewHandoffWatcher(HandoffWatcherOptions{
		Locator:  locator,
		Tokens:   tokens,
		Seen:     memory.NewSeenStore(0),
		Resyncer: resyncer,
	})

	w.CheckOnce(ctx)
	calls := locator.callCount()
	if calls != 1 {
		t.Fatalf("locator calls = %d, want 1", calls)
	}

	// An already-migrated token is never re-checked or re-registered.
	w.CheckOnce(ctx)
	w.CheckOnce(ctx)

	if locator.callCount() != calls {
		t.Errorf("locator calls = %d after migration, want %d", locator.callCount(), calls)
	}
	if resyncer.callCount() != 1 {
		t.Errorf("resync calls = %d, want 1", resyncer.callCount())
	}
}

func TestHandoffWatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()

	tokens := memory.NewTrackedTokenStore()
	if err := tokens.Upsert(ctx, &domain.TrackedToken{ChatID: 1, Mint: "MINT2", Active: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	locator := &fakeLocator{snaps: []*domain.VenueSnapshot{preListingSnap()}}

	w := NewHandoffWatcher(HandoffWatcherOptions{
		Locator:     locator,
		Tokens:      tokens,
		Seen:        memory.NewSeenStore(0),
		MaxAttempts: 2,
	})

	for i := 0; i < 5; i++ {
		w.CheckOnce(ctx)
	}

	if locator.callCount() != 2 {
		t.Errorf("locator calls = %d, want 2 (attempt limit)", locator.callCount())
	}
}
