package engine

import (
	"context"
	"testing"

	"solana-trade-alerts/internal/decode"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/solana"
	"solana-trade-alerts/internal/storage/memory"
)

func newTestRPCPoller(t *testing.T, rpc *fakeRPC, sub *domain.TrackedToken) (*RPCPoller, *fakeSink, *memory.SeenStore) {
	t.Helper()

	tokens := memory.NewTrackedTokenStore()
	if err := tokens.Upsert(context.Background(), sub); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	seen := memory.NewSeenStore(0)
	sink := &fakeSink{}

	p := NewRPCPoller(RPCPollerOptions{
		RPC:        rpc,
		Decoder:    decode.NewDecoder(),
		Resolver:   &fakeResolver{info: &domain.TokenInfo{Symbol: "TST", PriceUSD: 1}},
		Tokens:     tokens,
		Seen:       seen,
		Dispatcher: NewDispatcher(nil, seen, sink, 10),
	})
	return p, sink, seen
}

func sigInfos(sigs ...string) []solana.SignatureInfo {
	infos := make([]solana.SignatureInfo, len(sigs))
	for i, s := range sigs {
		infos[i] = solana.SignatureInfo{Signature: s, Slot: int64(100 - i)}
	}
	return infos
}

func TestRPCPoller_SeedsWithoutAlerting(t *testing.T) {
	ctx := context.Background()
	mint := "MINT1"
	owner := walletAddress(t)

	rpc := newFakeRPC()
	rpc.setSigs(mint, sigInfos("s1", "s0"))
	rpc.addTx(buyTx("s0", mint, owner, 0, 100))
	rpc.addTx(buyTx("s1", mint, owner, 100, 200))

	sub := listedToken(1, mint, "PairA", 10)
	p, sink, seen := newTestRPCPoller(t, rpc, sub)

	// First sight of the venue: the existing backlog seeds the window,
	// it is never alerted on.
	p.PollOnce(ctx)

	if sink.count() != 0 {
		t.Errorf("alerts after seed poll = %d, want 0", sink.count())
	}
	if !seen.Seen(dedupeVenue(sub), "s1") || !seen.Seen(dedupeVenue(sub), "s0") {
		t.Error("backlog signatures not seeded as seen")
	}
}

func TestRPCPoller_ProcessesGapOldestFirst(t *testing.T) {
	ctx := context.Background()
	mint := "MINT1"
	owner := walletAddress(t)

	rpc := newFakeRPC()
	rpc.setSigs(mint, sigInfos("s0"))
	rpc.addTx(buyTx("s0", mint, owner, 0, 100))

	sub := listedToken(1, mint, "PairA", 10)
	p, sink, seen := newTestRPCPoller(t, rpc, sub)
	p.PollOnce(ctx) // seed

	// Three new trades land between polls, newest first from the RPC.
	rpc.addTx(buyTx("s1", mint, owner, 100, 150))
	rpc.addTx(buyTx("s2", mint, owner, 150, 230))
	rpc.addTx(buyTx("s3", mint, owner, 230, 330))
	rpc.setSigs(mint, sigInfos("s3", "s2", "s1", "s0"))

	p.PollOnce(ctx)

	if sink.count() != 3 {
		t.Fatalf("alerts = %d, want 3", sink.count())
	}
	// Chronological alert order and amounts from the decoded deltas.
	wantSigs := []string{"s1", "s2", "s3"}
	wantAmounts := []float64{50, 80, 100}
	for i, sig := range wantSigs {
		a := sink.alert(i)
		if a.Signature != sig || a.Amount != wantAmounts[i] {
			t.Errorf("alert[%d] = %s/%v, want %s/%v", i, a.Signature, a.Amount, sig, wantAmounts[i])
		}
	}

	// The watermark lands on the newest signature regardless of the
	// internal processing order.
	if last, _ := seen.LastSeen(dedupeVenue(sub)); last != "s3" {
		t.Errorf("LastSeen = %q, want s3", last)
	}

	// Re-polling the same window emits nothing new.
	p.PollOnce(ctx)
	if sink.count() != 3 {
		t.Errorf("alerts after re-poll = %d, want 3", sink.count())
	}
}

func TestRPCPoller_SkipsFailedTransactions(t *testing.T) {
	ctx := context.Background()
	mint := "MINT1"
	owner := walletAddress(t)

	rpc := newFakeRPC()
	rpc.setSigs(mint, sigInfos("s0"))
	rpc.addTx(buyTx("s0", mint, owner, 0, 100))

	sub := listedToken(1, mint, "PairA", 10)
	p, sink, seen := newTestRPCPoller(t, rpc, sub)
	p.PollOnce(ctx) // seed

	failed := solana.SignatureInfo{Signature: "sErr", Err: map[string]interface{}{"InstructionError": nil}}
	rpc.setSigs(mint, append([]solana.SignatureInfo{failed}, sigInfos("s0")...))

	p.PollOnce(ctx)

	if sink.count() != 0 {
		t.Errorf("alerts = %d, want 0 for a failed transaction", sink.count())
	}
	if !seen.Seen(dedupeVenue(sub), "sErr") {
		t.Error("failed signature not marked seen; it would be refetched forever")
	}
}

func TestRPCPoller_BelowThresholdAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	mint := "MINT1"
	owner := walletAddress(t)

	rpc := newFakeRPC()
	rpc.setSigs(mint, sigInfos("s0"))
	rpc.addTx(buyTx("s0", mint, owner, 0, 100))

	sub := listedToken(1, mint, "PairA", 500) // $500 threshold, price $1
	p, sink, seen := newTestRPCPoller(t, rpc, sub)
	p.PollOnce(ctx) // seed

	rpc.addTx(buyTx("s1", mint, owner, 100, 105)) // $5 trade
	rpc.setSigs(mint, sigInfos("s1", "s0"))

	p.PollOnce(ctx)

	if sink.count() != 0 {
		t.Errorf("alerts = %d, want 0 below threshold", sink.count())
	}
	if last, _ := seen.LastSeen(dedupeVenue(sub)); last != "s1" {
		t.Errorf("LastSeen = %q, want s1 (processed even when filtered)", last)
	}
}

func TestRPCPoller_BackfillsSymbolAndPrice(t *testing.T) {
	ctx := context.Background()
	mint := "MINT1"
	owner := walletAddress(t)

	rpc := newFakeRPC()
	rpc.setSigs(mint, sigInfos("s0"))
	rpc.addTx(buyTx("s0", mint, owner, 0, 100))

	sub := listedToken(1, mint, "PairA", 10)
	sub.Symbol = "" // not resolved yet
	p, _, _ := newTestRPCPoller(t, rpc, sub)
	p.PollOnce(ctx) // seed

	rpc.addTx(buyTx("s1", mint, owner, 100, 200))
	rpc.setSigs(mint, sigInfos("s1", "s0"))
	p.PollOnce(ctx)

	got, err := p.tokens.Get(ctx, 1, mint)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Symbol != "TST" {
		t.Errorf("symbol = %q, want TST backfilled from resolver", got.Symbol)
	}
	if got.Price == nil || got.Price.PriceUSD != 1 {
		t.Errorf("price cache = %+v, want $1 snapshot", got.Price)
	}
}
