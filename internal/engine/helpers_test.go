package engine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"solana-trade-alerts/internal/alert"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/market"
	"solana-trade-alerts/internal/solana"
)

// walletAddress generates a fresh on-curve address, as every real wallet
// key is.
func walletAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub)
}

func buyTx(sig, mint, owner string, pre, post uint64) *solana.Transaction {
	return &solana.Transaction{
		Signature: sig,
		Slot:      1,
		BlockTime: time.Now().Unix(),
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: owner, Amount: strconv.FormatUint(pre, 10), Decimals: 0},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: owner, Amount: strconv.FormatUint(post, 10), Decimals: 0},
			},
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeSink struct {
	mu     sync.Mutex
	alerts []alert.Alert
	err    error
}

func (f *fakeSink) Deliver(_ context.Context, a alert.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func (f *fakeSink) alert(i int) alert.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts[i]
}

func (f *fakeSink) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeRPC struct {
	mu   sync.Mutex
	sigs map[string][]solana.SignatureInfo // by polled address
	txs  map[string]*solana.Transaction    // by signature
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		sigs: make(map[string][]solana.SignatureInfo),
		txs:  make(map[string]*solana.Transaction),
	}
}

func (f *fakeRPC) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs[signature], nil
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, address string, _ *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sigs[address], nil
}

func (f *fakeRPC) setSigs(address string, sigs []solana.SignatureInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigs[address] = sigs
}

func (f *fakeRPC) addTx(tx *solana.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.Signature] = tx
}

type fakeResolver struct {
	info *domain.TokenInfo
	err  error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (*domain.TokenInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type fakeLocator struct {
	mu    sync.Mutex
	snaps []*domain.VenueSnapshot
	calls int
}

func (f *fakeLocator) Locate(_ context.Context, mint string) (*domain.VenueSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.snaps) {
		i = len(f.snaps) - 1
	}
	snap := *f.snaps[i]
	snap.Mint = mint
	return &snap, nil
}

func (f *fakeLocator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLister struct {
	mu     sync.Mutex
	trades []market.AggregatorTrade
	calls  int
}

func (f *fakeLister) RecentTrades(_ context.Context, _ string, _ int) ([]market.AggregatorTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.trades, nil
}

func (f *fakeLister) setTrades(trades []market.AggregatorTrade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = trades
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWS struct {
	mu           sync.Mutex
	subs         map[string]*solana.LogSubscription // by first mentioned address
	unsubscribed []string
}

func newFakeWS() *fakeWS {
	return &fakeWS{subs: make(map[string]*solana.LogSubscription)}
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (*solana.LogSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := solana.NewLogSubscription(16)
	f.subs[filter.Mentions[0]] = sub
	return sub, nil
}

func (f *fakeWS) Unsubscribe(_ context.Context, sub *solana.LogSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for addr, s := range f.subs {
		if s == sub {
			f.unsubscribed = append(f.unsubscribed, addr)
			delete(f.subs, addr)
			sub.Cancel()
			return nil
		}
	}
	return nil
}

func (f *fakeWS) Close() error { return nil }

func (f *fakeWS) subscription(addr string) *solana.LogSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[addr]
}

func (f *fakeWS) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type fakeResyncer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeResyncer) Sync(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeResyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func listedToken(chatID int64, mint, pair string, thresholdUSD float64) *domain.TrackedToken {
	return &domain.TrackedToken{
		ChatID:      chatID,
		Mint:        mint,
		Symbol:      "TST",
		MinAlertUSD: thresholdUSD,
		Active:      true,
		Venue:       &domain.VenueSnapshot{Mint: mint, PairAddress: pair},
	}
}
