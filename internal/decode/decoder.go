// Package decode classifies raw transactions as buys or sells of a tracked
// mint by comparing pre and post token balances.
package decode

import (
	"math"
	"strconv"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/solana"
)

// Decoder turns raw transactions into trade events. It is stateless and
// safe for concurrent use.
type Decoder struct{}

// NewDecoder creates a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode inspects the transaction's token balance deltas for mint and
// returns a trade event in the requested direction, or false when the
// transaction is not such a trade (transfer, burn, unrelated, failed).
//
// The scan iterates post-balance records in their recorded order and
// returns on the first qualifying delta: a strict increase for a buy, a
// strict decrease for a sell. Deltas are computed off actual balances, so
// wash transfers between wallets that already hold the token net out
// instead of reading as spurious buys. At most one event per call.
func (d *Decoder) Decode(tx *solana.Transaction, mint string, dir domain.Direction) (*domain.TradeEvent, bool) {
	if tx == nil || tx.Meta == nil || !dir.IsValid() {
		return nil, false
	}
	if tx.Meta.Err != nil {
		return nil, false
	}

	pre := make(map[string]uint64)
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Mint != mint {
			continue
		}
		amt, err := strconv.ParseUint(b.Amount, 10, 64)
		if err != nil {
			continue
		}
		pre[b.Owner] = amt
	}

	for _, b := range tx.Meta.PostTokenBalances {
		if b.Mint != mint {
			continue
		}
		post, err := strconv.ParseUint(b.Amount, 10, 64)
		if err != nil {
			continue
		}

		// Pool vaults are program-derived addresses; the counter-party
		// of interest is always an on-curve wallet.
		if b.Owner == "" || !isOnCurve(b.Owner) {
			continue
		}

		prev := pre[b.Owner]
		var raw uint64
		switch dir {
		case domain.DirectionBuy:
			if post <= prev {
				continue
			}
			raw = post - prev
		case domain.DirectionSell:
			if post >= prev {
				continue
			}
			raw = prev - post
		}

		amount := float64(raw) / math.Pow10(b.Decimals)
		if amount <= 0 {
			continue
		}

		observed := time.Now().UTC()
		if tx.BlockTime > 0 {
			observed = time.Unix(tx.BlockTime, 0).UTC()
		}

		return &domain.TradeEvent{
			Mint:         mint,
			Signature:    tx.Signature,
			Direction:    dir,
			Amount:       amount,
			CounterParty: b.Owner,
			Slot:         tx.Slot,
			ObservedAt:   observed,
		}, true
	}

	return nil, false
}

// isOnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet keys are on-curve; program-derived addresses are not.
func isOnCurve(address string) bool {
	point, err := base58.Decode(address)
	if err != nil || len(point) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ValidMint reports whether the string is a plausible base58 Solana
// address. Used to reject bad mints at configuration time.
func ValidMint(mint string) bool {
	raw, err := base58.Decode(mint)
	return err == nil && len(raw) == 32
}
