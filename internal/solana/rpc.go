package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the trackers.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil without error when the transaction is unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves recent signatures touching an
	// address, newest first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a Solana transaction with the metadata the trade
// decoder needs.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is one SPL token account balance from pre/postTokenBalances.
// Amount is the raw integer amount; Decimals comes from the same record and
// is never assumed.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string
	Decimals     int
}
