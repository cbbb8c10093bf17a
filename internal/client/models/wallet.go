package models

import (
	"strconv"
	"time"
)

// MintSource labels ledger entries with no source wallet.
const MintSource = "MINT"

type Wallet struct {
	ID      int64 `json:"id"`
	Balance int64 `json:"balance"`
}

// LedgerTx is a signed credit transfer. A nil FromWalletID means the credits
// were minted.
type LedgerTx struct {
	ID           int64     `json:"id"`
	FromWalletID *int64    `json:"from_wallet_id"`
	ToWalletID   int64     `json:"to_wallet_id"`
	Amount       int64     `json:"amount"`
	Reason       string    `json:"reason"`
	RefType      *string   `json:"ref_type"`
	RefID        *int64    `json:"ref_id"`
	CreatedAt    time.Time `json:"created_at"`
	Signature    *string   `json:"signature"`
}

// Source renders the source wallet for display.
func (t LedgerTx) Source() string {
	if t.FromWalletID == nil {
		return MintSource
	}
	return strconv.FormatInt(*t.FromWalletID, 10)
}

// WalletSnapshot is the last fetched wallet state.
type WalletSnapshot struct {
	Wallet Wallet     `json:"wallet"`
	Ledger []LedgerTx `json:"ledger"`
}
