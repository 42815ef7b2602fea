package types

import "math/big"

// Account is the balance-bearing record the market ledger debits and credits.
// CodeHash distinguishes externally-controlled accounts (empty hash) from
// programmatic ones; the marketplace refuses the latter in every party role.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Balance  *big.Int `json:"balance"`
	CodeHash []byte   `json:"codeHash,omitempty"`
}

// Clone returns a deep copy so callers can mutate staged account state
// without touching the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{
		Nonce:    a.Nonce,
		Balance:  big.NewInt(0),
		CodeHash: append([]byte(nil), a.CodeHash...),
	}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}

// IsExternal reports whether the account carries no executable code.
func (a *Account) IsExternal() bool {
	return a == nil || len(a.CodeHash) == 0
}
