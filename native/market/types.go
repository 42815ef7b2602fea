package market

import (
	"fmt"
	"math/big"
)

// PriceItem is the escrow record held for one active bid-mode listing. The
// identifier doubles as the storage key and as tamper evidence: it is always
// recomputed from the caller-supplied parameter tuple before use.
//
// Bidder is the payer of record for the current highest bid and serves as an
// audit trail only; refunds and the eventual record transfer target Buyer.
type PriceItem struct {
	ID       [32]byte `json:"id"`
	Deadline int64    `json:"deadline"`
	Value    *big.Int `json:"value"`
	Bidder   [20]byte `json:"bidder"`
	Buyer    [20]byte `json:"buyer"`
	Seller   [20]byte `json:"seller"`
}

// Clone returns a deep copy of the price item so callers can safely mutate
// the copy without affecting the stored instance.
func (p *PriceItem) Clone() *PriceItem {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Value != nil {
		clone.Value = new(big.Int).Set(p.Value)
	} else {
		clone.Value = big.NewInt(0)
	}
	return &clone
}

// SanitizePriceItem validates the supplied record and returns a cloned
// instance with a non-nil value field. A record with zero value is logically
// absent and therefore rejected here.
func SanitizePriceItem(p *PriceItem) (*PriceItem, error) {
	if p == nil {
		return nil, fmt.Errorf("nil price item")
	}
	clone := p.Clone()
	if clone.Value.Sign() <= 0 {
		return nil, fmt.Errorf("price item value must be positive")
	}
	if clone.Deadline <= 0 {
		return nil, fmt.Errorf("price item deadline must be positive")
	}
	return clone, nil
}

// Settings is the administrator-controlled configuration read by every
// marketplace operation. The four periods are expressed in seconds.
//
// Period changes apply to new listings only; existing price items were
// validated against the settings in force at creation time.
type Settings struct {
	Paused         bool     `json:"paused"`
	Owner          [20]byte `json:"owner"`
	BillingPeriod  int64    `json:"billingPeriod"`
	ClosingPeriod  int64    `json:"closingPeriod"`
	SecurePeriod   int64    `json:"securePeriod"`
	DeadlinePeriod int64    `json:"deadlinePeriod"`
}

// Clone returns a copy of the settings value.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Validate checks the period bounds shared by bootstrap and ChangeSettings.
func (s *Settings) Validate() error {
	if s == nil {
		return fmt.Errorf("nil settings")
	}
	if s.BillingPeriod < 0 || s.ClosingPeriod < 0 || s.SecurePeriod < 0 || s.DeadlinePeriod < 0 {
		return ErrInvalidPeriod
	}
	return nil
}
