package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"namemarket/core/types"
	"namemarket/crypto"
)

const (
	EventTypeBuy       = "market.buy"
	EventTypeBid       = "market.bid"
	EventTypeBidIncome = "market.bid_income"
	EventTypeRefund    = "market.refund"
)

// Bought is emitted for every completed fixed-price sale. It carries the
// literal parameter tuple of the sale; no state survives the transfer.
type Bought struct {
	Seller   [20]byte
	Buyer    [20]byte
	FixedID  [32]byte
	RecordID [32]byte
	Price    *big.Int
	Deadline int64
}

func (Bought) EventType() string { return EventTypeBuy }

func (e Bought) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBuy,
		Attributes: map[string]string{
			"seller":   crypto.NewAddress(crypto.NamePrefix, e.Seller[:]).String(),
			"buyer":    crypto.NewAddress(crypto.NamePrefix, e.Buyer[:]).String(),
			"fixedId":  hex.EncodeToString(e.FixedID[:]),
			"recordId": hex.EncodeToString(e.RecordID[:]),
			"price":    formatAmount(e.Price),
			"deadline": strconv.FormatInt(e.Deadline, 10),
		},
	}
}

// BidPlaced is emitted when a bid is accepted. It reports the listing's
// nominal lowest price rather than the accepted amount, mirroring the wire
// format observers already depend on.
type BidPlaced struct {
	Seller      [20]byte
	Buyer       [20]byte
	BidID       [32]byte
	RecordID    [32]byte
	LowestPrice *big.Int
	Deadline    int64
}

func (BidPlaced) EventType() string { return EventTypeBid }

func (e BidPlaced) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBid,
		Attributes: map[string]string{
			"seller":      crypto.NewAddress(crypto.NamePrefix, e.Seller[:]).String(),
			"buyer":       crypto.NewAddress(crypto.NamePrefix, e.Buyer[:]).String(),
			"bidId":       hex.EncodeToString(e.BidID[:]),
			"recordId":    hex.EncodeToString(e.RecordID[:]),
			"lowestPrice": formatAmount(e.LowestPrice),
			"deadline":    strconv.FormatInt(e.Deadline, 10),
		},
	}
}

// BidIncome is emitted when an auction settles and the escrowed value is
// paid to the seller.
type BidIncome struct {
	BidID [32]byte
	Buyer [20]byte
}

func (BidIncome) EventType() string { return EventTypeBidIncome }

func (e BidIncome) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBidIncome,
		Attributes: map[string]string{
			"bidId": hex.EncodeToString(e.BidID[:]),
			"buyer": crypto.NewAddress(crypto.NamePrefix, e.Buyer[:]).String(),
		},
	}
}

// BidRefunded is emitted when an expired listing's escrow is returned to the
// buyer of record.
type BidRefunded struct {
	BidID [32]byte
}

func (BidRefunded) EventType() string { return EventTypeRefund }

func (e BidRefunded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeRefund,
		Attributes: map[string]string{
			"bidId": hex.EncodeToString(e.BidID[:]),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
