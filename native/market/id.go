package market

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SaleKind tags the two supported sale modes. The ASCII tag participates in
// listing identifier derivation and must be reproduced bit-exact by any
// collaborator computing identifiers off-process.
type SaleKind string

const (
	FixedSale SaleKind = "on_fixed_sell"
	BidSale   SaleKind = "on_bid_sell"
)

// DefaultVaultAddress derives the module vault account that holds escrowed
// bid funds: the trailing 20 bytes of keccak256("namemarket/market/vault").
// No key controls this address.
func DefaultVaultAddress() [20]byte {
	hash := ethcrypto.Keccak256([]byte("namemarket/market/vault"))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// ListingID deterministically derives the listing identifier from the sale
// kind, record identifier, price and deadline: keccak256 over the ASCII tag,
// the 32-byte record id, the amount as a 32-byte big-endian unsigned integer
// and the deadline as an 8-byte big-endian integer, concatenated with no
// delimiters. The engine never trusts a caller-supplied identifier; it is
// always recomputed from the full parameter tuple and compared.
func ListingID(kind SaleKind, recordID [32]byte, amount *big.Int, deadline int64) [32]byte {
	var amt [32]byte
	if amount != nil && amount.Sign() > 0 {
		amount.FillBytes(amt[:])
	}
	var dl [8]byte
	binary.BigEndian.PutUint64(dl[:], uint64(deadline))
	return ethcrypto.Keccak256Hash([]byte(kind), recordID[:], amt[:], dl[:])
}
