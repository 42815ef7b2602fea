package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"namemarket/crypto"
	"namemarket/native/market"
)

const (
	codeMarketInvalidParams = -32031
	codeMarketNotFound      = -32032
	codeMarketForbidden     = -32033
	codeMarketConflict      = -32034
	codeMarketInternal      = -32035
)

type marketBuyParams struct {
	Caller   string `json:"caller"`
	Seller   string `json:"seller"`
	Buyer    string `json:"buyer"`
	FixedID  string `json:"fixedId"`
	RecordID string `json:"recordId"`
	Price    string `json:"price"`
	Deadline int64  `json:"deadline"`
	Funds    string `json:"funds"`
}

type marketPlaceBidParams struct {
	Caller      string `json:"caller"`
	Seller      string `json:"seller"`
	Buyer       string `json:"buyer"`
	BidID       string `json:"bidId"`
	RecordID    string `json:"recordId"`
	LowestPrice string `json:"lowestPrice"`
	Deadline    int64  `json:"deadline"`
	Funds       string `json:"funds"`
}

type marketSettleBidParams struct {
	Caller string `json:"caller"`
	BidID  string `json:"bidId"`
	Buyer  string `json:"buyer"`
}

type marketRefundBidParams struct {
	Caller string `json:"caller"`
	BidID  string `json:"bidId"`
}

type marketIDParams struct {
	ID string `json:"id"`
}

type marketAddressParams struct {
	Address string `json:"address"`
}

type marketSetPauseParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type marketTransferOwnerParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type marketChangeSettingsParams struct {
	Caller         string `json:"caller"`
	BillingPeriod  int64  `json:"billingPeriod"`
	ClosingPeriod  int64  `json:"closingPeriod"`
	SecurePeriod   int64  `json:"securePeriod"`
	DeadlinePeriod int64  `json:"deadlinePeriod"`
}

type listingJSON struct {
	ID       string `json:"id"`
	Deadline int64  `json:"deadline"`
	Value    string `json:"value"`
	Bidder   string `json:"bidder"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
}

type settingsJSON struct {
	Paused         bool   `json:"paused"`
	Owner          string `json:"owner"`
	BillingPeriod  int64  `json:"billingPeriod"`
	ClosingPeriod  int64  `json:"closingPeriod"`
	SecurePeriod   int64  `json:"securePeriod"`
	DeadlinePeriod int64  `json:"deadlinePeriod"`
}

type balanceJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(decoded) != 32 {
		return out, errors.New("identifier must be 32 bytes")
	}
	copy(out[:], decoded)
	return out, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	if amount.Sign() < 0 {
		return nil, errors.New("amount must be non-negative")
	}
	return amount, nil
}

func formatListing(item *market.PriceItem) listingJSON {
	return listingJSON{
		ID:       hex.EncodeToString(item.ID[:]),
		Deadline: item.Deadline,
		Value:    item.Value.String(),
		Bidder:   crypto.NewAddress(crypto.NamePrefix, item.Bidder[:]).String(),
		Buyer:    crypto.NewAddress(crypto.NamePrefix, item.Buyer[:]).String(),
		Seller:   crypto.NewAddress(crypto.NamePrefix, item.Seller[:]).String(),
	}
}

// writeMarketError maps the engine's sentinel errors onto the RPC error
// codes observers key off.
func writeMarketError(w http.ResponseWriter, id int, err error) string {
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeMarketNotFound, "not_found", err.Error())
	case errors.Is(err, market.ErrUnauthorized), errors.Is(err, market.ErrProgrammaticAccount):
		writeError(w, http.StatusForbidden, id, codeMarketForbidden, "forbidden", err.Error())
	case errors.Is(err, market.ErrPaused), errors.Is(err, market.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, id, codeMarketConflict, "conflict", err.Error())
	case errors.Is(err, market.ErrIDMismatch),
		errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrFundsTooLow),
		errors.Is(err, market.ErrBidTooLow),
		errors.Is(err, market.ErrDeadlineTooFar),
		errors.Is(err, market.ErrDeadlineTooClose),
		errors.Is(err, market.ErrBiddingClosed),
		errors.Is(err, market.ErrListingExpired),
		errors.Is(err, market.ErrNotExpired),
		errors.Is(err, market.ErrBuyerMismatch),
		errors.Is(err, market.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, id, codeMarketInvalidParams, "invalid_params", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeMarketInternal, "internal_error", err.Error())
	}
	return "error"
}

func invalidParams(w http.ResponseWriter, id int, err error) string {
	writeError(w, http.StatusBadRequest, id, codeMarketInvalidParams, "invalid_params", err.Error())
	return "error"
}

func (s *Server) handleBuy(w http.ResponseWriter, req *RPCRequest) string {
	var params marketBuyParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	fixedID, err := parseHash(params.FixedID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	recordID, err := parseHash(params.RecordID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	funds, err := parseAmount(params.Funds)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.Buy(caller, seller, buyer, fixedID, recordID, price, params.Deadline, funds); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, req *RPCRequest) string {
	var params marketPlaceBidParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	bidID, err := parseHash(params.BidID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	recordID, err := parseHash(params.RecordID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	lowestPrice, err := parseAmount(params.LowestPrice)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	funds, err := parseAmount(params.Funds)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.PlaceBid(caller, seller, buyer, bidID, recordID, lowestPrice, params.Deadline, funds); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handleSettleBid(w http.ResponseWriter, req *RPCRequest) string {
	var params marketSettleBidParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	bidID, err := parseHash(params.BidID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.SettleBid(caller, bidID, buyer); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handleRefundBid(w http.ResponseWriter, req *RPCRequest) string {
	var params marketRefundBidParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	bidID, err := parseHash(params.BidID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.RefundBid(caller, bidID); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handleGetListing(w http.ResponseWriter, req *RPCRequest) string {
	var params marketIDParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	id, err := parseHash(params.ID)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	item, found, err := s.node.Listing(id)
	if err != nil {
		return writeMarketError(w, req.ID, err)
	}
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", market.ErrNotFound.Error())
		return "error"
	}
	writeResult(w, req.ID, formatListing(item))
	return "ok"
}

func (s *Server) handleGetSettings(w http.ResponseWriter, req *RPCRequest) string {
	settings, err := s.node.Settings()
	if err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, settingsJSON{
		Paused:         settings.Paused,
		Owner:          crypto.NewAddress(crypto.NamePrefix, settings.Owner[:]).String(),
		BillingPeriod:  settings.BillingPeriod,
		ClosingPeriod:  settings.ClosingPeriod,
		SecurePeriod:   settings.SecurePeriod,
		DeadlinePeriod: settings.DeadlinePeriod,
	})
	return "ok"
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) string {
	var params marketAddressParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, balanceJSON{Address: params.Address, Balance: balance.String()})
	return "ok"
}

func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request, req *RPCRequest) string {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return "error"
	}
	var params marketSetPauseParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.SetPause(caller, params.Paused); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handleTransferOwner(w http.ResponseWriter, r *http.Request, req *RPCRequest) string {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return "error"
	}
	var params marketTransferOwnerParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	newOwner, err := parseAddress(params.NewOwner)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.TransferOwner(caller, newOwner); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}

func (s *Server) handleChangeSettings(w http.ResponseWriter, r *http.Request, req *RPCRequest) string {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return "error"
	}
	var params marketChangeSettingsParams
	if err := decodeParams(req, &params); err != nil {
		return invalidParams(w, req.ID, err)
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return invalidParams(w, req.ID, err)
	}
	if err := s.node.ChangeSettings(caller, params.BillingPeriod, params.ClosingPeriod, params.SecurePeriod, params.DeadlinePeriod); err != nil {
		return writeMarketError(w, req.ID, err)
	}
	writeResult(w, req.ID, true)
	return "ok"
}
