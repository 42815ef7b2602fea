package market

import (
	"errors"
	"math/big"
	"time"

	"namemarket/core/events"
	"namemarket/core/types"
)

var errNilState = errors.New("market engine: state not configured")

// State is the storage surface the engine mutates. Implementations must make
// each operation's writes all-or-nothing; the daemon satisfies this with a
// staged session committed only after the engine returns success.
type State interface {
	PriceItemPut(*PriceItem) error
	PriceItemGet(id [32]byte) (*PriceItem, bool, error)
	PriceItemDelete(id [32]byte) error
	SettingsGet() (*Settings, bool, error)
	SettingsPut(*Settings) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	VaultAddress() ([20]byte, error)
}

// Engine is the escrow ledger for the name marketplace. It owns the mapping
// from listing identifier to PriceItem, enforces every time-window and
// monotonic-price invariant, and performs every balance transfer. All
// preconditions of an operation are evaluated before any mutation; a
// violation aborts with no state change and no event.
type Engine struct {
	state   State
	gate    IdentityGate
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a market engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// CurrentState returns the state backend the engine is operating on. Hosts
// that install a fresh staged session per operation use this to reach the
// session inside the operation callback.
func (e *Engine) CurrentState() State { return e.state }

// SetGate overrides the identity gate. Passing nil restores the default
// code-hash based classification.
func (e *Engine) SetGate(gate IdentityGate) { e.gate = gate }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// Bootstrap persists the supplied settings when none exist yet. It is a
// no-op when settings are already initialised, so the daemon can call it on
// every start without clobbering administrator updates.
func (e *Engine) Bootstrap(s Settings) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok, err := e.state.SettingsGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	return e.state.SettingsPut(s.Clone())
}

// Settings returns the persisted marketplace configuration.
func (e *Engine) Settings() (*Settings, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	s, ok, err := e.state.SettingsGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSettingsNotFound
	}
	return s.Clone(), nil
}

// Listing returns the stored price item for the given identifier, if any.
func (e *Engine) Listing(id [32]byte) (*PriceItem, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	item, ok, err := e.state.PriceItemGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return item.Clone(), true, nil
}

func (e *Engine) requireExternal(addrs ...[20]byte) error {
	gate := e.gate
	if gate == nil {
		gate = codeGate{state: e.state}
	}
	for _, addr := range addrs {
		external, err := gate.IsExternal(addr)
		if err != nil {
			return err
		}
		if !external {
			return ErrProgrammaticAccount
		}
	}
	return nil
}

func (e *Engine) unpausedSettings() (*Settings, error) {
	s, err := e.Settings()
	if err != nil {
		return nil, err
	}
	if s.Paused {
		return nil, ErrPaused
	}
	return s, nil
}

// transfer moves amount between accounts, failing without mutation when the
// source balance is insufficient. Zero amounts and transfers from an account
// to itself are no-ops once the balance check passes.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	// fromAcc and toAcc are independent clones of the same record when the
	// parties coincide; writing both would net a credit out of thin air.
	if from == to {
		return nil
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func validAmount(v *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.BitLen() <= 256
}

// Buy executes an immediate fixed-price sale: the attached funds move from
// the caller to the seller in one step and nothing is persisted. A second
// call with the same parameters is a second, independent sale; uniqueness of
// the underlying record transfer belongs to the record-ownership system.
func (e *Engine) Buy(caller, seller, buyer [20]byte, fixedID, recordID [32]byte, price *big.Int, deadline int64, funds *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	s, err := e.unpausedSettings()
	if err != nil {
		return err
	}
	if err := e.requireExternal(caller, seller, buyer); err != nil {
		return err
	}
	if !validAmount(price) {
		return ErrInvalidAmount
	}
	attached := cloneBigInt(funds)
	if attached.Cmp(price) < 0 {
		return ErrFundsTooLow
	}
	now := e.now()
	if deadline > now+s.DeadlinePeriod {
		return ErrDeadlineTooFar
	}
	if deadline-s.SecurePeriod <= now {
		return ErrDeadlineTooClose
	}
	if fixedID != ListingID(FixedSale, recordID, price, deadline) {
		return ErrIDMismatch
	}
	if err := e.transfer(caller, seller, attached); err != nil {
		return err
	}
	e.emit(Bought{
		Seller:   seller,
		Buyer:    buyer,
		FixedID:  fixedID,
		RecordID: recordID,
		Price:    cloneBigInt(price),
		Deadline: deadline,
	})
	return nil
}

// PlaceBid escrows the attached funds as the new highest bid for the
// listing. The previous highest value, if any, is refunded to the superseded
// buyer before the table is overwritten; every accepted bid strictly
// increases the stored value.
func (e *Engine) PlaceBid(caller, seller, buyer [20]byte, bidID, recordID [32]byte, lowestPrice *big.Int, deadline int64, funds *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	s, err := e.unpausedSettings()
	if err != nil {
		return err
	}
	if err := e.requireExternal(caller, seller, buyer); err != nil {
		return err
	}
	if !validAmount(lowestPrice) {
		return ErrInvalidAmount
	}
	attached := cloneBigInt(funds)
	if attached.Cmp(lowestPrice) < 0 {
		return ErrFundsTooLow
	}
	now := e.now()
	if deadline > now+s.DeadlinePeriod {
		return ErrDeadlineTooFar
	}
	if now >= deadline-s.BillingPeriod-s.ClosingPeriod {
		return ErrBiddingClosed
	}
	if bidID != ListingID(BidSale, recordID, lowestPrice, deadline) {
		return ErrIDMismatch
	}
	prev, found, err := e.state.PriceItemGet(bidID)
	if err != nil {
		return err
	}
	prevValue := big.NewInt(0)
	if found {
		prevValue = cloneBigInt(prev.Value)
	}
	// The lowest price only bounds the first bid; afterwards a raise must
	// strictly exceed the stored highest value.
	if attached.Cmp(prevValue) <= 0 {
		return ErrBidTooLow
	}
	vault, err := e.state.VaultAddress()
	if err != nil {
		return err
	}
	if err := e.transfer(caller, vault, attached); err != nil {
		return err
	}
	if found && prevValue.Sign() > 0 {
		if err := e.transfer(vault, prev.Buyer, prevValue); err != nil {
			return err
		}
	}
	item := &PriceItem{
		ID:       bidID,
		Deadline: deadline,
		Value:    attached,
		Bidder:   caller,
		Buyer:    buyer,
		Seller:   seller,
	}
	if err := e.state.PriceItemPut(item); err != nil {
		return err
	}
	e.emit(BidPlaced{
		Seller:      seller,
		Buyer:       buyer,
		BidID:       bidID,
		RecordID:    recordID,
		LowestPrice: cloneBigInt(lowestPrice),
		Deadline:    deadline,
	})
	return nil
}

// SettleBid pays the escrowed value to the seller and deletes the listing.
// Before the closing window begins only the seller may settle; inside it any
// external caller naming the correct buyer may. The window deliberately
// reproduces the original contract's "not yet past deadline" check rather
// than a stricter "bidding closed" reading.
func (e *Engine) SettleBid(caller [20]byte, bidID [32]byte, buyer [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	s, err := e.unpausedSettings()
	if err != nil {
		return err
	}
	if err := e.requireExternal(caller); err != nil {
		return err
	}
	item, found, err := e.state.PriceItemGet(bidID)
	if err != nil {
		return err
	}
	if !found || item.Value == nil || item.Value.Sign() == 0 {
		return ErrNotFound
	}
	now := e.now()
	if now > item.Deadline {
		return ErrListingExpired
	}
	if buyer != item.Buyer {
		return ErrBuyerMismatch
	}
	if now < item.Deadline-s.ClosingPeriod && caller != item.Seller {
		return ErrUnauthorized
	}
	vault, err := e.state.VaultAddress()
	if err != nil {
		return err
	}
	if err := e.transfer(vault, item.Seller, item.Value); err != nil {
		return err
	}
	if err := e.state.PriceItemDelete(bidID); err != nil {
		return err
	}
	e.emit(BidIncome{BidID: bidID, Buyer: buyer})
	return nil
}

// RefundBid returns the escrowed value to the buyer of record once the
// listing deadline has passed. Any external account may trigger the refund.
func (e *Engine) RefundBid(caller [20]byte, bidID [32]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, err := e.unpausedSettings(); err != nil {
		return err
	}
	if err := e.requireExternal(caller); err != nil {
		return err
	}
	item, found, err := e.state.PriceItemGet(bidID)
	if err != nil {
		return err
	}
	if !found || item.Value == nil || item.Value.Sign() == 0 {
		return ErrNotFound
	}
	if e.now() < item.Deadline {
		return ErrNotExpired
	}
	vault, err := e.state.VaultAddress()
	if err != nil {
		return err
	}
	if err := e.transfer(vault, item.Buyer, item.Value); err != nil {
		return err
	}
	if err := e.state.PriceItemDelete(bidID); err != nil {
		return err
	}
	e.emit(BidRefunded{BidID: bidID})
	return nil
}

func (e *Engine) ownerSettings(caller [20]byte) (*Settings, error) {
	s, err := e.Settings()
	if err != nil {
		return nil, err
	}
	if caller != s.Owner {
		return nil, ErrUnauthorized
	}
	return s, nil
}

// SetPause toggles the marketplace pause flag. Owner only; admin operations
// remain available while paused so the owner can unpause.
func (e *Engine) SetPause(caller [20]byte, paused bool) error {
	s, err := e.ownerSettings(caller)
	if err != nil {
		return err
	}
	s.Paused = paused
	return e.state.SettingsPut(s)
}

// TransferOwner hands administrative control to a new externally-controlled
// account. Owner only.
func (e *Engine) TransferOwner(caller, newOwner [20]byte) error {
	s, err := e.ownerSettings(caller)
	if err != nil {
		return err
	}
	if err := e.requireExternal(newOwner); err != nil {
		return err
	}
	s.Owner = newOwner
	return e.state.SettingsPut(s)
}

// ChangeSettings updates the four time periods. Owner only. Existing price
// items keep the windows they were validated against at creation time.
func (e *Engine) ChangeSettings(caller [20]byte, billing, closing, secure, deadline int64) error {
	s, err := e.ownerSettings(caller)
	if err != nil {
		return err
	}
	s.BillingPeriod = billing
	s.ClosingPeriod = closing
	s.SecurePeriod = secure
	s.DeadlinePeriod = deadline
	if err := s.Validate(); err != nil {
		return err
	}
	return e.state.SettingsPut(s)
}
