package core

import (
	"errors"
	"math/big"
	"testing"

	"namemarket/core/events"
	"namemarket/core/state"
	"namemarket/native/market"
	"namemarket/storage"
)

const testNow int64 = 1_700_000_000

type captureEmitter struct {
	emitted []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.emitted = append(c.emitted, evt)
}

func nodeTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func nodeTestRecord(fill byte) [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = fill
	}
	return id
}

func newTestNode(t *testing.T) (*Node, *captureEmitter, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	manager := state.NewManager(db, nodeTestAddress(0xEE))
	node := NewNode(manager)
	emitter := &captureEmitter{}
	node.SetEmitter(emitter)
	node.SetNowFunc(func() int64 { return testNow })

	settings := market.Settings{
		Owner:          nodeTestAddress(0x01),
		BillingPeriod:  100,
		ClosingPeriod:  100,
		SecurePeriod:   50,
		DeadlinePeriod: 10_000,
	}
	alloc := map[[20]byte]*big.Int{
		nodeTestAddress(0x10): big.NewInt(1_000),
	}
	if err := node.Bootstrap(settings, alloc); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	return node, emitter, db
}

func TestNodeCommitsAndEmitsOnSuccess(t *testing.T) {
	node, emitter, _ := newTestNode(t)
	caller := nodeTestAddress(0x10)
	seller := nodeTestAddress(0x11)
	buyer := nodeTestAddress(0x12)

	record := nodeTestRecord(0xAB)
	deadline := testNow + 5_000
	bidID := market.ListingID(market.BidSale, record, big.NewInt(100), deadline)
	if err := node.PlaceBid(caller, seller, buyer, bidID, record, big.NewInt(100), deadline, big.NewInt(100)); err != nil {
		t.Fatalf("placeBid failed: %v", err)
	}

	if len(emitter.emitted) != 1 {
		t.Fatalf("expected 1 emitted event, got %d", len(emitter.emitted))
	}
	if emitter.emitted[0].EventType() != market.EventTypeBid {
		t.Fatalf("event type = %s, want %s", emitter.emitted[0].EventType(), market.EventTypeBid)
	}
	item, found, err := node.Listing(bidID)
	if err != nil || !found {
		t.Fatalf("listing missing after commit (found=%v err=%v)", found, err)
	}
	if item.Value.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("listing value = %s, want 100", item.Value)
	}
	balance, err := node.Balance(caller)
	if err != nil || balance.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("caller balance = %v, want 900 (err=%v)", balance, err)
	}
}

func TestNodeAbortsWithoutSideEffects(t *testing.T) {
	node, emitter, _ := newTestNode(t)
	caller := nodeTestAddress(0x10)

	record := nodeTestRecord(0xAB)
	deadline := testNow + 5_000
	bidID := market.ListingID(market.BidSale, record, big.NewInt(100), deadline)
	err := node.PlaceBid(caller, nodeTestAddress(0x11), nodeTestAddress(0x12), bidID, record, big.NewInt(100), deadline, big.NewInt(99))
	if !errors.Is(err, market.ErrFundsTooLow) {
		t.Fatalf("expected ErrFundsTooLow, got %v", err)
	}
	if len(emitter.emitted) != 0 {
		t.Fatalf("aborted operation must not emit events")
	}
	if _, found, _ := node.Listing(bidID); found {
		t.Fatalf("aborted operation must not persist a listing")
	}
	balance, _ := node.Balance(caller)
	if balance.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("aborted operation changed caller balance: %s", balance)
	}
}

func TestNodeBootstrapIsIdempotent(t *testing.T) {
	node, _, _ := newTestNode(t)

	// Change settings, then bootstrap again with the initial values: the
	// administrator update must survive.
	owner := nodeTestAddress(0x01)
	if err := node.ChangeSettings(owner, 7, 8, 9, 10_000); err != nil {
		t.Fatalf("changeSettings failed: %v", err)
	}
	again := market.Settings{
		Owner:          owner,
		BillingPeriod:  100,
		ClosingPeriod:  100,
		SecurePeriod:   50,
		DeadlinePeriod: 10_000,
	}
	if err := node.Bootstrap(again, nil); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	settings, err := node.Settings()
	if err != nil {
		t.Fatalf("settings read failed: %v", err)
	}
	if settings.BillingPeriod != 7 {
		t.Fatalf("bootstrap clobbered administrator settings: %+v", settings)
	}

	// Spent balances are not re-credited either.
	caller := nodeTestAddress(0x10)
	seller := nodeTestAddress(0x11)
	record := nodeTestRecord(0xAB)
	price := big.NewInt(100)
	deadline := testNow + 5_000
	fixedID := market.ListingID(market.FixedSale, record, price, deadline)
	if err := node.Buy(caller, seller, nodeTestAddress(0x12), fixedID, record, price, deadline, price); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := node.Bootstrap(again, map[[20]byte]*big.Int{caller: big.NewInt(1_000)}); err != nil {
		t.Fatalf("third bootstrap failed: %v", err)
	}
	balance, _ := node.Balance(caller)
	if balance.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("bootstrap re-credited a stored account: %s", balance)
	}
}
