package core

import (
	"math/big"
	"sync"

	"namemarket/core/events"
	"namemarket/core/state"
	"namemarket/core/types"
	"namemarket/native/market"
)

// Node hosts the market engine over a staged state manager. Every operation
// is serialized under one mutex so the ledger observes a total order, runs
// against a fresh staged session, commits only on success, and flushes
// buffered events afterwards; a failed operation leaves no observable
// mutation and issues no notification.
type Node struct {
	mu      sync.Mutex
	manager *state.Manager
	engine  *market.Engine
	emitter events.Emitter
}

// NewNode wires a node around the supplied state manager.
func NewNode(manager *state.Manager) *Node {
	return &Node{
		manager: manager,
		engine:  market.NewEngine(),
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures where committed events are delivered.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetNowFunc overrides the engine time source, for tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.SetNowFunc(now)
}

// SetGate overrides the engine identity gate, for tests and alternate hosts.
func (n *Node) SetGate(gate market.IdentityGate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.SetGate(gate)
}

func (n *Node) withSession(fn func(*market.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	session := n.manager.Begin()
	recorder := &events.Recorder{}
	n.engine.SetState(session)
	n.engine.SetEmitter(recorder)
	if err := fn(n.engine); err != nil {
		session.Discard()
		recorder.Reset()
		return err
	}
	if err := session.Commit(); err != nil {
		recorder.Reset()
		return err
	}
	recorder.Flush(n.emitter)
	return nil
}

// Bootstrap initialises settings (when absent) and applies genesis balance
// allocations for addresses that have never been stored. Safe to call on
// every daemon start.
func (n *Node) Bootstrap(settings market.Settings, alloc map[[20]byte]*big.Int) error {
	return n.withSession(func(eng *market.Engine) error {
		if err := eng.Bootstrap(settings); err != nil {
			return err
		}
		session := n.currentSession()
		for addr, balance := range alloc {
			if balance == nil || balance.Sign() <= 0 {
				continue
			}
			stored, err := session.HasAccount(addr[:])
			if err != nil {
				return err
			}
			if stored {
				continue
			}
			account := &types.Account{Balance: new(big.Int).Set(balance)}
			if err := session.PutAccount(addr[:], account); err != nil {
				return err
			}
		}
		return nil
	})
}

// currentSession exposes the session installed by withSession. Only valid
// inside a withSession callback; the mutex guarantees no interleaving.
func (n *Node) currentSession() *state.Session {
	return n.engine.CurrentState().(*state.Session)
}

// Buy executes a fixed-price sale.
func (n *Node) Buy(caller, seller, buyer [20]byte, fixedID, recordID [32]byte, price *big.Int, deadline int64, funds *big.Int) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.Buy(caller, seller, buyer, fixedID, recordID, price, deadline, funds)
	})
}

// PlaceBid escrows a new highest bid.
func (n *Node) PlaceBid(caller, seller, buyer [20]byte, bidID, recordID [32]byte, lowestPrice *big.Int, deadline int64, funds *big.Int) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.PlaceBid(caller, seller, buyer, bidID, recordID, lowestPrice, deadline, funds)
	})
}

// SettleBid pays out an auction to the seller.
func (n *Node) SettleBid(caller [20]byte, bidID [32]byte, buyer [20]byte) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.SettleBid(caller, bidID, buyer)
	})
}

// RefundBid refunds an expired auction to the buyer of record.
func (n *Node) RefundBid(caller [20]byte, bidID [32]byte) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.RefundBid(caller, bidID)
	})
}

// SetPause toggles the marketplace pause flag.
func (n *Node) SetPause(caller [20]byte, paused bool) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.SetPause(caller, paused)
	})
}

// TransferOwner hands administrative control to a new owner.
func (n *Node) TransferOwner(caller, newOwner [20]byte) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.TransferOwner(caller, newOwner)
	})
}

// ChangeSettings updates the marketplace time periods.
func (n *Node) ChangeSettings(caller [20]byte, billing, closing, secure, deadline int64) error {
	return n.withSession(func(eng *market.Engine) error {
		return eng.ChangeSettings(caller, billing, closing, secure, deadline)
	})
}

// Listing returns the stored price item for an identifier, if any.
func (n *Node) Listing(id [32]byte) (*market.PriceItem, bool, error) {
	var (
		item  *market.PriceItem
		found bool
	)
	err := n.withSession(func(eng *market.Engine) error {
		var err error
		item, found, err = eng.Listing(id)
		return err
	})
	return item, found, err
}

// Settings returns the current marketplace settings.
func (n *Node) Settings() (*market.Settings, error) {
	var settings *market.Settings
	err := n.withSession(func(eng *market.Engine) error {
		var err error
		settings, err = eng.Settings()
		return err
	})
	return settings, err
}

// Balance returns the account balance for an address.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.withSession(func(eng *market.Engine) error {
		session := n.currentSession()
		account, err := session.GetAccount(addr[:])
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	return balance, err
}
