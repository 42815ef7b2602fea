package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"namemarket/core/types"
	"namemarket/native/market"
	"namemarket/storage"
)

const (
	accountPrefix   = "accounts/"
	priceItemPrefix = "market/item/"
	settingsKey     = "params/market"
)

var errNoVault = errors.New("state: vault address not configured")

// Manager adapts a key-value database to the market engine's state surface.
// Every engine operation runs against a Session started with Begin: the
// session stages all writes in memory and only Commit pushes them to the
// backing store, giving each operation all-or-nothing semantics on hosts
// without native transactions.
type Manager struct {
	db    storage.Database
	vault [20]byte
}

// NewManager wraps the database. The vault address receives escrowed bid
// funds and must be an address no key controls.
func NewManager(db storage.Database, vault [20]byte) *Manager {
	return &Manager{db: db, vault: vault}
}

// Begin starts a staged session over the backing store.
func (m *Manager) Begin() *Session {
	return &Session{
		manager: m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

// Session is a staged view of the store. It satisfies market.State; reads
// observe staged writes, and nothing reaches the database until Commit.
type Session struct {
	manager *Manager
	writes  map[string][]byte
	deletes map[string]bool
}

func (s *Session) get(key string) ([]byte, bool, error) {
	if s.deletes[key] {
		return nil, false, nil
	}
	if v, ok := s.writes[key]; ok {
		return v, true, nil
	}
	v, err := s.manager.db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Session) put(key string, value []byte) {
	delete(s.deletes, key)
	s.writes[key] = value
}

func (s *Session) del(key string) {
	delete(s.writes, key)
	s.deletes[key] = true
}

// Commit flushes every staged write and delete to the backing store as one
// atomic batch, so a crash mid-commit cannot persist half an operation.
func (s *Session) Commit() error {
	batch := new(storage.Batch)
	for key, value := range s.writes {
		batch.Put([]byte(key), value)
	}
	for key := range s.deletes {
		batch.Delete([]byte(key))
	}
	if err := s.manager.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	s.writes = make(map[string][]byte)
	s.deletes = make(map[string]bool)
	return nil
}

// Discard drops every staged mutation.
func (s *Session) Discard() {
	s.writes = make(map[string][]byte)
	s.deletes = make(map[string]bool)
}

func accountKey(addr []byte) string {
	return accountPrefix + hex.EncodeToString(addr)
}

func priceItemKey(id [32]byte) string {
	return priceItemPrefix + hex.EncodeToString(id[:])
}

// GetAccount loads an account, returning a zero-balance account for unknown
// addresses.
func (s *Session) GetAccount(addr []byte) (*types.Account, error) {
	raw, ok, err := s.get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).Clone(), nil
	}
	account := &types.Account{}
	if err := json.Unmarshal(raw, account); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return account.Clone(), nil
}

// HasAccount reports whether an account has ever been stored, letting the
// node apply genesis allocations exactly once per address.
func (s *Session) HasAccount(addr []byte) (bool, error) {
	_, ok, err := s.get(accountKey(addr))
	return ok, err
}

// PutAccount stages an account write.
func (s *Session) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	raw, err := json.Marshal(account.Clone())
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	s.put(accountKey(addr), raw)
	return nil
}

// PriceItemPut stages a sanitized price item write keyed by its identifier.
func (s *Session) PriceItemPut(item *market.PriceItem) error {
	sanitized, err := market.SanitizePriceItem(item)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("state: encode price item: %w", err)
	}
	s.put(priceItemKey(sanitized.ID), raw)
	return nil
}

// PriceItemGet loads the price item stored under the identifier, if any.
func (s *Session) PriceItemGet(id [32]byte) (*market.PriceItem, bool, error) {
	raw, ok, err := s.get(priceItemKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	item := &market.PriceItem{}
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, false, fmt.Errorf("state: decode price item: %w", err)
	}
	return item, true, nil
}

// PriceItemDelete stages removal of the price item.
func (s *Session) PriceItemDelete(id [32]byte) error {
	s.del(priceItemKey(id))
	return nil
}

// SettingsGet loads the persisted marketplace settings.
func (s *Session) SettingsGet() (*market.Settings, bool, error) {
	raw, ok, err := s.get(settingsKey)
	if err != nil || !ok {
		return nil, false, err
	}
	settings := &market.Settings{}
	if err := json.Unmarshal(raw, settings); err != nil {
		return nil, false, fmt.Errorf("state: decode settings: %w", err)
	}
	return settings, true, nil
}

// SettingsPut stages a settings write.
func (s *Session) SettingsPut(settings *market.Settings) error {
	if settings == nil {
		return fmt.Errorf("state: nil settings")
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("state: encode settings: %w", err)
	}
	s.put(settingsKey, raw)
	return nil
}

// VaultAddress returns the escrow vault account address.
func (s *Session) VaultAddress() ([20]byte, error) {
	if s.manager.vault == ([20]byte{}) {
		return [20]byte{}, errNoVault
	}
	return s.manager.vault, nil
}
