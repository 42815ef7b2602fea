package storage

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store. The marketplace
// state manager stages writes against any backend satisfying it, so tests
// can run on the in-memory store while the daemon uses LevelDB.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Write(batch *Batch) error
	Close()
}

// Batch collects writes and deletes to be applied by a single Write call.
// Backends apply the whole batch atomically, so a crash cannot persist part
// of a committed operation.
type Batch struct {
	ops []batchOp
}

type batchOp struct {
	key   []byte
	value []byte
	del   bool
}

// Put queues a key-value write.
func (b *Batch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, batchOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete queues a key removal.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), del: true})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

// Write applies the whole batch under one lock.
func (db *MemDB) Write(batch *Batch) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, op := range batch.ops {
		if op.del {
			delete(db.data, string(op.key))
			continue
		}
		db.data[string(op.key)] = append([]byte(nil), op.value...)
	}
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store backing the market daemon.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Has reports whether a key is present.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

// Delete removes a key-value pair.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

// Write applies the batch as one atomic LevelDB write.
func (ldb *LevelDB) Write(batch *Batch) error {
	lb := new(leveldb.Batch)
	for _, op := range batch.ops {
		if op.del {
			lb.Delete(op.key)
			continue
		}
		lb.Put(op.key, op.value)
	}
	return ldb.db.Write(lb, nil)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}
