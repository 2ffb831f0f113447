package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lendledger/storage"
)

// Manager provides transactional, typed access to ledger state on top of a
// key-value database. Every public ledger operation runs inside a single
// transaction: its writes accumulate in an overlay and are either committed
// atomically as one batch or discarded, which is what gives operations their
// all-or-nothing semantics.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Txn is an in-flight state transaction. Reads see the overlay first, then
// the underlying database.
type Txn struct {
	db     storage.Database
	order  []string
	writes map[string]storage.BatchEntry
}

func (m *Manager) begin() *Txn {
	return &Txn{db: m.db, writes: make(map[string]storage.BatchEntry)}
}

// View runs fn against a read-only snapshot; any writes fn performs are
// discarded.
func (m *Manager) View(fn func(*Txn) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	return fn(m.begin())
}

// Update runs fn inside a transaction and commits the accumulated writes as
// one atomic batch when fn returns nil. Any error discards the overlay.
func (m *Manager) Update(fn func(*Txn) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	txn := m.begin()
	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.order) == 0 {
		return nil
	}
	batch := make([]storage.BatchEntry, 0, len(txn.order))
	for _, key := range txn.order {
		batch = append(batch, txn.writes[key])
	}
	if err := m.db.WriteBatch(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (m *Manager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (t *Txn) get(key []byte) ([]byte, bool, error) {
	if entry, ok := t.writes[string(key)]; ok {
		if entry.Delete {
			return nil, false, nil
		}
		return entry.Value, true, nil
	}
	return t.db.Get(key)
}

func (t *Txn) put(key, value []byte) {
	id := string(key)
	if _, seen := t.writes[id]; !seen {
		t.order = append(t.order, id)
	}
	t.writes[id] = storage.BatchEntry{Key: key, Value: value}
}

func (t *Txn) del(key []byte) {
	id := string(key)
	if _, seen := t.writes[id]; !seen {
		t.order = append(t.order, id)
	}
	t.writes[id] = storage.BatchEntry{Key: key, Delete: true}
}

func (t *Txn) getRLP(key []byte, out interface{}) (bool, error) {
	raw, ok, err := t.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key[:4], err)
	}
	return true, nil
}

func (t *Txn) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %x: %w", key[:4], err)
	}
	t.put(key, encoded)
	return nil
}

// storageKey derives a fixed-width state key from namespaced parts.
func storageKey(parts ...string) []byte {
	size := 0
	for _, part := range parts {
		size += len(part) + 1
	}
	buf := make([]byte, 0, size)
	for i, part := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}
