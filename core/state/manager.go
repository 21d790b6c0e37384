package state

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"sellerchain/storage/trie"
)

// Manager reads and writes application state held in the trie. Values are
// RLP encoded and stored under keccak256-hashed keys.
//
// Manager is not safe for concurrent use; the node serialises access.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// Trie exposes the underlying trie.
func (m *Manager) Trie() *trie.Trie {
	return m.trie
}

// Copy returns a manager over an independent copy of the in-memory trie.
// Mutations through the copy never reach the original.
func (m *Manager) Copy() *Manager {
	return &Manager{trie: m.trie.Copy()}
}

// Snapshot records the current state and returns an identifier for
// RevertToSnapshot.
func (m *Manager) Snapshot() int {
	return m.trie.Snapshot()
}

// RevertToSnapshot discards every mutation made since Snapshot(id).
func (m *Manager) RevertToSnapshot(id int) error {
	return m.trie.RevertToSnapshot(id)
}

// DiscardSnapshots forgets all recorded snapshots, keeping current contents.
func (m *Manager) DiscardSnapshots() {
	m.trie.DiscardSnapshots()
}

// Root returns the hash of the current (uncommitted) state.
func (m *Manager) Root() common.Hash {
	return m.trie.Hash()
}

// Commit persists the state and returns the new root.
func (m *Manager) Commit(parent common.Hash, height uint64) (common.Hash, error) {
	return m.trie.Commit(parent, height)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256 to match the requirements of
// the underlying trie implementation.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.trie.Delete(kvKey(key))
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must be a non-nil slice pointer")
	}
	ok, err := m.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		elem := val.Elem()
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
	}
	return nil
}

// LockHeld reports whether the reentrancy lock identified by key is held.
func (m *Manager) LockHeld(key []byte) (bool, error) {
	return m.KVGet(lockKey(key), nil)
}

// SetLock acquires or releases the reentrancy lock identified by key. A
// released lock leaves no trace in state.
func (m *Manager) SetLock(key []byte, held bool) error {
	if held {
		return m.KVPut(lockKey(key), true)
	}
	return m.KVDelete(lockKey(key))
}

func lockKey(key []byte) []byte {
	return append([]byte("lock/"), key...)
}
