package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"sellerchain/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(common.Hash{}, 0)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieSnapshotsNest(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	a := crypto.Keccak256([]byte("a"))
	b := crypto.Keccak256([]byte("b"))

	outer := tr.Snapshot()
	require.NoError(t, tr.Update(a, []byte{1}))
	inner := tr.Snapshot()
	require.NoError(t, tr.Update(b, []byte{2}))

	require.NoError(t, tr.RevertToSnapshot(inner))
	got, err := tr.Get(b)
	require.NoError(t, err)
	require.Empty(t, got)
	got, err = tr.Get(a)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)

	require.NoError(t, tr.RevertToSnapshot(outer))
	got, err = tr.Get(a)
	require.NoError(t, err)
	require.Empty(t, got)

	require.Error(t, tr.RevertToSnapshot(outer))
}

func TestTrieCopyIsIndependent(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("k"))
	require.NoError(t, tr.Update(key, []byte("base")))

	clone := tr.Copy()
	require.NoError(t, clone.Update(key, []byte("changed")))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("base"), got)
	require.NotEqual(t, tr.Hash(), clone.Hash())
}
