package receipts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sellerchain/core/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	store := openStore(t)
	receipt := &types.Receipt{
		TxHash:      []byte{0x01},
		BlockNumber: 4,
		Status:      types.ReceiptStatusFailed,
		ErrorCode:   "insufficient_payment",
		Fee:         "21000",
		Events:      []types.Event{},
	}
	require.NoError(t, store.Put(receipt))

	loaded, err := store.Get([]byte{0x01})
	require.NoError(t, err)
	require.Equal(t, "insufficient_payment", loaded.ErrorCode)
	require.Equal(t, uint64(4), loaded.BlockNumber)
	require.False(t, loaded.Succeeded())

	require.ErrorIs(t, store.Put(receipt), ErrDuplicate)
	_, err = store.Get([]byte{0x02})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRangeInHeightOrder(t *testing.T) {
	store := openStore(t)
	for _, h := range []uint64{3, 1, 2, 7} {
		require.NoError(t, store.Put(&types.Receipt{TxHash: []byte{byte(h)}, BlockNumber: h, Status: types.ReceiptStatusSuccess}))
	}

	var heights []uint64
	require.NoError(t, store.Range(2, 5, func(r *types.Receipt) error {
		heights = append(heights, r.BlockNumber)
		return nil
	}))
	require.Equal(t, []uint64{2, 3}, heights)
}

func TestDeleteRemovesHashAndHeight(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Put(&types.Receipt{TxHash: []byte{0x01}, BlockNumber: 1, Status: types.ReceiptStatusSuccess}))
	require.NoError(t, store.Put(&types.Receipt{TxHash: []byte{0x02}, BlockNumber: 2, Status: types.ReceiptStatusSuccess}))

	require.NoError(t, store.Delete([]byte{0x02}))
	_, err := store.Get([]byte{0x02})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete([]byte{0x02}))

	var seen []uint64
	require.NoError(t, store.Range(0, 10, func(r *types.Receipt) error {
		seen = append(seen, r.BlockNumber)
		return nil
	}))
	require.Equal(t, []uint64{1}, seen)

	require.NoError(t, store.Put(&types.Receipt{TxHash: []byte{0x03}, BlockNumber: 2, Status: types.ReceiptStatusSuccess}))
	loaded, err := store.Get([]byte{0x03})
	require.NoError(t, err)
	require.Equal(t, uint64(2), loaded.BlockNumber)
}
