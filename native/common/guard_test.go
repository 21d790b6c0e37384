package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memLocks map[string]bool

func (m memLocks) LockHeld(key []byte) (bool, error) { return m[string(key)], nil }

func (m memLocks) SetLock(key []byte, held bool) error {
	m[string(key)] = held
	return nil
}

func TestEnterRejectsNestedAcquire(t *testing.T) {
	store := memLocks{}
	key := []byte("seller/lock")

	release, err := Enter(store, key)
	require.NoError(t, err)

	_, err = Enter(store, key)
	require.ErrorIs(t, err, ErrReentrantCall)

	require.NoError(t, release())
	release, err = Enter(store, key)
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestEnterIsScopedByKey(t *testing.T) {
	store := memLocks{}
	_, err := Enter(store, []byte("a"))
	require.NoError(t, err)
	_, err = Enter(store, []byte("b"))
	require.NoError(t, err)
}

func TestEnterRequiresStore(t *testing.T) {
	_, err := Enter(nil, []byte("a"))
	require.Error(t, err)
}
