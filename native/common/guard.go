package common

import "errors"

// ErrReentrantCall is returned when a guarded operation is entered while a
// previous invocation on the same module instance is still executing.
var ErrReentrantCall = errors.New("reentrant call")

// LockStore persists reentrancy locks in state so that a nested call observes
// the lock regardless of which engine instance serves it.
type LockStore interface {
	LockHeld(key []byte) (bool, error)
	SetLock(key []byte, held bool) error
}

// Enter acquires the lock identified by key. The returned release function
// must be called once the guarded operation completes successfully; on
// failure the caller's state rollback clears the lock instead.
func Enter(store LockStore, key []byte) (func() error, error) {
	if store == nil || len(key) == 0 {
		return nil, errors.New("reentrancy guard: lock store not configured")
	}
	held, err := store.LockHeld(key)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, ErrReentrantCall
	}
	if err := store.SetLock(key, true); err != nil {
		return nil, err
	}
	return func() error { return store.SetLock(key, false) }, nil
}
