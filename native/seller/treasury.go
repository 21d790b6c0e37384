package seller

import (
	"math/big"

	"sellerchain/core/types"
)

// NativeBalance returns the native units the seller holds.
func (e *Engine) NativeBalance() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acc, err := e.state.GetAccount(e.self[:])
	if err != nil {
		return nil, err
	}
	return copyBig(types.EnsureAccount(acc).Balance), nil
}

// Withdraw transfers the seller's entire native balance to caller and returns
// the amount moved. The seller itself is never a valid caller.
func (e *Engine) Withdraw(caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := e.atomically(func() error {
		// The treasury cannot pay itself.
		if caller == e.self {
			return ErrUnauthorized
		}
		if err := e.requireRank(caller, RankWithdraw); err != nil {
			return err
		}
		self, err := e.state.GetAccount(e.self[:])
		if err != nil {
			return err
		}
		self = types.EnsureAccount(self)
		if self.Balance.Sign() == 0 {
			return ErrNothingToWithdraw
		}
		amount = new(big.Int).Set(self.Balance)
		to, err := e.state.GetAccount(caller[:])
		if err != nil {
			return err
		}
		to = types.EnsureAccount(to)
		to.Balance = new(big.Int).Add(to.Balance, amount)
		self.Balance = big.NewInt(0)
		if err := e.state.PutAccount(e.self[:], self); err != nil {
			return err
		}
		return e.state.PutAccount(caller[:], to)
	})
	if err != nil {
		return nil, err
	}
	e.emit(WithdrawnEvent(e.self, caller, amount))
	return amount, nil
}
