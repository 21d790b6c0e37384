package core

import (
	"fmt"

	"github.com/holiman/uint256"

	"sellerchain/core/events"
	"sellerchain/core/gas"
	"sellerchain/core/state"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// tokenResolver hands seller engines a view of the token ledger deployed at
// the custody reference. Each call on the returned binding is charged as an
// external call on top of the state it touches.
type tokenResolver struct {
	state   *meteredState
	emitter events.Emitter
	meter   *gas.Meter
}

func (r *tokenResolver) Resolve(ref [20]byte, caller [20]byte) (seller.CustodyToken, error) {
	if err := r.meter.ChargeCall(); err != nil {
		return nil, err
	}
	kind, err := r.state.ContractKind(ref)
	if err != nil {
		return nil, err
	}
	if kind != state.ContractToken {
		return nil, fmt.Errorf("%w: %x is %s", ErrNotContract, ref, kind)
	}
	ledger := token.NewLedger(ref)
	ledger.SetState(r.state)
	ledger.SetEmitter(r.emitter)
	return &meteredBinding{binding: ledger.Bind(caller), meter: r.meter}, nil
}

type meteredBinding struct {
	binding *token.Binding
	meter   *gas.Meter
}

func (b *meteredBinding) BalanceOf(account [20]byte) (*uint256.Int, error) {
	if err := b.meter.ChargeCall(); err != nil {
		return nil, err
	}
	return b.binding.BalanceOf(account)
}

func (b *meteredBinding) Transfer(to [20]byte, amount *uint256.Int) (bool, error) {
	if err := b.meter.ChargeCall(); err != nil {
		return false, err
	}
	return b.binding.Transfer(to, amount)
}

// meteredEmitter charges for every event. The first charge that fails is
// kept so the processor can fail the transaction after the call returns.
type meteredEmitter struct {
	next  events.Emitter
	meter *gas.Meter
	err   error
}

func (e *meteredEmitter) Emit(evt events.Event) {
	if e.err != nil {
		return
	}
	if err := e.meter.ChargeEvent(); err != nil {
		e.err = err
		return
	}
	e.next.Emit(evt)
}
