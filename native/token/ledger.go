package token

import (
	"errors"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/text/unicode/norm"

	"sellerchain/core/events"
	"sellerchain/core/types"
)

type engineState interface {
	TokenMetadataGet(token [20]byte) (*Metadata, bool, error)
	TokenMetadataPut(token [20]byte, meta *Metadata) error
	TokenBalanceGet(token [20]byte, holder [20]byte) (*big.Int, error)
	TokenBalancePut(token [20]byte, holder [20]byte, amount *big.Int) error
}

// Allocation credits an initial balance when a token is deployed.
type Allocation struct {
	Holder [20]byte
	Amount *big.Int
}

// Ledger executes the token contract deployed at a single address.
type Ledger struct {
	self    [20]byte
	state   engineState
	emitter events.Emitter
}

// NewLedger constructs a ledger for the token deployed at self.
func NewLedger(self [20]byte) *Ledger {
	return &Ledger{self: self, emitter: events.NoopEmitter{}}
}

// Address returns the token's own address.
func (l *Ledger) Address() [20]byte { return l.self }

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state engineState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return nil
}

// Deploy records the token metadata and credits the initial allocations. The
// total supply is the sum of the allocations.
func (l *Ledger) Deploy(owner [20]byte, name, symbol string, decimals uint8, allocations []Allocation) (*Metadata, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	name = norm.NFKC.String(strings.TrimSpace(name))
	symbol = strings.ToUpper(norm.NFKC.String(strings.TrimSpace(symbol)))
	if name == "" || symbol == "" {
		return nil, ErrInvalidMetadata
	}
	if _, ok, err := l.state.TokenMetadataGet(l.self); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyDeployed
	}
	supply := new(uint256.Int)
	credited := make(map[[20]byte]*uint256.Int)
	order := make([][20]byte, 0, len(allocations))
	for _, alloc := range allocations {
		amount, err := toUint256(alloc.Amount)
		if err != nil {
			return nil, err
		}
		var overflow bool
		if supply, overflow = new(uint256.Int).AddOverflow(supply, amount); overflow {
			return nil, ErrInvalidAmount
		}
		if existing, ok := credited[alloc.Holder]; ok {
			existing.Add(existing, amount)
			continue
		}
		credited[alloc.Holder] = new(uint256.Int).Set(amount)
		order = append(order, alloc.Holder)
	}
	meta := &Metadata{Name: name, Symbol: symbol, Decimals: decimals, TotalSupply: supply.ToBig()}
	if err := l.state.TokenMetadataPut(l.self, meta); err != nil {
		return nil, err
	}
	for _, holder := range order {
		if err := l.state.TokenBalancePut(l.self, holder, credited[holder].ToBig()); err != nil {
			return nil, err
		}
	}
	l.emit(DeployedEvent(l.self, owner, meta))
	return meta.Clone(), nil
}

// Metadata returns the token's descriptive fields.
func (l *Ledger) Metadata() (*Metadata, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	meta, ok, err := l.state.TokenMetadataGet(l.self)
	if err != nil {
		return nil, err
	}
	if !ok || meta == nil {
		return nil, ErrNotDeployed
	}
	return meta.Clone(), nil
}

// BalanceOf returns holder's balance.
func (l *Ledger) BalanceOf(holder [20]byte) (*uint256.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	raw, err := l.state.TokenBalanceGet(l.self, holder)
	if err != nil {
		return nil, err
	}
	return toUint256(raw)
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to [20]byte, amount *uint256.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	fromBal, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	if from != to && !amount.IsZero() {
		toBal, err := l.BalanceOf(to)
		if err != nil {
			return err
		}
		toBal, overflow := new(uint256.Int).AddOverflow(toBal, amount)
		if overflow {
			return ErrInvalidAmount
		}
		fromBal = new(uint256.Int).Sub(fromBal, amount)
		if err := l.state.TokenBalancePut(l.self, from, fromBal.ToBig()); err != nil {
			return err
		}
		if err := l.state.TokenBalancePut(l.self, to, toBal.ToBig()); err != nil {
			return err
		}
	}
	l.emit(TransferEvent(l.self, from, to, amount.ToBig()))
	return nil
}

// Bind returns a view of the ledger that transfers on behalf of from.
func (l *Ledger) Bind(from [20]byte) *Binding {
	return &Binding{ledger: l, from: from}
}

// Binding is a ledger bound to a sending account. It reports refused
// transfers as a false result rather than an error.
type Binding struct {
	ledger *Ledger
	from   [20]byte
}

// BalanceOf returns account's balance.
func (b *Binding) BalanceOf(account [20]byte) (*uint256.Int, error) {
	return b.ledger.BalanceOf(account)
}

// Transfer moves amount from the bound account to to.
func (b *Binding) Transfer(to [20]byte, amount *uint256.Int) (bool, error) {
	err := b.ledger.Transfer(b.from, to, amount)
	if errors.Is(err, ErrInsufficientBalance) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || evt == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(WrapEvent(evt))
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrInvalidAmount
	}
	return out, nil
}
