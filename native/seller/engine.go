package seller

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"sellerchain/core/events"
	"sellerchain/core/types"
	"sellerchain/native/common"
)

type engineState interface {
	SellerConfigGet(contract [20]byte) (*Config, bool, error)
	SellerConfigPut(contract [20]byte, cfg *Config) error
	SellerRankGet(contract [20]byte, holder [20]byte) (Rank, bool, error)
	SellerRankPut(contract [20]byte, holder [20]byte, rank Rank) error
	SellerRankHolders(contract [20]byte) ([][20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	Snapshot() int
	RevertToSnapshot(id int) error
	common.LockStore
}

// CustodyToken is the fungible-token ledger a seller disburses from, bound to
// the seller as the sending account.
type CustodyToken interface {
	BalanceOf(account [20]byte) (*uint256.Int, error)
	// Transfer moves amount from the bound account to to. A false result with
	// a nil error reports a refused transfer.
	Transfer(to [20]byte, amount *uint256.Int) (bool, error)
}

// TokenResolver locates the custody token named by a reference on behalf of
// caller.
type TokenResolver interface {
	Resolve(ref [20]byte, caller [20]byte) (CustodyToken, error)
}

// Engine executes the seller contract deployed at a single address.
type Engine struct {
	self    [20]byte
	state   engineState
	emitter events.Emitter
	tokens  TokenResolver
}

// NewEngine constructs an engine for the seller deployed at self.
func NewEngine(self [20]byte) *Engine {
	return &Engine{self: self, emitter: events.NoopEmitter{}}
}

// Address returns the seller's own account.
func (e *Engine) Address() [20]byte { return e.self }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetTokenResolver configures how custody token references are resolved.
func (e *Engine) SetTokenResolver(resolver TokenResolver) { e.tokens = resolver }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) lockKey() []byte {
	return append([]byte("seller/lock/"), e.self[:]...)
}

// atomically runs fn inside a state snapshot while holding the seller's
// reentrancy lock. Any error rolls back every effect of fn, including the
// lock itself.
func (e *Engine) atomically(fn func() error) error {
	snap := e.state.Snapshot()
	release, err := common.Enter(e.state, e.lockKey())
	if err == nil {
		err = fn()
		if err == nil {
			err = release()
		}
	}
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snap); revertErr != nil {
			return errors.Join(err, fmt.Errorf("seller engine: revert: %w", revertErr))
		}
		return err
	}
	return nil
}

// Initialize writes the default configuration and grants owner the full rank.
func (e *Engine) Initialize(owner [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.SellerConfigGet(e.self); err != nil {
		return err
	} else if ok {
		return ErrAlreadyDeployed
	}
	if err := e.state.SellerConfigPut(e.self, DefaultConfig()); err != nil {
		return err
	}
	if err := e.state.SellerRankPut(e.self, owner, RankFull); err != nil {
		return err
	}
	e.emit(RankGrantedEvent(e.self, owner, owner, RankFull))
	return nil
}

func (e *Engine) loadConfig() (*Config, error) {
	cfg, ok, err := e.state.SellerConfigGet(e.self)
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrNotDeployed
	}
	if cfg.Price == nil {
		cfg.Price = big.NewInt(0)
	}
	if cfg.RewardNumerator == nil {
		cfg.RewardNumerator = big.NewInt(0)
	}
	if cfg.RewardDenominator == nil {
		cfg.RewardDenominator = big.NewInt(1)
	}
	return cfg, nil
}

func (e *Engine) custody(cfg *Config) (CustodyToken, error) {
	if e.tokens == nil {
		return nil, fmt.Errorf("%w: %v", ErrDisbursementFailed, errNoTokens)
	}
	token, err := e.tokens.Resolve(cfg.CustodyToken, e.self)
	if err != nil {
		if errors.Is(err, ErrOutOfResources) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrDisbursementFailed, hexAddr(cfg.CustodyToken), err)
	}
	return token, nil
}

// validReferral reports whether referral may receive a bonus for buyer.
func (e *Engine) validReferral(buyer, referral [20]byte) bool {
	return !isZeroAddress(referral) && referral != buyer && referral != e.self
}

// Purchase sells custody tokens to buyer for payment native units. The buyer
// receives floor(payment/price) tokens; a valid referral receives the reward
// fraction of that allocation on top. The payment moves from the buyer to the
// seller only when every disbursement succeeded.
func (e *Engine) Purchase(buyer, referral [20]byte, payment *big.Int) (*PurchaseResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	paid, err := toUint256(payment)
	if err != nil {
		return nil, err
	}
	var result *PurchaseResult
	err = e.atomically(func() error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		price, err := toUint256(cfg.Price)
		if err != nil {
			return err
		}
		num, err := toUint256(cfg.RewardNumerator)
		if err != nil {
			return err
		}
		den, err := toUint256(cfg.RewardDenominator)
		if err != nil {
			return err
		}
		withBonus := e.validReferral(buyer, referral)
		q, err := computeQuote(paid, price, num, den, withBonus)
		if err != nil {
			return err
		}

		token, err := e.custody(cfg)
		if err != nil {
			return err
		}
		supply, err := token.BalanceOf(e.self)
		if err != nil {
			return e.collaboratorErr("balanceOf", err)
		}
		if supply == nil || supply.Lt(q.total) {
			return ErrInsufficientCustodySupply
		}

		if err := e.disburse(token, buyer, q.buyerTokens); err != nil {
			return err
		}
		if withBonus {
			if err := e.disburse(token, referral, q.bonusTokens); err != nil {
				return err
			}
		}

		if err := e.collect(buyer, payment); err != nil {
			return err
		}
		result = &PurchaseResult{
			Buyer:         buyer,
			Referrer:      referral,
			Payment:       copyBig(payment),
			BuyerTokens:   q.buyerTokens.ToBig(),
			BonusTokens:   q.bonusTokens.ToBig(),
			Remainder:     q.remainder.ToBig(),
			ReferralValid: withBonus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(PurchaseEvent(e.self, result))
	return result, nil
}

func (e *Engine) disburse(token CustodyToken, to [20]byte, amount *uint256.Int) error {
	ok, err := token.Transfer(to, amount)
	if err != nil {
		return e.collaboratorErr("transfer", err)
	}
	if !ok {
		return fmt.Errorf("%w: transfer of %s to %s refused", ErrDisbursementFailed, amount.Dec(), hexAddr(to))
	}
	return nil
}

// collaboratorErr keeps gas exhaustion visible and folds every other
// collaborator failure into ErrDisbursementFailed.
func (e *Engine) collaboratorErr(op string, err error) error {
	if errors.Is(err, ErrOutOfResources) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDisbursementFailed, op, err)
}

// collect moves the payment from the buyer's native balance to the seller's.
func (e *Engine) collect(buyer [20]byte, payment *big.Int) error {
	if payment == nil || payment.Sign() == 0 {
		return nil
	}
	from, err := e.state.GetAccount(buyer[:])
	if err != nil {
		return err
	}
	from = types.EnsureAccount(from)
	if from.Balance.Cmp(payment) < 0 {
		return ErrInsufficientFunds
	}
	to, err := e.state.GetAccount(e.self[:])
	if err != nil {
		return err
	}
	to = types.EnsureAccount(to)
	from.Balance = new(big.Int).Sub(from.Balance, payment)
	to.Balance = new(big.Int).Add(to.Balance, payment)
	if err := e.state.PutAccount(buyer[:], from); err != nil {
		return err
	}
	return e.state.PutAccount(e.self[:], to)
}

// AvailableCustody reports the custody token balance held by the seller.
func (e *Engine) AvailableCustody() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	token, err := e.custody(cfg)
	if err != nil {
		return nil, err
	}
	balance, err := token.BalanceOf(e.self)
	if err != nil {
		return nil, e.collaboratorErr("balanceOf", err)
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return balance.ToBig(), nil
}

// Summary collects every readable attribute of the seller.
func (e *Engine) Summary() (*Summary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	native, err := e.NativeBalance()
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		Address:       e.self,
		CustodyToken:  cfg.CustodyToken,
		Price:         copyBig(cfg.Price),
		Reward:        Fraction{Numerator: copyBig(cfg.RewardNumerator), Denominator: copyBig(cfg.RewardDenominator)},
		NativeBalance: native,
		Ranks:         make(map[[20]byte]Rank),
	}
	if custody, err := e.AvailableCustody(); err == nil {
		summary.CustodyBalance = custody
	}
	holders, err := e.state.SellerRankHolders(e.self)
	if err != nil {
		return nil, err
	}
	for _, holder := range holders {
		rank, err := e.RankOf(holder)
		if err != nil {
			return nil, err
		}
		summary.Ranks[holder] = rank
	}
	return summary, nil
}
