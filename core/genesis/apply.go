package genesis

import (
	"fmt"

	"sellerchain/core/events"
	"sellerchain/core/state"
	"sellerchain/crypto"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// Apply writes the genesis document into an empty state. Entries are applied
// in document order: accounts, then tokens, then sellers.
func Apply(manager *state.Manager, spec *Spec, emitter events.Emitter) error {
	if manager == nil {
		return fmt.Errorf("genesis: state manager required")
	}
	if spec == nil {
		return fmt.Errorf("genesis: document required")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	for i, acc := range spec.Accounts {
		addr, _ := crypto.ParseAddress(acc.Address)
		balance, _ := parseAmount(acc.Balance)
		if err := manager.AddBalance(addr[:], balance); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}

	for i, tk := range spec.Tokens {
		addr, _ := crypto.ParseAddress(tk.Address)
		owner, _ := crypto.ParseAddress(tk.Owner)
		allocations := make([]token.Allocation, 0, len(tk.Allocations))
		for _, alloc := range tk.Allocations {
			holder, _ := crypto.ParseAddress(alloc.Holder)
			amount, _ := parseAmount(alloc.Amount)
			allocations = append(allocations, token.Allocation{Holder: holder, Amount: amount})
		}
		if err := manager.SetContractKind(addr, state.ContractToken); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		ledger := token.NewLedger(addr)
		ledger.SetState(manager)
		ledger.SetEmitter(emitter)
		if _, err := ledger.Deploy(owner, tk.Name, tk.Symbol, tk.Decimals, allocations); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
	}

	for i, sl := range spec.Sellers {
		if err := applySeller(manager, sl, emitter); err != nil {
			return fmt.Errorf("sellers[%d]: %w", i, err)
		}
	}
	return manager.EnsureStateVersion()
}

// applySeller deploys the seller and then configures it through the engine
// as its owner, so genesis settings pass the same checks as transactions.
func applySeller(manager *state.Manager, sl SellerSpec, emitter events.Emitter) error {
	addr, _ := crypto.ParseAddress(sl.Address)
	owner, _ := crypto.ParseAddress(sl.Owner)
	if err := manager.SetContractKind(addr, state.ContractSeller); err != nil {
		return err
	}
	engine := seller.NewEngine(addr)
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	if err := engine.Initialize(owner); err != nil {
		return err
	}
	if sl.CustodyToken != "" {
		ref, _ := crypto.ParseAddress(sl.CustodyToken)
		if err := engine.SetCustodyToken(owner, ref); err != nil {
			return err
		}
	}
	if sl.Price != "" {
		price, _ := parseAmount(sl.Price)
		if err := engine.SetPrice(owner, price); err != nil {
			return err
		}
	}
	if sl.Reward != nil {
		num, _ := parseAmount(sl.Reward.Numerator)
		den, _ := parseAmount(sl.Reward.Denominator)
		if err := engine.SetRewardFraction(owner, num, den); err != nil {
			return err
		}
	}
	for _, r := range sl.Ranks {
		account, _ := crypto.ParseAddress(r.Account)
		rank, _ := seller.ParseRank(r.Rank)
		if err := engine.GrantRank(owner, account, rank); err != nil {
			return fmt.Errorf("grant %s to %s: %w", rank, r.Account, err)
		}
	}
	return nil
}
