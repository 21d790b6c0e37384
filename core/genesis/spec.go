package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sellerchain/crypto"
	"sellerchain/native/seller"
)

// Spec is the YAML genesis document.
type Spec struct {
	ChainID  uint64        `yaml:"chain_id"`
	Accounts []AccountSpec `yaml:"accounts"`
	Tokens   []TokenSpec   `yaml:"tokens"`
	Sellers  []SellerSpec  `yaml:"sellers"`
}

// AccountSpec funds an account with native currency.
type AccountSpec struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// TokenSpec deploys a custody token at a fixed address.
type TokenSpec struct {
	Address     string           `yaml:"address"`
	Owner       string           `yaml:"owner"`
	Name        string           `yaml:"name"`
	Symbol      string           `yaml:"symbol"`
	Decimals    uint8            `yaml:"decimals"`
	Allocations []AllocationSpec `yaml:"allocations"`
}

// AllocationSpec credits an initial token balance.
type AllocationSpec struct {
	Holder string `yaml:"holder"`
	Amount string `yaml:"amount"`
}

// SellerSpec deploys a seller at a fixed address. Omitted settings keep the
// deployment defaults.
type SellerSpec struct {
	Address      string      `yaml:"address"`
	Owner        string      `yaml:"owner"`
	CustodyToken string      `yaml:"custody_token"`
	Price        string      `yaml:"price"`
	Reward       *RewardSpec `yaml:"reward"`
	Ranks        []RankSpec  `yaml:"ranks"`
}

// RewardSpec is a referral reward fraction.
type RewardSpec struct {
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

// RankSpec grants a rank on a seller.
type RankSpec struct {
	Account string `yaml:"account"`
	Rank    uint64 `yaml:"rank"`
}

// Load reads and validates a genesis document. Unknown fields are rejected.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis %q: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a genesis document.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks every address and amount and rejects duplicate contract
// addresses.
func (s *Spec) Validate() error {
	if s.ChainID == 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	seen := make(map[[20]byte]string)
	for i, acc := range s.Accounts {
		if _, err := crypto.ParseAddress(acc.Address); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if _, err := parseAmount(acc.Balance); err != nil {
			return fmt.Errorf("accounts[%d].balance: %w", i, err)
		}
	}
	for i, tk := range s.Tokens {
		addr, err := crypto.ParseAddress(tk.Address)
		if err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("tokens[%d]: address already used by %s", i, prev)
		}
		seen[addr] = "token " + tk.Symbol
		if _, err := crypto.ParseAddress(tk.Owner); err != nil {
			return fmt.Errorf("tokens[%d].owner: %w", i, err)
		}
		if strings.TrimSpace(tk.Name) == "" || strings.TrimSpace(tk.Symbol) == "" {
			return fmt.Errorf("tokens[%d]: name and symbol required", i)
		}
		for j, alloc := range tk.Allocations {
			if _, err := crypto.ParseAddress(alloc.Holder); err != nil {
				return fmt.Errorf("tokens[%d].allocations[%d]: %w", i, j, err)
			}
			if _, err := parseAmount(alloc.Amount); err != nil {
				return fmt.Errorf("tokens[%d].allocations[%d].amount: %w", i, j, err)
			}
		}
	}
	for i, sl := range s.Sellers {
		addr, err := crypto.ParseAddress(sl.Address)
		if err != nil {
			return fmt.Errorf("sellers[%d]: %w", i, err)
		}
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("sellers[%d]: address already used by %s", i, prev)
		}
		seen[addr] = "seller"
		if _, err := crypto.ParseAddress(sl.Owner); err != nil {
			return fmt.Errorf("sellers[%d].owner: %w", i, err)
		}
		if sl.CustodyToken != "" {
			if _, err := crypto.ParseAddress(sl.CustodyToken); err != nil {
				return fmt.Errorf("sellers[%d].custody_token: %w", i, err)
			}
		}
		if sl.Price != "" {
			if _, err := parseAmount(sl.Price); err != nil {
				return fmt.Errorf("sellers[%d].price: %w", i, err)
			}
		}
		if sl.Reward != nil {
			if _, err := parseAmount(sl.Reward.Numerator); err != nil {
				return fmt.Errorf("sellers[%d].reward.numerator: %w", i, err)
			}
			den, err := parseAmount(sl.Reward.Denominator)
			if err != nil {
				return fmt.Errorf("sellers[%d].reward.denominator: %w", i, err)
			}
			if den.Sign() == 0 {
				return fmt.Errorf("sellers[%d].reward: %w", i, seller.ErrInvalidFraction)
			}
		}
		for j, r := range sl.Ranks {
			if _, err := crypto.ParseAddress(r.Account); err != nil {
				return fmt.Errorf("sellers[%d].ranks[%d]: %w", i, j, err)
			}
			if _, err := seller.ParseRank(r.Rank); err != nil {
				return fmt.Errorf("sellers[%d].ranks[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
