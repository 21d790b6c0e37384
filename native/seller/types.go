package seller

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Rank is the access tier an account holds on a seller contract. Ranks are
// totally ordered and every higher rank carries the capabilities of the lower
// ones.
type Rank uint8

const (
	RankNone Rank = iota
	RankSetPrice
	RankWithdraw
	RankFull
)

// Valid reports whether r is one of the enumerated ranks.
func (r Rank) Valid() bool {
	return r <= RankFull
}

// Satisfies reports whether r grants at least the capabilities of required.
func (r Rank) Satisfies(required Rank) bool {
	return r >= required
}

func (r Rank) String() string {
	switch r {
	case RankNone:
		return "none"
	case RankSetPrice:
		return "set_price"
	case RankWithdraw:
		return "withdraw"
	case RankFull:
		return "full"
	default:
		return fmt.Sprintf("rank(%d)", uint8(r))
	}
}

// ParseRank converts a raw numeric value into a Rank, rejecting anything
// outside the enumeration.
func ParseRank(v uint64) (Rank, error) {
	if v > uint64(RankFull) {
		return RankNone, ErrInvalidRank
	}
	return Rank(v), nil
}

// NoReferral is the sentinel used when a purchase names no referrer.
var NoReferral [20]byte

// DefaultCustodyToken is the token reference a freshly deployed seller
// disburses from until an operator points it elsewhere.
var DefaultCustodyToken = mustAddress("c2807533832807bf15898778d8a108405e9edfb1")

// Config is the persisted configuration of a seller contract. The reward
// numerator and denominator are stored together so readers never observe a
// half-updated fraction.
type Config struct {
	CustodyToken      [20]byte
	Price             *big.Int
	RewardNumerator   *big.Int
	RewardDenominator *big.Int
}

// DefaultConfig returns the configuration written at deployment.
func DefaultConfig() *Config {
	return &Config{
		CustodyToken:      DefaultCustodyToken,
		Price:             big.NewInt(0),
		RewardNumerator:   big.NewInt(1),
		RewardDenominator: big.NewInt(1),
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return &Config{
		CustodyToken:      c.CustodyToken,
		Price:             copyBig(c.Price),
		RewardNumerator:   copyBig(c.RewardNumerator),
		RewardDenominator: copyBig(c.RewardDenominator),
	}
}

// Fraction is the reward ratio applied to a buyer's allocation to compute the
// referral bonus.
type Fraction struct {
	Numerator   *big.Int
	Denominator *big.Int
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Buyer       [20]byte
	Referrer    [20]byte
	Payment     *big.Int
	BuyerTokens *big.Int
	BonusTokens *big.Int
	// Remainder is the part of the payment that did not buy a whole token. It
	// stays in the seller's balance.
	Remainder     *big.Int
	ReferralValid bool
}

// TotalTokens returns the custody debit of the purchase.
func (r *PurchaseResult) TotalTokens() *big.Int {
	if r == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Add(copyBig(r.BuyerTokens), copyBig(r.BonusTokens))
}

// Summary is a read-only view over a seller contract.
type Summary struct {
	Address        [20]byte
	CustodyToken   [20]byte
	Price          *big.Int
	Reward         Fraction
	NativeBalance  *big.Int
	CustodyBalance *big.Int
	Ranks          map[[20]byte]Rank
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	return addr == NoReferral
}

func mustAddress(h string) [20]byte {
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 20 {
		panic(fmt.Sprintf("seller: invalid address constant %q", h))
	}
	var out [20]byte
	copy(out[:], raw)
	return out
}
