package seller

import (
	"math/big"

	"github.com/holiman/uint256"
)

// quote is the arithmetic outcome of a purchase, computed before any
// collaborator is contacted.
type quote struct {
	buyerTokens *uint256.Int
	bonusTokens *uint256.Int
	total       *uint256.Int
	remainder   *uint256.Int
}

// computeQuote divides the payment by the unit price, truncating, and derives
// the referral bonus as floor(buyerTokens * n / d). The product is formed in
// 512 bits before the division. A bonus or total that does not fit in 256
// bits can never be covered by a custody balance and is reported as such.
func computeQuote(payment, price, numerator, denominator *uint256.Int, withBonus bool) (*quote, error) {
	if price.IsZero() {
		return nil, ErrPurchaseUnavailable
	}
	if payment.Lt(price) {
		return nil, ErrInsufficientPayment
	}
	buyer := new(uint256.Int)
	remainder := new(uint256.Int)
	buyer.DivMod(payment, price, remainder)

	q := &quote{
		buyerTokens: buyer,
		bonusTokens: new(uint256.Int),
		total:       new(uint256.Int).Set(buyer),
		remainder:   remainder,
	}
	if !withBonus {
		return q, nil
	}
	if denominator.IsZero() {
		return nil, ErrInvalidFraction
	}
	bonus, overflow := new(uint256.Int).MulDivOverflow(buyer, numerator, denominator)
	if overflow {
		return nil, ErrInsufficientCustodySupply
	}
	total, overflow := new(uint256.Int).AddOverflow(buyer, bonus)
	if overflow {
		return nil, ErrInsufficientCustodySupply
	}
	q.bonusTokens = bonus
	q.total = total
	return q, nil
}

// toUint256 converts a non-negative big integer, rejecting values outside the
// 256-bit range.
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
