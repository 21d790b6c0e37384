package seller

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Dispatch decodes an ABI call against the seller and executes it on behalf
// of caller with value native units attached. Only purchase and the implicit
// purchase accept value.
func (e *Engine) Dispatch(caller [20]byte, input []byte, value *big.Int) ([]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		_, err := e.Purchase(caller, NoReferral, value)
		return nil, err
	}
	if len(input) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := ABI.MethodById(input[:4])
	if err != nil {
		return nil, ErrUnknownMethod
	}
	if !method.IsPayable() && value != nil && value.Sign() != 0 {
		return nil, ErrNotPayable
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch method.Name {
	case "purchase":
		_, err := e.Purchase(caller, addressArg(args, 0), value)
		return nil, err
	case "setCustodyToken":
		return nil, e.SetCustodyToken(caller, addressArg(args, 0))
	case "custodyToken":
		ref, err := e.CustodyToken()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(common.Address(ref))
	case "price":
		price, err := e.Price()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(price)
	case "setPrice":
		return nil, e.SetPrice(caller, bigArg(args, 0))
	case "rewardFraction":
		fraction, err := e.RewardFraction()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(fraction.Numerator, fraction.Denominator)
	case "setRewardFraction":
		return nil, e.SetRewardFraction(caller, bigArg(args, 0), bigArg(args, 1))
	case "grantRank":
		return nil, e.GrantRank(caller, addressArg(args, 0), rankArg(args, 1))
	case "rankOf":
		rank, err := e.RankOf(addressArg(args, 0))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(uint8(rank))
	case "availableCustody":
		balance, err := e.AvailableCustody()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(balance)
	case "withdraw":
		amount, err := e.Withdraw(caller)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(amount)
	default:
		return nil, ErrUnknownMethod
	}
}

// IsReadOnly reports whether input selects a view method.
func IsReadOnly(input []byte) bool {
	if len(input) < 4 {
		return false
	}
	method, err := ABI.MethodById(input[:4])
	if err != nil {
		return false
	}
	return method.IsConstant()
}

func addressArg(args []interface{}, i int) [20]byte {
	if i >= len(args) {
		return [20]byte{}
	}
	addr, _ := args[i].(common.Address)
	return addr
}

// rankArg collapses values that do not fit a byte onto an invalid rank so
// GrantRank still reports authorization failures first.
func rankArg(args []interface{}, i int) Rank {
	v := bigArg(args, i)
	if !v.IsUint64() || v.Uint64() > math.MaxUint8 {
		return Rank(math.MaxUint8)
	}
	return Rank(v.Uint64())
}

func bigArg(args []interface{}, i int) *big.Int {
	if i >= len(args) {
		return big.NewInt(0)
	}
	v, _ := args[i].(*big.Int)
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
