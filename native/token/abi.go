package token

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABIJSON is the token call surface, a subset of ERC-20.
const ABIJSON = `[
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ABI is the parsed token call surface.
var ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Dispatch decodes an ABI call against the token and executes it on behalf of
// caller. Tokens never accept native value. Unlike Binding, a transfer
// exceeding the caller's balance fails the call.
func (l *Ledger) Dispatch(caller [20]byte, input []byte, value *big.Int) ([]byte, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if value != nil && value.Sign() != 0 {
		return nil, ErrNotPayable
	}
	if len(input) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := ABI.MethodById(input[:4])
	if err != nil {
		return nil, ErrUnknownMethod
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch method.Name {
	case "name", "symbol", "decimals", "totalSupply":
		meta, err := l.Metadata()
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "name":
			return method.Outputs.Pack(meta.Name)
		case "symbol":
			return method.Outputs.Pack(meta.Symbol)
		case "decimals":
			return method.Outputs.Pack(meta.Decimals)
		default:
			return method.Outputs.Pack(meta.TotalSupply)
		}
	case "balanceOf":
		holder, _ := args[0].(common.Address)
		balance, err := l.BalanceOf(holder)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(balance.ToBig())
	case "transfer":
		to, _ := args[0].(common.Address)
		raw, _ := args[1].(*big.Int)
		amount, err := toUint256(raw)
		if err != nil {
			return nil, err
		}
		if err := l.Transfer(caller, to, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
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
	return err == nil && method.IsConstant()
}
