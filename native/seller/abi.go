package seller

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABIJSON describes the call surface of a seller contract. A call with empty
// input is an implicit purchase with no referral.
const ABIJSON = `[
 {"type":"function","name":"purchase","stateMutability":"payable","inputs":[{"name":"referral","type":"address"}],"outputs":[]},
 {"type":"function","name":"setCustodyToken","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[]},
 {"type":"function","name":"custodyToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"price","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"setPrice","stateMutability":"nonpayable","inputs":[{"name":"price","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"rewardFraction","stateMutability":"view","inputs":[],"outputs":[{"name":"numerator","type":"uint256"},{"name":"denominator","type":"uint256"}]},
 {"type":"function","name":"setRewardFraction","stateMutability":"nonpayable","inputs":[{"name":"numerator","type":"uint256"},{"name":"denominator","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"grantRank","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"rank","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"rankOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"availableCustody","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"amount","type":"uint256"}]}
]`

// ABI is the parsed seller call surface.
var ABI = mustParseABI(ABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
