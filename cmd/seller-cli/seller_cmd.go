package main

import (
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"sellerchain/core"
	"sellerchain/crypto"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// txCommand describes one state-changing subcommand: its usage line, the
// number of positional arguments and how to turn them into a destination and
// calldata.
type txCommand struct {
	usage string
	args  int
	gas   uint64
	build func(args []string) (to []byte, data []byte, err error)
}

var txCommands = map[string]txCommand{
	"deploy-seller": {
		usage: "deploy-seller [tx flags]",
		gas:   defaultGasLimit,
		build: func([]string) ([]byte, []byte, error) {
			data, err := core.EncodeDeploySeller()
			return nil, data, err
		},
	},
	"deploy-token": {
		usage: "deploy-token [tx flags] <name> <symbol> <decimals> <supply>",
		args:  4,
		gas:   defaultGasLimit,
		build: buildDeployToken,
	},
	"purchase": {
		usage: "purchase [tx flags] --value <wei> <seller> [referrer]",
		args:  -1,
		gas:   defaultGasLimit,
		build: buildPurchase,
	},
	"set-price": {
		usage: "set-price [tx flags] <seller> <wei_per_token>",
		args:  2,
		gas:   defaultGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			price, err := parseWei("price", args[1], true)
			if err != nil {
				return nil, nil, err
			}
			return sellerCall(args[0], "setPrice", price)
		},
	},
	"set-reward": {
		usage: "set-reward [tx flags] <seller> <numerator> <denominator>",
		args:  3,
		gas:   defaultGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			num, err := parseWei("numerator", args[1], true)
			if err != nil {
				return nil, nil, err
			}
			den, err := parseWei("denominator", args[2], false)
			if err != nil {
				return nil, nil, err
			}
			return sellerCall(args[0], "setRewardFraction", num, den)
		},
	},
	"set-custody": {
		usage: "set-custody [tx flags] <seller> <token>",
		args:  2,
		gas:   defaultGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			tokenAddr, err := crypto.ParseAddress(args[1])
			if err != nil {
				return nil, nil, fmt.Errorf("token: %w", err)
			}
			return sellerCall(args[0], "setCustodyToken", common.Address(tokenAddr))
		},
	},
	"grant-rank": {
		usage: "grant-rank [tx flags] <seller> <account> <none|set_price|withdraw|full|0-3>",
		args:  3,
		gas:   defaultGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			account, err := crypto.ParseAddress(args[1])
			if err != nil {
				return nil, nil, fmt.Errorf("account: %w", err)
			}
			rank, err := parseRank(args[2])
			if err != nil {
				return nil, nil, err
			}
			return sellerCall(args[0], "grantRank", common.Address(account), new(big.Int).SetUint64(uint64(rank)))
		},
	},
	"withdraw": {
		usage: "withdraw [tx flags] <seller>",
		args:  1,
		gas:   defaultGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			return sellerCall(args[0], "withdraw")
		},
	},
	"transfer": {
		usage: "transfer [tx flags] <token> <recipient> <amount>",
		args:  3,
		gas:   defaultGasLimit,
		build: buildTokenTransfer,
	},
	"send": {
		usage: "send [tx flags] --value <wei> <recipient>",
		args:  1,
		gas:   transferGasLimit,
		build: func(args []string) ([]byte, []byte, error) {
			to, err := crypto.ParseAddress(args[0])
			if err != nil {
				return nil, nil, fmt.Errorf("recipient: %w", err)
			}
			return to[:], nil, nil
		},
	},
}

func runTxCommand(client *rpcClient, name string, args []string) int {
	cmd, ok := txCommands[name]
	if !ok {
		return -1
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := bindTxFlags(fs, cmd.gas)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Println("Usage: seller-cli " + cmd.usage)
		return 1
	}
	positional := fs.Args()
	switch {
	case cmd.args >= 0 && len(positional) != cmd.args,
		cmd.args < 0 && (len(positional) < 1 || len(positional) > 2):
		fmt.Println("Usage: seller-cli " + cmd.usage)
		return 1
	}

	to, data, err := cmd.build(positional)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	receipt, err := submit(client, f, to, data, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return reportReceipt(receipt)
}

func buildDeployToken(args []string) ([]byte, []byte, error) {
	decimals, err := strconv.ParseUint(strings.TrimSpace(args[2]), 10, 8)
	if err != nil {
		return nil, nil, fmt.Errorf("decimals must be between 0 and 255")
	}
	supply, err := parseWei("supply", args[3], true)
	if err != nil {
		return nil, nil, err
	}
	data, err := core.EncodeDeployToken(args[0], args[1], uint8(decimals), supply)
	return nil, data, err
}

// buildPurchase encodes an explicit purchase. Without a referrer the call
// names the zero address, which the seller treats as no referral.
func buildPurchase(args []string) ([]byte, []byte, error) {
	referral := seller.NoReferral
	if len(args) > 1 {
		parsed, err := crypto.ParseAddress(args[1])
		if err != nil {
			return nil, nil, fmt.Errorf("referrer: %w", err)
		}
		referral = parsed
	}
	return sellerCall(args[0], "purchase", common.Address(referral))
}

func buildTokenTransfer(args []string) ([]byte, []byte, error) {
	tokenAddr, err := crypto.ParseAddress(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("token: %w", err)
	}
	recipient, err := crypto.ParseAddress(args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("recipient: %w", err)
	}
	amount, err := parseWei("amount", args[2], true)
	if err != nil {
		return nil, nil, err
	}
	data, err := token.ABI.Pack("transfer", common.Address(recipient), amount)
	if err != nil {
		return nil, nil, err
	}
	return tokenAddr[:], data, nil
}

func sellerCall(sellerArg, method string, args ...interface{}) ([]byte, []byte, error) {
	addr, err := crypto.ParseAddress(sellerArg)
	if err != nil {
		return nil, nil, fmt.Errorf("seller: %w", err)
	}
	data, err := seller.ABI.Pack(method, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return addr[:], data, nil
}

func parseRank(raw string) (seller.Rank, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for r := seller.RankNone; r <= seller.RankFull; r++ {
		if trimmed == r.String() {
			return r, nil
		}
	}
	v, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return seller.RankNone, fmt.Errorf("unknown rank %q", raw)
	}
	return seller.ParseRank(v)
}
