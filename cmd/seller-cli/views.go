package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"sellerchain/crypto"
	"sellerchain/native/seller"
	"sellerchain/rpc"
)

func hexOf(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func parseAddressArg(name, raw string) (common.Address, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return common.Address(addr), nil
}

func printJSON(v interface{}) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// runView handles the read-only commands. It returns -1 for names it does
// not own.
func runView(client *rpcClient, name string, args []string) int {
	var (
		method string
		params []interface{}
		result interface{}
	)
	switch name {
	case "chain-info":
		method, result = "seller_chainInfo", &rpc.ChainInfoResult{}
	case "account":
		if len(args) != 1 {
			fmt.Println("Usage: seller-cli account <address>")
			return 1
		}
		method, params, result = "seller_getAccount", []interface{}{args[0]}, &rpc.AccountResult{}
	case "seller":
		if len(args) != 1 {
			fmt.Println("Usage: seller-cli seller <seller>")
			return 1
		}
		method, params, result = "seller_getSeller", []interface{}{args[0]}, &rpc.SellerResult{}
	case "token":
		if len(args) != 1 {
			fmt.Println("Usage: seller-cli token <token>")
			return 1
		}
		method, params, result = "seller_getToken", []interface{}{args[0]}, &rpc.TokenResult{}
	case "balance":
		if len(args) != 2 {
			fmt.Println("Usage: seller-cli balance <token> <holder>")
			return 1
		}
		method, params, result = "seller_getTokenBalance", []interface{}{args[0], args[1]}, &rpc.TokenBalanceResult{}
	case "receipt":
		if len(args) != 1 {
			fmt.Println("Usage: seller-cli receipt <tx_hash>")
			return 1
		}
		method, params, result = "seller_getReceipt", []interface{}{args[0]}, &rpc.ReceiptResult{}
	case "rank":
		if len(args) != 2 {
			fmt.Println("Usage: seller-cli rank <seller> <account>")
			return 1
		}
		return printRank(client, args[0], args[1])
	default:
		return -1
	}
	if err := client.call(method, params, result, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return printJSON(result)
}

// printRank reads a single rank through the seller's rankOf entry point.
func printRank(client *rpcClient, sellerArg, accountArg string) int {
	account, err := parseAddressArg("account", accountArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	to, data, err := sellerCall(sellerArg, "rankOf", account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	var res rpc.CallResult
	err = client.call("seller_call", []interface{}{rpc.CallArgs{To: hexOf(to), Data: hexOf(data)}}, &res, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if res.ErrorCode != "" {
		fmt.Fprintf(os.Stderr, "Error: call failed: %s\n", res.ErrorCode)
		return 1
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(res.Return, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: decode return: %v\n", err)
		return 1
	}
	values, err := seller.ABI.Unpack("rankOf", raw)
	if err != nil || len(values) != 1 {
		fmt.Fprintf(os.Stderr, "Error: decode rank: %v\n", err)
		return 1
	}
	rank, ok := values[0].(uint8)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unexpected rank type %T\n", values[0])
		return 1
	}
	fmt.Println(seller.Rank(rank).String())
	return 0
}
