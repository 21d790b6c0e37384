package main

import (
	"fmt"
	"os"
	"strings"
)

const (
	rpcURLEnv   = "SELLER_RPC_URL"
	rpcTokenEnv = "SELLER_RPC_TOKEN"
)

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://127.0.0.1:8645"
}

// globalOptions are accepted before or after the command name.
type globalOptions struct {
	rpc   string
	token string
}

func applyGlobalFlags(args []string, opts *globalOptions) ([]string, error) {
	targets := map[string]*string{"rpc": &opts.rpc, "token": &opts.token}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		target, ok := targets[name]
		if !ok || !strings.HasPrefix(arg, "--") {
			out = append(out, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			i++
			value = args[i]
		}
		*target = value
	}
	return out, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := &globalOptions{rpc: defaultRPCEndpoint(), token: os.Getenv(rpcTokenEnv)}
	args, err := applyGlobalFlags(args, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage()
		return 1
	}

	command, rest := args[0], args[1:]
	switch command {
	case "generate-key":
		return runGenerateKey(rest)
	case "issue-token":
		return runIssueToken(rest)
	case "export":
		return runExport(rest)
	case "totals":
		return runTotals(rest)
	case "help", "-h", "--help":
		printUsage()
		return 0
	}

	client := newRPCClient(opts.rpc, opts.token)
	if code := runTxCommand(client, command, rest); code >= 0 {
		return code
	}
	if code := runView(client, command, rest); code >= 0 {
		return code
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
	printUsage()
	return 1
}

func printUsage() {
	fmt.Println("Usage: seller-cli [--rpc <url>] [--token <jwt>] <command> [arguments]")
	fmt.Println()
	fmt.Println("Transactions (flags: --key <keystore> --gas <limit> --gas-price <wei> --value <wei>):")
	fmt.Println("  deploy-seller                                 - Deploys a seller owned by the signer")
	fmt.Println("  deploy-token <name> <symbol> <decimals> <supply> - Deploys a custody token")
	fmt.Println("  purchase <seller> [referrer]                  - Buys tokens with --value wei")
	fmt.Println("  set-price <seller> <wei_per_token>            - Sets the token price")
	fmt.Println("  set-reward <seller> <numerator> <denominator> - Sets the referral reward fraction")
	fmt.Println("  set-custody <seller> <token>                  - Points the seller at a custody token")
	fmt.Println("  grant-rank <seller> <account> <rank>          - Grants none, set_price, withdraw or full")
	fmt.Println("  withdraw <seller>                             - Sweeps the seller's native balance to the signer")
	fmt.Println("  transfer <token> <recipient> <amount>         - Transfers custody tokens")
	fmt.Println("  send <recipient>                              - Sends --value wei of native currency")
	fmt.Println()
	fmt.Println("Queries:")
	fmt.Println("  chain-info | account <addr> | seller <seller> | token <token>")
	fmt.Println("  balance <token> <holder> | receipt <tx_hash> | rank <seller> <account>")
	fmt.Println()
	fmt.Println("Operator:")
	fmt.Println("  generate-key [--out <path>] [--light]          - Creates an encrypted signing keystore")
	fmt.Println("  issue-token [--config <path>] [--ttl <dur>]    - Mints an RPC bearer token")
	fmt.Println("  export [--format csv|jsonl|parquet] [--out <file>] - Exports indexed purchases")
	fmt.Println("  totals <seller>                               - Sums indexed purchases and withdrawals")
	fmt.Println()
	fmt.Printf("Environment: %s, %s, %s\n", rpcURLEnv, rpcTokenEnv, keyPassEnv)
}
