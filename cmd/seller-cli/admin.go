package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sellerchain/cmd/internal/passphrase"
	"sellerchain/config"
	"sellerchain/crypto"
	"sellerchain/rpc"
)

func runGenerateKey(args []string) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("out", defaultKeystore, "Path of the keystore to create")
	light := fs.Bool("light", false, "Use light scrypt parameters (development only)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Println("Usage: seller-cli generate-key [--out <path>] [--light]")
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists; refusing to overwrite\n", *out)
		return 1
	}
	pass, err := passphrase.NewSource(keyPassEnv, "new keystore").Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	strength := crypto.ScryptStandard
	if *light {
		strength = crypto.ScryptLight
	}
	if err := crypto.SaveToKeystore(*out, key, pass, strength); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	addr := key.PubKey().Address()
	fmt.Printf("Keystore written to %s\n", *out)
	fmt.Printf("Address: %s (%s)\n", hexOf(addr.Bytes()), addr.String())
	return 0
}

// runIssueToken mints a bearer token for seller_sendTransaction using the
// secret in the node's configuration file.
func runIssueToken(args []string) int {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "./config.toml", "Path to the node configuration file")
	subject := fs.String("subject", "seller-cli", "Subject claim of the token")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Println("Usage: seller-cli issue-token [--config <path>] [--subject <sub>] [--ttl <duration>]")
		return 1
	}
	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "Error: ttl must be positive")
		return 1
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return 1
	}
	secret := strings.TrimSpace(cfg.JWTSecretValue())
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Error: the configuration has no RPC JWT secret")
		return 1
	}
	token, err := rpc.IssueToken(secret, cfg.RPC.JWTIssuer, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}
