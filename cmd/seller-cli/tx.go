package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"sellerchain/cmd/internal/passphrase"
	"sellerchain/core/types"
	"sellerchain/crypto"
	"sellerchain/rpc"
)

const (
	keyPassEnv       = "SELLER_KEY_PASS"
	defaultKeystore  = "./operator.keystore"
	defaultGasLimit  = 500000
	transferGasLimit = 21000
)

// txFlags are the signing options shared by every state-changing command.
type txFlags struct {
	keystore string
	gas      uint64
	gasPrice string
	value    string
}

func bindTxFlags(fs *flag.FlagSet, gasDefault uint64) *txFlags {
	f := &txFlags{}
	fs.StringVar(&f.keystore, "key", defaultKeystore, "Path to the signing keystore")
	fs.Uint64Var(&f.gas, "gas", gasDefault, "Gas limit for the transaction")
	fs.StringVar(&f.gasPrice, "gas-price", "1", "Gas price in wei")
	fs.StringVar(&f.value, "value", "0", "Native value to attach in wei")
	return f
}

func loadSigner(path string) (*crypto.PrivateKey, error) {
	path = strings.TrimSpace(path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found; run seller-cli generate-key first", path)
		}
		return nil, err
	}
	pass, err := passphrase.NewSource(keyPassEnv, "signing keystore").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore %s: %w", path, err)
	}
	return key, nil
}

func parseWei(name, raw string, allowZero bool) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	if !allowZero && amount.Sign() == 0 {
		return nil, fmt.Errorf("%s must be greater than zero", name)
	}
	return amount, nil
}

// submit signs a transaction with the keystore in f and sends it to the
// node. A nil to deploys a contract from data.
func submit(client *rpcClient, f *txFlags, to []byte, data []byte, value *big.Int) (*rpc.ReceiptResult, error) {
	if f.gas == 0 {
		return nil, fmt.Errorf("gas limit must be greater than zero")
	}
	gasPrice, err := parseWei("gas price", f.gasPrice, false)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value, err = parseWei("value", f.value, true)
		if err != nil {
			return nil, err
		}
	}
	key, err := loadSigner(f.keystore)
	if err != nil {
		return nil, err
	}
	info, err := client.chainInfo()
	if err != nil {
		return nil, fmt.Errorf("fetch chain info: %w", err)
	}
	sender := key.PubKey().Address()
	account, err := client.account(hexOf(sender.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	tx := &types.Transaction{
		ChainID:  info.ChainID,
		Nonce:    account.Nonce,
		To:       to,
		Value:    value,
		Data:     data,
		GasLimit: f.gas,
		GasPrice: gasPrice,
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	var receipt rpc.ReceiptResult
	if err := client.call("seller_sendTransaction", []interface{}{tx}, &receipt, true); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// reportReceipt prints the receipt and maps a failed execution onto a
// non-zero exit code.
func reportReceipt(receipt *rpc.ReceiptResult) int {
	out, _ := json.MarshalIndent(receipt, "", "  ")
	fmt.Println(string(out))
	if receipt.Status != types.ReceiptStatusSuccess {
		fmt.Fprintf(os.Stderr, "Error: transaction failed: %s\n", receipt.ErrorCode)
		return 1
	}
	return 0
}
