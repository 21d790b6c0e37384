package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"sellerchain/core"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// ChainInfoResult describes the node's head.
type ChainInfoResult struct {
	ChainID uint64 `json:"chainId"`
	Height  uint64 `json:"height"`
	Root    string `json:"root"`
}

// AccountResult is the native account of an address.
type AccountResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
	Kind    string `json:"kind"`
}

// TokenResult is the metadata of a custody token ledger.
type TokenResult struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// TokenBalanceResult is one holder's balance on a token.
type TokenBalanceResult struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

// SellerResult is every readable attribute of a seller contract.
type SellerResult struct {
	Address           string            `json:"address"`
	CustodyToken      string            `json:"custodyToken"`
	Price             string            `json:"price"`
	RewardNumerator   string            `json:"rewardNumerator"`
	RewardDenominator string            `json:"rewardDenominator"`
	NativeBalance     string            `json:"nativeBalance"`
	CustodyBalance    string            `json:"custodyBalance"`
	Ranks             map[string]string `json:"ranks"`
}

// ReceiptResult reflects the outcome of an executed transaction.
type ReceiptResult struct {
	TransactionHash string        `json:"transactionHash"`
	BlockNumber     uint64        `json:"blockNumber"`
	From            string        `json:"from"`
	To              string        `json:"to,omitempty"`
	ContractAddress string        `json:"contractAddress,omitempty"`
	Status          uint8         `json:"status"`
	GasUsed         uint64        `json:"gasUsed"`
	Fee             string        `json:"fee"`
	ErrorCode       string        `json:"errorCode,omitempty"`
	Error           string        `json:"error,omitempty"`
	Return          string        `json:"return,omitempty"`
	Events          []types.Event `json:"events"`
}

// CallArgs are the parameters of seller_call.
type CallArgs struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
	Gas   uint64 `json:"gas"`
}

// CallResult is the outcome of a read-only call.
type CallResult struct {
	Return    string `json:"return"`
	GasUsed   uint64 `json:"gasUsed"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

func hexAddr(addr []byte) string {
	if len(addr) == 0 {
		return ""
	}
	return common.BytesToAddress(addr).Hex()
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}

func decodeHex(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return nil, nil
	}
	out, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return out, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 0)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}

func receiptResult(r *types.Receipt) *ReceiptResult {
	events := r.Events
	if events == nil {
		events = []types.Event{}
	}
	return &ReceiptResult{
		TransactionHash: hexBytes(r.TxHash),
		BlockNumber:     r.BlockNumber,
		From:            hexAddr(r.From),
		To:              hexAddr(r.To),
		ContractAddress: hexAddr(r.ContractAddress),
		Status:          r.Status,
		GasUsed:         r.GasUsed,
		Fee:             r.Fee,
		ErrorCode:       r.ErrorCode,
		Error:           r.Error,
		Return:          hexBytes(r.Return),
		Events:          events,
	}
}

func sellerResult(summary *seller.Summary) *SellerResult {
	ranks := make(map[string]string, len(summary.Ranks))
	for addr, rank := range summary.Ranks {
		ranks[common.Address(addr).Hex()] = rank.String()
	}
	return &SellerResult{
		Address:           common.Address(summary.Address).Hex(),
		CustodyToken:      common.Address(summary.CustodyToken).Hex(),
		Price:             amountString(summary.Price),
		RewardNumerator:   amountString(summary.Reward.Numerator),
		RewardDenominator: amountString(summary.Reward.Denominator),
		NativeBalance:     amountString(summary.NativeBalance),
		CustodyBalance:    amountString(summary.CustodyBalance),
		Ranks:             ranks,
	}
}

func tokenResult(addr [20]byte, meta *token.Metadata) *TokenResult {
	return &TokenResult{
		Address:     common.Address(addr).Hex(),
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Decimals:    meta.Decimals,
		TotalSupply: amountString(meta.TotalSupply),
	}
}

func callResult(res *core.CallResult) *CallResult {
	out := &CallResult{Return: hexBytes(res.Return), GasUsed: res.GasUsed, ErrorCode: res.ErrorCode}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
