package events

import (
	"encoding/hex"
	"math/big"

	"sellerchain/core/types"
)

// TypeTransfer is emitted for native currency balance movements.
const TypeTransfer = "transfer.native"

// Transfer records native value moving between accounts, either a plain value
// transfer or the payment leg of a purchase.
type Transfer struct {
	Asset  string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
	TxHash [32]byte
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   hexAddress(e.From),
		"to":     hexAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	if e.TxHash != ([32]byte{}) {
		attrs["txHash"] = "0x" + hex.EncodeToString(e.TxHash[:])
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
