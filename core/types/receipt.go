package types

// Receipt status values.
const (
	ReceiptStatusFailed  uint8 = 0
	ReceiptStatusSuccess uint8 = 1
)

// Receipt reflects the outcome of an executed transaction. Failed receipts
// carry the error code and no events; their state changes were rolled back
// apart from nonce and fee accounting.
type Receipt struct {
	TxHash          []byte  `json:"txHash"`
	BlockNumber     uint64  `json:"blockNumber"`
	From            []byte  `json:"from"`
	To              []byte  `json:"to,omitempty"`
	ContractAddress []byte  `json:"contractAddress,omitempty"`
	Status          uint8   `json:"status"`
	GasUsed         uint64  `json:"gasUsed"`
	Fee             string  `json:"fee"`
	ErrorCode       string  `json:"errorCode,omitempty"`
	Error           string  `json:"error,omitempty"`
	Return          []byte  `json:"return,omitempty"`
	Events          []Event `json:"events"`
}

// Succeeded reports whether the transaction executed without error.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccess
}
