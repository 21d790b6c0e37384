package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"sellerchain/indexer"
)

// PurchasesJSONL builds a JSON Lines export for the supplied purchases and
// returns the serialised payload alongside a checksum.
func PurchasesJSONL(purchases []indexer.Purchase) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, p := range purchases {
		payload := map[string]interface{}{
			"height":      p.Height,
			"txHash":      p.TxHash,
			"seller":      p.Seller,
			"buyer":       p.Buyer,
			"payment":     orZero(p.Payment),
			"tokens":      orZero(p.Tokens),
			"bonus":       orZero(p.Bonus),
			"remainder":   orZero(p.Remainder),
			"referralHit": p.ReferralHit,
			"indexedAt":   indexedAt(p.CreatedAt),
		}
		if p.Referrer != "" {
			payload["referrer"] = p.Referrer
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
