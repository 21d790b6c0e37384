package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strconv"
	"time"

	"sellerchain/indexer"
)

var purchaseHeader = []string{"height", "tx_hash", "seller", "buyer", "referrer", "payment", "tokens", "bonus", "remainder", "referral_hit", "indexed_at"}

// PurchasesCSV builds a CSV export for the supplied purchases and returns the
// serialised data alongside a SHA-256 checksum of the payload.
func PurchasesCSV(purchases []indexer.Purchase) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(purchaseHeader); err != nil {
		return nil, "", err
	}
	for _, p := range purchases {
		record := []string{
			strconv.FormatUint(p.Height, 10),
			p.TxHash,
			p.Seller,
			p.Buyer,
			p.Referrer,
			orZero(p.Payment),
			orZero(p.Tokens),
			orZero(p.Bonus),
			orZero(p.Remainder),
			strconv.FormatBool(p.ReferralHit),
			indexedAt(p.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

func orZero(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}

func indexedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
