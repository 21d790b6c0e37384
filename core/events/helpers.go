package events

import (
	"encoding/hex"
	"math/big"
	"strings"
)

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func hexAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
