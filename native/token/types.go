package token

import (
	"encoding/hex"
	"math/big"
)

// Metadata describes a deployed fungible token.
type Metadata struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	clone.TotalSupply = new(big.Int)
	if m.TotalSupply != nil {
		clone.TotalSupply.Set(m.TotalSupply)
	}
	return &clone
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
