package state

import (
	"fmt"
	"math/big"

	"sellerchain/native/token"
)

var (
	tokenMetaPrefix    = []byte("token/meta/")
	tokenBalancePrefix = []byte("token/balance/")
)

func tokenMetaKey(addr [20]byte) []byte {
	return append(append([]byte(nil), tokenMetaPrefix...), addr[:]...)
}

func tokenBalanceKey(addr, holder [20]byte) []byte {
	buf := append(append([]byte(nil), tokenBalancePrefix...), addr[:]...)
	return append(buf, holder[:]...)
}

// TokenMetadataGet loads the metadata of the token deployed at addr.
func (m *Manager) TokenMetadataGet(addr [20]byte) (*token.Metadata, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("token: state manager not initialised")
	}
	var stored token.Metadata
	ok, err := m.KVGet(tokenMetaKey(addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stored, true, nil
}

// TokenMetadataPut persists the token metadata.
func (m *Manager) TokenMetadataPut(addr [20]byte, meta *token.Metadata) error {
	if m == nil {
		return fmt.Errorf("token: state manager not initialised")
	}
	if meta == nil {
		return fmt.Errorf("token: metadata required")
	}
	return m.KVPut(tokenMetaKey(addr), meta.Clone())
}

// TokenBalanceGet returns holder's balance of the token at addr, zero when
// unset.
func (m *Manager) TokenBalanceGet(addr, holder [20]byte) (*big.Int, error) {
	if m == nil {
		return nil, fmt.Errorf("token: state manager not initialised")
	}
	amount := new(big.Int)
	ok, err := m.KVGet(tokenBalanceKey(addr, holder), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// TokenBalancePut stores holder's balance. Zero balances are removed.
func (m *Manager) TokenBalancePut(addr, holder [20]byte, amount *big.Int) error {
	if m == nil {
		return fmt.Errorf("token: state manager not initialised")
	}
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(tokenBalanceKey(addr, holder))
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("token: negative balance not allowed")
	}
	return m.KVPut(tokenBalanceKey(addr, holder), amount)
}
