package state

import (
	"fmt"
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"sellerchain/core/types"
)

func accountStateKey(addr []byte) []byte {
	return ethcrypto.Keccak256(addr)
}

// GetAccount loads the native account stored under addr. Unknown accounts are
// returned with a zero balance and nonce.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("address must not be empty")
	}
	data, err := m.trie.Get(accountStateKey(addr))
	if err != nil {
		return nil, err
	}
	account := types.EnsureAccount(nil)
	if len(data) == 0 {
		return account, nil
	}
	stateAcc := new(gethtypes.StateAccount)
	if err := rlp.DecodeBytes(data, stateAcc); err != nil {
		return nil, err
	}
	account.Nonce = stateAcc.Nonce
	if stateAcc.Balance != nil {
		account.Balance = stateAcc.Balance.ToBig()
	}
	return account, nil
}

// PutAccount persists the provided account under addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("nil account")
	}
	account = types.EnsureAccount(account)
	if account.Balance.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	balance, overflow := uint256.FromBig(account.Balance)
	if overflow {
		return fmt.Errorf("balance overflow")
	}
	stateAcc := &gethtypes.StateAccount{
		Nonce:    account.Nonce,
		Balance:  balance,
		Root:     gethtypes.EmptyRootHash,
		CodeHash: gethtypes.EmptyCodeHash.Bytes(),
	}
	encoded, err := rlp.EncodeToBytes(stateAcc)
	if err != nil {
		return err
	}
	return m.trie.Update(accountStateKey(addr), encoded)
}

// AddBalance credits (or, with a negative delta, debits) addr's native
// balance.
func (m *Manager) AddBalance(addr []byte, delta *big.Int) error {
	acc, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(acc.Balance, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("insufficient balance")
	}
	acc.Balance = next
	return m.PutAccount(addr, acc)
}
