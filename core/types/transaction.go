package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

var errUnsigned = errors.New("transaction: missing signature")

// Transaction is a signed request to move native currency, call a contract or
// deploy one. A nil To denotes a deployment whose payload is carried in Data.
type Transaction struct {
	ChainID  uint64   `json:"chainId"`
	Nonce    uint64   `json:"nonce"`
	To       []byte   `json:"to"`
	Value    *big.Int `json:"value"`
	Data     []byte   `json:"data"`
	GasLimit uint64   `json:"gasLimit"` // The maximum gas the sender is willing to pay for
	GasPrice *big.Int `json:"gasPrice"` // The price per unit of gas

	// Signature
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// Hash returns the signing hash over every field except the signature.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		ChainID  uint64
		Nonce    uint64
		To       []byte
		Value    *big.Int
		Data     []byte
		GasLimit uint64
		GasPrice *big.Int
	}{tx.ChainID, tx.Nonce, tx.To, tx.Value, tx.Data, tx.GasLimit, tx.GasPrice}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// ID identifies a signed transaction. Unlike Hash it commits to the
// signature, so identical payloads from different senders never collide. It
// keys receipts, the RPC duplicate window and the index.
func (tx *Transaction) ID() ([]byte, error) {
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errUnsigned
	}
	signed := struct {
		ChainID  uint64
		Nonce    uint64
		To       []byte
		Value    *big.Int
		Data     []byte
		GasLimit uint64
		GasPrice *big.Int
		R, S, V  *big.Int
	}{tx.ChainID, tx.Nonce, tx.To, tx.Value, tx.Data, tx.GasLimit, tx.GasPrice, tx.R, tx.S, tx.V}

	b, err := json.Marshal(signed)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(b), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errUnsigned
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || tx.V.Uint64() < 27 {
		return nil, errors.New("transaction: malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// IsDeployment reports whether the transaction creates a contract.
func (tx *Transaction) IsDeployment() bool {
	return len(tx.To) == 0
}
