package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTransactionSignRecoversSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		ChainID:  7,
		Nonce:    3,
		To:       []byte{0x01},
		Value:    big.NewInt(100),
		GasLimit: 21000,
		GasPrice: big.NewInt(1),
	}
	require.NoError(t, tx.Sign(key))

	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Bytes(), from)
}

func TestTransactionTamperingChangesSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{ChainID: 1, Value: big.NewInt(1), GasLimit: 21000, GasPrice: big.NewInt(1)}
	require.NoError(t, tx.Sign(key))

	tampered := &Transaction{
		ChainID:  tx.ChainID,
		Value:    big.NewInt(2),
		GasLimit: tx.GasLimit,
		GasPrice: tx.GasPrice,
		R:        tx.R,
		S:        tx.S,
		V:        tx.V,
	}
	from, err := tampered.From()
	if err == nil {
		require.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey).Bytes(), from)
	}
}

func TestUnsignedTransactionHasNoSender(t *testing.T) {
	tx := &Transaction{}
	_, err := tx.From()
	require.Error(t, err)
	require.True(t, tx.IsDeployment())
}

func TestSignedTransactionSurvivesJSON(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{ChainID: 7, Nonce: 1, To: []byte{0x02}, Value: big.NewInt(5), GasLimit: 21000, GasPrice: big.NewInt(1)}
	require.NoError(t, tx.Sign(key))

	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	var decoded Transaction
	require.NoError(t, json.Unmarshal(raw, &decoded))

	from, err := decoded.From()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Bytes(), from)
}

func TestIDCommitsToSignature(t *testing.T) {
	alice, err := crypto.GenerateKey()
	require.NoError(t, err)
	bob, err := crypto.GenerateKey()
	require.NoError(t, err)

	build := func() *Transaction {
		return &Transaction{ChainID: 7, To: []byte{0x05}, Value: big.NewInt(10), GasLimit: 500_000, GasPrice: big.NewInt(1)}
	}
	fromAlice, fromBob := build(), build()
	require.NoError(t, fromAlice.Sign(alice))
	require.NoError(t, fromBob.Sign(bob))

	signingA, err := fromAlice.Hash()
	require.NoError(t, err)
	signingB, err := fromBob.Hash()
	require.NoError(t, err)
	require.Equal(t, signingA, signingB)

	idA, err := fromAlice.ID()
	require.NoError(t, err)
	idB, err := fromBob.ID()
	require.NoError(t, err)
	require.Len(t, idA, 32)
	require.NotEqual(t, idA, idB)

	again, err := fromAlice.ID()
	require.NoError(t, err)
	require.Equal(t, idA, again)

	_, err = build().ID()
	require.Error(t, err)
}
