package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"sellerchain/core/state"
)

// DeployPayload is the RLP body of a deployment transaction. Token fields
// are ignored for seller deployments.
type DeployPayload struct {
	Kind     uint8
	Name     string
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}

// EncodeDeploySeller returns the payload deploying a seller owned by the
// sender.
func EncodeDeploySeller() ([]byte, error) {
	return rlp.EncodeToBytes(&DeployPayload{Kind: uint8(state.ContractSeller), Supply: big.NewInt(0)})
}

// EncodeDeployToken returns the payload deploying a token whose whole supply
// is credited to the sender.
func EncodeDeployToken(name, symbol string, decimals uint8, supply *big.Int) ([]byte, error) {
	if supply == nil {
		supply = big.NewInt(0)
	}
	return rlp.EncodeToBytes(&DeployPayload{
		Kind:     uint8(state.ContractToken),
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		Supply:   supply,
	})
}

// DecodeDeploy parses a deployment payload.
func DecodeDeploy(data []byte) (*DeployPayload, error) {
	payload := new(DeployPayload)
	if err := rlp.DecodeBytes(data, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeployment, err)
	}
	switch state.ContractKind(payload.Kind) {
	case state.ContractSeller, state.ContractToken:
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidDeployment, payload.Kind)
	}
	if payload.Supply == nil {
		payload.Supply = big.NewInt(0)
	}
	return payload, nil
}

// ContractAddress derives the address of a contract deployed by sender at
// the given nonce.
func ContractAddress(sender [20]byte, nonce uint64) [20]byte {
	return ethcrypto.CreateAddress(common.Address(sender), nonce)
}
