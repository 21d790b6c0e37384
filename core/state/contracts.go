package state

import (
	"fmt"
)

// ContractKind identifies which native module serves an address.
type ContractKind uint8

const (
	ContractNone ContractKind = iota
	ContractSeller
	ContractToken
)

func (k ContractKind) String() string {
	switch k {
	case ContractSeller:
		return "seller"
	case ContractToken:
		return "token"
	default:
		return "none"
	}
}

var contractIndexKey = []byte("contracts/index")

func contractKindKey(addr [20]byte) []byte {
	return append([]byte("contracts/kind/"), addr[:]...)
}

// ContractKind returns the kind of contract deployed at addr, ContractNone for
// plain accounts.
func (m *Manager) ContractKind(addr [20]byte) (ContractKind, error) {
	var raw uint8
	ok, err := m.KVGet(contractKindKey(addr), &raw)
	if err != nil || !ok {
		return ContractNone, err
	}
	return ContractKind(raw), nil
}

// SetContractKind registers addr as a contract of the given kind. A contract
// cannot be re-registered.
func (m *Manager) SetContractKind(addr [20]byte, kind ContractKind) error {
	if kind == ContractNone {
		return fmt.Errorf("contracts: kind required")
	}
	existing, err := m.ContractKind(addr)
	if err != nil {
		return err
	}
	if existing != ContractNone {
		return fmt.Errorf("contracts: %x already registered as %s", addr, existing)
	}
	if err := m.KVPut(contractKindKey(addr), uint8(kind)); err != nil {
		return err
	}
	return m.KVAppend(contractIndexKey, addr[:])
}

// Contracts lists every registered contract address in deployment order.
func (m *Manager) Contracts() ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(contractIndexKey, &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}
