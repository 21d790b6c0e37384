package state

import (
	"fmt"

	"sellerchain/native/seller"
)

var (
	sellerConfigPrefix  = []byte("seller/config/")
	sellerRankPrefix    = []byte("seller/rank/")
	sellerHoldersPrefix = []byte("seller/holders/")
)

func sellerConfigKey(contract [20]byte) []byte {
	return append(append([]byte(nil), sellerConfigPrefix...), contract[:]...)
}

func sellerRankKey(contract, holder [20]byte) []byte {
	buf := append(append([]byte(nil), sellerRankPrefix...), contract[:]...)
	return append(buf, holder[:]...)
}

func sellerHoldersKey(contract [20]byte) []byte {
	return append(append([]byte(nil), sellerHoldersPrefix...), contract[:]...)
}

// SellerConfigGet loads the configuration of the seller at contract. A missing
// record returns (nil, false, nil).
func (m *Manager) SellerConfigGet(contract [20]byte) (*seller.Config, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("seller: state manager not initialised")
	}
	var stored seller.Config
	ok, err := m.KVGet(sellerConfigKey(contract), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stored, true, nil
}

// SellerConfigPut persists the seller configuration as a single record.
func (m *Manager) SellerConfigPut(contract [20]byte, cfg *seller.Config) error {
	if m == nil {
		return fmt.Errorf("seller: state manager not initialised")
	}
	if cfg == nil {
		return fmt.Errorf("seller: config required")
	}
	return m.KVPut(sellerConfigKey(contract), cfg.Clone())
}

// SellerRankGet returns the rank holder holds on contract and whether an entry
// exists.
func (m *Manager) SellerRankGet(contract, holder [20]byte) (seller.Rank, bool, error) {
	if m == nil {
		return seller.RankNone, false, fmt.Errorf("seller: state manager not initialised")
	}
	var raw uint8
	ok, err := m.KVGet(sellerRankKey(contract, holder), &raw)
	if err != nil || !ok {
		return seller.RankNone, ok, err
	}
	return seller.Rank(raw), true, nil
}

// SellerRankPut stores holder's rank. Entries are never deleted, a demoted
// account keeps a RankNone entry.
func (m *Manager) SellerRankPut(contract, holder [20]byte, rank seller.Rank) error {
	if m == nil {
		return fmt.Errorf("seller: state manager not initialised")
	}
	if err := m.KVPut(sellerRankKey(contract, holder), uint8(rank)); err != nil {
		return err
	}
	return m.KVAppend(sellerHoldersKey(contract), holder[:])
}

// SellerRankHolders lists every account that was ever assigned a rank on
// contract.
func (m *Manager) SellerRankHolders(contract [20]byte) ([][20]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("seller: state manager not initialised")
	}
	var raw [][]byte
	if err := m.KVGetList(sellerHoldersKey(contract), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		var holder [20]byte
		copy(holder[:], entry)
		out = append(out, holder)
	}
	return out, nil
}
