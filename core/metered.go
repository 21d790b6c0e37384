package core

import (
	"math/big"

	"sellerchain/core/gas"
	"sellerchain/core/state"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// meteredState charges gas for every state access a contract makes before
// forwarding it to the manager. Snapshots are bookkeeping and stay free.
type meteredState struct {
	*state.Manager
	meter *gas.Meter
}

func newMeteredState(manager *state.Manager, meter *gas.Meter) *meteredState {
	return &meteredState{Manager: manager, meter: meter}
}

func (s *meteredState) read() error  { return s.meter.ChargeRead() }
func (s *meteredState) write() error { return s.meter.ChargeWrite() }

func (s *meteredState) ContractKind(addr [20]byte) (state.ContractKind, error) {
	if err := s.read(); err != nil {
		return state.ContractNone, err
	}
	return s.Manager.ContractKind(addr)
}

func (s *meteredState) SetContractKind(addr [20]byte, kind state.ContractKind) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.SetContractKind(addr, kind)
}

func (s *meteredState) GetAccount(addr []byte) (*types.Account, error) {
	if err := s.read(); err != nil {
		return nil, err
	}
	return s.Manager.GetAccount(addr)
}

func (s *meteredState) PutAccount(addr []byte, account *types.Account) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.PutAccount(addr, account)
}

func (s *meteredState) LockHeld(key []byte) (bool, error) {
	if err := s.read(); err != nil {
		return false, err
	}
	return s.Manager.LockHeld(key)
}

func (s *meteredState) SetLock(key []byte, held bool) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.SetLock(key, held)
}

func (s *meteredState) SellerConfigGet(contract [20]byte) (*seller.Config, bool, error) {
	if err := s.read(); err != nil {
		return nil, false, err
	}
	return s.Manager.SellerConfigGet(contract)
}

func (s *meteredState) SellerConfigPut(contract [20]byte, cfg *seller.Config) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.SellerConfigPut(contract, cfg)
}

func (s *meteredState) SellerRankGet(contract, holder [20]byte) (seller.Rank, bool, error) {
	if err := s.read(); err != nil {
		return seller.RankNone, false, err
	}
	return s.Manager.SellerRankGet(contract, holder)
}

func (s *meteredState) SellerRankPut(contract, holder [20]byte, rank seller.Rank) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.SellerRankPut(contract, holder, rank)
}

func (s *meteredState) SellerRankHolders(contract [20]byte) ([][20]byte, error) {
	if err := s.read(); err != nil {
		return nil, err
	}
	return s.Manager.SellerRankHolders(contract)
}

func (s *meteredState) TokenMetadataGet(addr [20]byte) (*token.Metadata, bool, error) {
	if err := s.read(); err != nil {
		return nil, false, err
	}
	return s.Manager.TokenMetadataGet(addr)
}

func (s *meteredState) TokenMetadataPut(addr [20]byte, meta *token.Metadata) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.TokenMetadataPut(addr, meta)
}

func (s *meteredState) TokenBalanceGet(addr, holder [20]byte) (*big.Int, error) {
	if err := s.read(); err != nil {
		return nil, err
	}
	return s.Manager.TokenBalanceGet(addr, holder)
}

func (s *meteredState) TokenBalancePut(addr, holder [20]byte, amount *big.Int) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Manager.TokenBalancePut(addr, holder, amount)
}
