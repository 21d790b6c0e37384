package state

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"sellerchain/native/seller"
	"sellerchain/native/token"
)

func TestSellerConfigPersistsAsOneRecord(t *testing.T) {
	mgr := newTestManager(t)
	contract := addr(7)
	if _, ok, err := mgr.SellerConfigGet(contract); err != nil || ok {
		t.Fatalf("expected no config, ok=%v err=%v", ok, err)
	}
	cfg := seller.DefaultConfig()
	cfg.Price = big.NewInt(12)
	cfg.RewardNumerator = big.NewInt(3)
	cfg.RewardDenominator = big.NewInt(4)
	if err := mgr.SellerConfigPut(contract, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := mgr.SellerConfigGet(contract)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Price.Int64() != 12 || got.RewardNumerator.Int64() != 3 || got.RewardDenominator.Int64() != 4 {
		t.Fatalf("unexpected config %+v", got)
	}
	if got.CustodyToken != seller.DefaultCustodyToken {
		t.Fatalf("custody token not persisted")
	}
}

func TestSellerRanksKeepDemotedHolders(t *testing.T) {
	mgr := newTestManager(t)
	contract, holder := addr(7), addr(8)
	if err := mgr.SellerRankPut(contract, holder, seller.RankWithdraw); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.SellerRankPut(contract, holder, seller.RankNone); err != nil {
		t.Fatalf("demote: %v", err)
	}
	rank, ok, err := mgr.SellerRankGet(contract, holder)
	if err != nil || !ok || rank != seller.RankNone {
		t.Fatalf("unexpected rank %s ok=%v err=%v", rank, ok, err)
	}
	holders, err := mgr.SellerRankHolders(contract)
	if err != nil {
		t.Fatalf("holders: %v", err)
	}
	if len(holders) != 1 || holders[0] != holder {
		t.Fatalf("unexpected holders %x", holders)
	}
}

func TestTokenLedgerOverManager(t *testing.T) {
	mgr := newTestManager(t)
	tokenAddr, alice, bob := addr(1), addr(2), addr(3)

	ledger := token.NewLedger(tokenAddr)
	ledger.SetState(mgr)
	if _, err := ledger.Deploy(alice, "Custody", "CST", 0, []token.Allocation{{Holder: alice, Amount: big.NewInt(10)}}); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	ok, err := ledger.Bind(alice).Transfer(bob, uint256FromInt(10))
	if err != nil || !ok {
		t.Fatalf("transfer: ok=%v err=%v", ok, err)
	}
	bal, err := mgr.TokenBalanceGet(tokenAddr, alice)
	if err != nil || bal.Sign() != 0 {
		t.Fatalf("expected drained balance, got %v err=%v", bal, err)
	}
	bal, err = mgr.TokenBalanceGet(tokenAddr, bob)
	if err != nil || bal.Int64() != 10 {
		t.Fatalf("unexpected bob balance %v err=%v", bal, err)
	}
}

func uint256FromInt(v uint64) *uint256.Int { return uint256.NewInt(v) }
