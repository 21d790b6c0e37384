package seller

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithdrawWithEmptyBalance(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.engine.GrantRank(owner, operator, RankWithdraw))

	_, err := f.engine.Withdraw(operator)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
	require.Empty(t, f.state.locks)
}

func TestSetPriceRankCannotWithdraw(t *testing.T) {
	f := newFixture(t, 100)
	f.configure(t, 1, 1, 1)
	f.state.fund(buyer, 100)
	_, err := f.engine.Purchase(buyer, NoReferral, big.NewInt(10))
	require.NoError(t, err)

	require.NoError(t, f.engine.GrantRank(owner, operator, RankSetPrice))
	_, err = f.engine.Withdraw(operator)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NoError(t, f.engine.SetPrice(operator, big.NewInt(3)))

	balance, err := f.engine.NativeBalance()
	require.NoError(t, err)
	require.Equal(t, int64(10), balance.Int64())
}

func TestWithdrawDrainsBalance(t *testing.T) {
	f := newFixture(t, 100)
	f.configure(t, 1, 1, 1)
	f.state.fund(buyer, 100)
	f.state.fund(operator, 3)
	_, err := f.engine.Purchase(buyer, NoReferral, big.NewInt(40))
	require.NoError(t, err)
	require.NoError(t, f.engine.GrantRank(owner, operator, RankWithdraw))
	f.events.Reset()

	amount, err := f.engine.Withdraw(operator)
	require.NoError(t, err)
	require.Equal(t, int64(40), amount.Int64())
	require.Zero(t, f.state.balance(sellerAddr).Sign())
	require.Equal(t, int64(43), f.state.balance(operator).Int64())

	evts := f.events.Events()
	require.Len(t, evts, 1)
	require.Equal(t, EventTypeWithdrawn, evts[0].Type)
	require.Equal(t, "40", evts[0].Attributes["amount"])

	_, err = f.engine.Withdraw(operator)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestFullRankCanWithdraw(t *testing.T) {
	f := newFixture(t, 100)
	f.configure(t, 1, 1, 1)
	f.state.fund(buyer, 100)
	_, err := f.engine.Purchase(buyer, NoReferral, big.NewInt(25))
	require.NoError(t, err)

	amount, err := f.engine.Withdraw(owner)
	require.NoError(t, err)
	require.Equal(t, int64(25), amount.Int64())
	require.Equal(t, int64(25), f.state.balance(owner).Int64())
}

func TestSellerCannotWithdrawToItself(t *testing.T) {
	f := newFixture(t, 100)
	f.configure(t, 1, 1, 1)
	f.state.fund(buyer, 100)
	_, err := f.engine.Purchase(buyer, NoReferral, big.NewInt(40))
	require.NoError(t, err)
	require.NoError(t, f.engine.GrantRank(owner, sellerAddr, RankWithdraw))
	f.events.Reset()

	_, err = f.engine.Withdraw(sellerAddr)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Empty(t, f.events.Events())
	require.Equal(t, int64(40), f.state.balance(sellerAddr).Int64())
	require.Empty(t, f.state.locks)
}
