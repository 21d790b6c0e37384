package seller

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrantRankRequiresFull(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.engine.GrantRank(owner, operator, RankWithdraw))

	err := f.engine.GrantRank(operator, buyer, RankSetPrice)
	require.ErrorIs(t, err, ErrUnauthorized)

	rank, err := f.engine.RankOf(buyer)
	require.NoError(t, err)
	require.Equal(t, RankNone, rank)
}

func TestGrantRankRejectsUnknownRank(t *testing.T) {
	f := newFixture(t, 0)
	for _, raw := range []uint8{4, 7, 255} {
		err := f.engine.GrantRank(owner, operator, Rank(raw))
		require.ErrorIs(t, err, ErrInvalidRank)
	}
	_, ok, err := f.state.SellerRankGet(sellerAddr, operator)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnauthorizedCheckedBeforeRankValidity(t *testing.T) {
	f := newFixture(t, 0)
	err := f.engine.GrantRank(buyer, operator, Rank(9))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFullRankIsIrrevocable(t *testing.T) {
	f := newFixture(t, 0)
	second := addr(0x05)
	require.NoError(t, f.engine.GrantRank(owner, second, RankFull))

	for _, rank := range []Rank{RankNone, RankSetPrice, RankWithdraw, RankFull} {
		require.ErrorIs(t, f.engine.GrantRank(owner, second, rank), ErrProtectedAccount)
		require.ErrorIs(t, f.engine.GrantRank(second, owner, rank), ErrProtectedAccount)
	}
	// A full rank holder cannot demote itself either.
	require.ErrorIs(t, f.engine.GrantRank(owner, owner, RankNone), ErrProtectedAccount)

	for _, who := range [][20]byte{owner, second} {
		rank, err := f.engine.RankOf(who)
		require.NoError(t, err)
		require.Equal(t, RankFull, rank)
	}
}

func TestDemotedRankPersistsAsNone(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.engine.GrantRank(owner, operator, RankWithdraw))
	require.NoError(t, f.engine.GrantRank(owner, operator, RankNone))

	rank, ok, err := f.state.SellerRankGet(sellerAddr, operator)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RankNone, rank)

	require.ErrorIs(t, f.engine.SetPrice(operator, big.NewInt(1)), ErrUnauthorized)
}

func TestRankGrantedEvent(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.engine.GrantRank(owner, operator, RankSetPrice))
	evts := f.events.Events()
	require.Len(t, evts, 1)
	require.Equal(t, EventTypeRankGranted, evts[0].Type)
	require.Equal(t, "1", evts[0].Attributes["rank"])
	require.Equal(t, hexAddr(operator), evts[0].Attributes["target"])
}

func TestRankOrdering(t *testing.T) {
	require.True(t, RankFull.Satisfies(RankWithdraw))
	require.True(t, RankWithdraw.Satisfies(RankSetPrice))
	require.False(t, RankSetPrice.Satisfies(RankWithdraw))
	require.False(t, Rank(4).Valid())

	r, err := ParseRank(2)
	require.NoError(t, err)
	require.Equal(t, RankWithdraw, r)
	_, err = ParseRank(4)
	require.ErrorIs(t, err, ErrInvalidRank)
	require.Equal(t, "set_price", RankSetPrice.String())
}
