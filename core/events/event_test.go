package events

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"sellerchain/core/types"
)

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestBufferKeepsOnlyPayloadEvents(t *testing.T) {
	buf := &Buffer{}
	buf.Emit(bareEvent{})
	buf.Emit(Transfer{From: [20]byte{1}, To: [20]byte{2}, Amount: big.NewInt(5)})

	require.Equal(t, 1, buf.Len())
	evts := buf.Events()
	require.Equal(t, TypeTransfer, evts[0].Type)
	require.Equal(t, "5", evts[0].Attributes["amount"])
	require.Equal(t, "0x0100000000000000000000000000000000000000", evts[0].Attributes["from"])
	require.NotContains(t, evts[0].Attributes, "txHash")

	evts[0].Attributes["amount"] = "tampered"
	require.Equal(t, "5", buf.Events()[0].Attributes["amount"])

	buf.Reset()
	require.Zero(t, buf.Len())
}

func TestReceiptFeedDeliversAndDrops(t *testing.T) {
	feed := NewReceiptFeed()
	ch, cancel := feed.Subscribe(1)

	feed.Publish(&types.Receipt{GasUsed: 1})
	feed.Publish(&types.Receipt{GasUsed: 2})

	got := <-ch
	require.Equal(t, uint64(1), got.GasUsed)
	require.Equal(t, uint64(1), feed.Dropped())

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)

	feed.Publish(&types.Receipt{GasUsed: 3})
}
