package indexer

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sellerchain/core/types"
	"sellerchain/native/seller"
)

var (
	sellerA  = [20]byte{0x5e, 0x01}
	buyerA   = [20]byte{0xb0, 0x01}
	referrer = [20]byte{0xcc, 0x01}
	ownerA   = [20]byte{0x0a, 0x01}
)

func openTest(t *testing.T) *Indexer {
	t.Helper()
	ix, err := Open("sqlite", filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func hashOf(b byte) []byte {
	h := make([]byte, 32)
	h[31] = b
	return h
}

func purchaseReceipt(height uint64, hash byte, payment, tokens, bonus int64, hit bool) *types.Receipt {
	result := &seller.PurchaseResult{
		Buyer:         buyerA,
		Payment:       big.NewInt(payment),
		BuyerTokens:   big.NewInt(tokens),
		BonusTokens:   big.NewInt(bonus),
		Remainder:     big.NewInt(0),
		ReferralValid: hit,
	}
	if hit {
		result.Referrer = referrer
	}
	return &types.Receipt{
		TxHash:      hashOf(hash),
		BlockNumber: height,
		From:        buyerA[:],
		To:          sellerA[:],
		Status:      types.ReceiptStatusSuccess,
		Events:      []types.Event{*seller.PurchaseEvent(sellerA, result)},
	}
}

func addrString(a [20]byte) string {
	return hexAddr(a[:])
}

type recordingNotifier struct {
	mu          sync.Mutex
	purchases   []Purchase
	withdrawals []Withdrawal
}

func (r *recordingNotifier) PurchaseIndexed(p Purchase) {
	r.mu.Lock()
	r.purchases = append(r.purchases, p)
	r.mu.Unlock()
}

func (r *recordingNotifier) WithdrawalIndexed(w Withdrawal) {
	r.mu.Lock()
	r.withdrawals = append(r.withdrawals, w)
	r.mu.Unlock()
}

func TestIndexPurchasesAndTotals(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	ix.AddNotifier(notifier)

	require.NoError(t, ix.Index(ctx, purchaseReceipt(1, 1, 100, 10, 0, false)))
	require.NoError(t, ix.Index(ctx, purchaseReceipt(2, 2, 50, 5, 2, true)))

	purchases, err := ix.Purchases(ctx, Filter{Seller: addrString(sellerA)})
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	require.Equal(t, uint64(1), purchases[0].Height)
	require.Equal(t, "10", purchases[0].Tokens)
	require.False(t, purchases[0].ReferralHit)
	require.True(t, purchases[1].ReferralHit)
	require.Equal(t, addrString(referrer), purchases[1].Referrer)

	byReferrer, err := ix.Purchases(ctx, Filter{Account: strings.ToUpper(addrString(referrer))})
	require.NoError(t, err)
	require.Len(t, byReferrer, 1)

	ranged, err := ix.Purchases(ctx, Filter{FromHeight: 2})
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	totals, err := ix.SellerTotals(ctx, addrString(sellerA))
	require.NoError(t, err)
	require.Equal(t, 2, totals.Purchases)
	require.Equal(t, 1, totals.ReferralHits)
	require.Equal(t, big.NewInt(150), totals.Payments)
	require.Equal(t, big.NewInt(15), totals.Tokens)
	require.Equal(t, big.NewInt(2), totals.Bonus)

	require.Len(t, notifier.purchases, 2)
}

func TestIndexIsIdempotent(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	ix.AddNotifier(notifier)

	receipt := purchaseReceipt(1, 9, 100, 10, 0, false)
	require.NoError(t, ix.Index(ctx, receipt))
	require.NoError(t, ix.Index(ctx, receipt))

	purchases, err := ix.Purchases(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	require.Len(t, notifier.purchases, 1)
}

func TestIndexWithdrawalsChangesAndFailures(t *testing.T) {
	ix := openTest(t)
	ctx := context.Background()

	withdraw := &types.Receipt{
		TxHash:      hashOf(3),
		BlockNumber: 3,
		From:        ownerA[:],
		To:          sellerA[:],
		Status:      types.ReceiptStatusSuccess,
		Events: []types.Event{
			*seller.WithdrawnEvent(sellerA, ownerA, big.NewInt(150)),
			*seller.PriceUpdatedEvent(sellerA, ownerA, big.NewInt(7)),
		},
	}
	require.NoError(t, ix.Index(ctx, withdraw))

	failed := &types.Receipt{
		TxHash:      hashOf(4),
		BlockNumber: 4,
		From:        buyerA[:],
		To:          sellerA[:],
		Status:      types.ReceiptStatusFailed,
		GasUsed:     21000,
		ErrorCode:   "insufficient_custody_supply",
		Error:       "seller: insufficient custody supply",
	}
	require.NoError(t, ix.Index(ctx, failed))

	withdrawals, err := ix.Withdrawals(ctx, Filter{Seller: addrString(sellerA)})
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, "150", withdrawals[0].Amount)
	require.Equal(t, addrString(ownerA), withdrawals[0].Recipient)

	changes, err := ix.ConfigChanges(ctx, Filter{Seller: addrString(sellerA)})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, seller.EventTypePriceUpdated, changes[0].Kind)
	require.JSONEq(t, `{"price":"7"}`, changes[0].Detail)

	failures, err := ix.Failures(ctx, Filter{Account: addrString(buyerA)})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "insufficient_custody_supply", failures[0].Code)
	require.Equal(t, uint64(21000), failures[0].GasUsed)

	totals, err := ix.SellerTotals(ctx, addrString(sellerA))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), totals.Withdrawn)
	require.Zero(t, totals.Purchases)
}

func TestRunDrainsChannel(t *testing.T) {
	ix := openTest(t)
	receipts := make(chan *types.Receipt, 2)
	receipts <- purchaseReceipt(1, 1, 100, 10, 0, false)
	receipts <- purchaseReceipt(2, 2, 100, 10, 0, false)
	close(receipts)

	require.NoError(t, ix.Run(context.Background(), receipts))
	purchases, err := ix.Purchases(context.Background(), Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", nil)
	require.Error(t, err)
	_, err = Open("sqlite", "", nil)
	require.Error(t, err)
}
