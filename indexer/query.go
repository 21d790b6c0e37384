package indexer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"gorm.io/gorm"
)

const defaultQueryLimit = 1000

// Filter narrows activity queries. Zero fields match everything; ToHeight
// of zero means no upper bound.
type Filter struct {
	Seller     string
	Account    string
	FromHeight uint64
	ToHeight   uint64
	Limit      int
}

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > defaultQueryLimit {
		return defaultQueryLimit
	}
	return f.Limit
}

func normalise(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Purchases lists purchases in height order. Account matches the buyer or
// the referrer.
func (ix *Indexer) Purchases(ctx context.Context, f Filter) ([]Purchase, error) {
	q := ix.db.WithContext(ctx).Model(&Purchase{})
	if s := normalise(f.Seller); s != "" {
		q = q.Where("seller = ?", s)
	}
	if a := normalise(f.Account); a != "" {
		q = q.Where("(buyer = ? OR referrer = ?)", a, a)
	}
	q = heightRange(q, f)
	var out []Purchase
	if err := q.Order("height ASC").Limit(f.limit()).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: query purchases: %w", err)
	}
	return out, nil
}

// Withdrawals lists withdrawals in height order.
func (ix *Indexer) Withdrawals(ctx context.Context, f Filter) ([]Withdrawal, error) {
	q := ix.db.WithContext(ctx).Model(&Withdrawal{})
	if s := normalise(f.Seller); s != "" {
		q = q.Where("seller = ?", s)
	}
	if a := normalise(f.Account); a != "" {
		q = q.Where("recipient = ?", a)
	}
	q = heightRange(q, f)
	var out []Withdrawal
	if err := q.Order("height ASC").Limit(f.limit()).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: query withdrawals: %w", err)
	}
	return out, nil
}

// ConfigChanges lists configuration updates in height order.
func (ix *Indexer) ConfigChanges(ctx context.Context, f Filter) ([]ConfigChange, error) {
	q := ix.db.WithContext(ctx).Model(&ConfigChange{})
	if s := normalise(f.Seller); s != "" {
		q = q.Where("seller = ?", s)
	}
	q = heightRange(q, f)
	var out []ConfigChange
	if err := q.Order("height ASC").Limit(f.limit()).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: query config changes: %w", err)
	}
	return out, nil
}

// Failures lists reverted transactions. Seller matches the call target and
// Account the sender.
func (ix *Indexer) Failures(ctx context.Context, f Filter) ([]Failure, error) {
	q := ix.db.WithContext(ctx).Model(&Failure{})
	if s := normalise(f.Seller); s != "" {
		q = q.Where("target = ?", s)
	}
	if a := normalise(f.Account); a != "" {
		q = q.Where("sender = ?", a)
	}
	q = heightRange(q, f)
	var out []Failure
	if err := q.Order("height ASC").Limit(f.limit()).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: query failures: %w", err)
	}
	return out, nil
}

// Totals aggregates a seller's indexed activity.
type Totals struct {
	Purchases    int
	ReferralHits int
	Payments     *big.Int
	Tokens       *big.Int
	Bonus        *big.Int
	Remainder    *big.Int
	Withdrawn    *big.Int
}

// SellerTotals sums every purchase and withdrawal of seller. The sums are
// computed in Go because the amounts are stored as decimal strings.
func (ix *Indexer) SellerTotals(ctx context.Context, seller string) (*Totals, error) {
	totals := &Totals{
		Payments:  new(big.Int),
		Tokens:    new(big.Int),
		Bonus:     new(big.Int),
		Remainder: new(big.Int),
		Withdrawn: new(big.Int),
	}
	var purchases []Purchase
	if err := ix.db.WithContext(ctx).Where("seller = ?", normalise(seller)).Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("indexer: load purchases: %w", err)
	}
	for _, p := range purchases {
		totals.Purchases++
		if p.ReferralHit {
			totals.ReferralHits++
		}
		for _, pair := range []struct {
			sum *big.Int
			raw string
		}{{totals.Payments, p.Payment}, {totals.Tokens, p.Tokens}, {totals.Bonus, p.Bonus}, {totals.Remainder, p.Remainder}} {
			if err := addDecimal(pair.sum, pair.raw); err != nil {
				return nil, fmt.Errorf("indexer: purchase %s: %w", p.TxHash, err)
			}
		}
	}
	var withdrawals []Withdrawal
	if err := ix.db.WithContext(ctx).Where("seller = ?", normalise(seller)).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("indexer: load withdrawals: %w", err)
	}
	for _, w := range withdrawals {
		if err := addDecimal(totals.Withdrawn, w.Amount); err != nil {
			return nil, fmt.Errorf("indexer: withdrawal %s: %w", w.TxHash, err)
		}
	}
	return totals, nil
}

func addDecimal(sum *big.Int, raw string) error {
	if raw == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("malformed amount %q", raw)
	}
	sum.Add(sum, v)
	return nil
}

func heightRange(q *gorm.DB, f Filter) *gorm.DB {
	if f.FromHeight > 0 {
		q = q.Where("height >= ?", f.FromHeight)
	}
	if f.ToHeight > 0 {
		q = q.Where("height <= ?", f.ToHeight)
	}
	return q
}
