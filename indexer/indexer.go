package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sellerchain/core/types"
	"sellerchain/native/seller"
)

// Notifier is told about rows after they are committed.
type Notifier interface {
	PurchaseIndexed(Purchase)
	WithdrawalIndexed(Withdrawal)
}

// Indexer projects receipts into SQL tables of seller activity.
type Indexer struct {
	db        *gorm.DB
	logger    *slog.Logger
	notifiers []Notifier
	now       func() time.Time
}

// Open connects to the named driver ("sqlite" or "postgres") and migrates
// the schema.
func Open(driver, dsn string, logger *slog.Logger) (*Indexer, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, logger)
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("indexer: dsn required")
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
}

// New wraps an open database, migrating the schema.
func New(db *gorm.DB, logger *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: logger, now: time.Now}, nil
}

// AddNotifier registers n for committed purchases and withdrawals.
func (ix *Indexer) AddNotifier(n Notifier) {
	if n != nil {
		ix.notifiers = append(ix.notifiers, n)
	}
}

// DB exposes the underlying handle.
func (ix *Indexer) DB() *gorm.DB { return ix.db }

// Close releases the database connection.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Run indexes receipts until the channel closes or ctx is done. Errors are
// logged and do not stop the loop.
func (ix *Indexer) Run(ctx context.Context, receipts <-chan *types.Receipt) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case receipt, ok := <-receipts:
			if !ok {
				return nil
			}
			if err := ix.Index(ctx, receipt); err != nil {
				ix.logger.Error("index receipt failed",
					slog.String("tx", hexBytes(receipt.TxHash)),
					slog.Any("error", err))
			}
		}
	}
}

type batch struct {
	purchases   []Purchase
	withdrawals []Withdrawal
	changes     []ConfigChange
	failure     *Failure
}

// Index stores the activity carried by receipt. Re-indexing a receipt is a
// no-op.
func (ix *Indexer) Index(ctx context.Context, receipt *types.Receipt) error {
	if receipt == nil {
		return nil
	}
	hash := hexBytes(receipt.TxHash)
	if hash == "" {
		return errors.New("indexer: receipt without hash")
	}
	now := ix.now().UTC()
	rows, err := project(receipt, hash, now)
	if err != nil {
		return err
	}

	indexed := false
	err = ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&IndexedReceipt{}).Where("tx_hash = ?", hash).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		marker := IndexedReceipt{TxHash: hash, Height: receipt.BlockNumber, Status: receipt.Status, CreatedAt: now}
		if err := tx.Create(&marker).Error; err != nil {
			return err
		}
		if len(rows.purchases) > 0 {
			if err := tx.Create(&rows.purchases).Error; err != nil {
				return err
			}
		}
		if len(rows.withdrawals) > 0 {
			if err := tx.Create(&rows.withdrawals).Error; err != nil {
				return err
			}
		}
		if len(rows.changes) > 0 {
			if err := tx.Create(&rows.changes).Error; err != nil {
				return err
			}
		}
		if rows.failure != nil {
			if err := tx.Create(rows.failure).Error; err != nil {
				return err
			}
		}
		indexed = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexer: store %s: %w", hash, err)
	}
	if !indexed {
		return nil
	}
	for _, n := range ix.notifiers {
		for _, p := range rows.purchases {
			n.PurchaseIndexed(p)
		}
		for _, w := range rows.withdrawals {
			n.WithdrawalIndexed(w)
		}
	}
	return nil
}

func project(receipt *types.Receipt, hash string, now time.Time) (*batch, error) {
	out := &batch{}
	if !receipt.Succeeded() {
		out.failure = &Failure{
			ID:        uuid.New(),
			TxHash:    hash,
			Height:    receipt.BlockNumber,
			Sender:    hexAddr(receipt.From),
			Target:    hexAddr(receipt.To),
			Code:      receipt.ErrorCode,
			Message:   receipt.Error,
			GasUsed:   receipt.GasUsed,
			CreatedAt: now,
		}
		return out, nil
	}
	for _, evt := range receipt.Events {
		attrs := evt.Attributes
		switch evt.Type {
		case seller.EventTypePurchase:
			out.purchases = append(out.purchases, Purchase{
				ID:          uuid.New(),
				TxHash:      hash,
				Height:      receipt.BlockNumber,
				Seller:      attrs["seller"],
				Buyer:       attrs["buyer"],
				Referrer:    attrs["referrer"],
				Payment:     attrs["payment"],
				Tokens:      attrs["tokens"],
				Bonus:       attrs["bonus"],
				Remainder:   attrs["remainder"],
				ReferralHit: attrs["referralHit"] == "true",
				CreatedAt:   now,
			})
		case seller.EventTypeWithdrawn:
			out.withdrawals = append(out.withdrawals, Withdrawal{
				ID:        uuid.New(),
				TxHash:    hash,
				Height:    receipt.BlockNumber,
				Seller:    attrs["seller"],
				Recipient: attrs["to"],
				Amount:    attrs["amount"],
				CreatedAt: now,
			})
		case seller.EventTypeRankGranted, seller.EventTypePriceUpdated, seller.EventTypeRewardUpdated, seller.EventTypeCustodyUpdated:
			detail := make(map[string]string, len(attrs))
			for k, v := range attrs {
				if k != "seller" && k != "caller" {
					detail[k] = v
				}
			}
			encoded, err := json.Marshal(detail)
			if err != nil {
				return nil, err
			}
			out.changes = append(out.changes, ConfigChange{
				ID:        uuid.New(),
				TxHash:    hash,
				Height:    receipt.BlockNumber,
				Seller:    attrs["seller"],
				Kind:      evt.Type,
				Caller:    attrs["caller"],
				Detail:    string(encoded),
				CreatedAt: now,
			})
		}
	}
	return out, nil
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return fmt.Sprintf("0x%x", b)
}

func hexAddr(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToLower(common.BytesToAddress(b).Hex())
}
