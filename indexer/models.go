package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IndexedReceipt marks a receipt as processed so replays are ignored.
type IndexedReceipt struct {
	TxHash    string `gorm:"size:66;primaryKey"`
	Height    uint64 `gorm:"index"`
	Status    uint8
	CreatedAt time.Time
}

// Purchase is one completed purchase. Amounts are decimal strings so that
// 256-bit values survive every driver.
type Purchase struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxHash      string    `gorm:"size:66;index"`
	Height      uint64    `gorm:"index"`
	Seller      string    `gorm:"size:42;index"`
	Buyer       string    `gorm:"size:42;index"`
	Referrer    string    `gorm:"size:42"`
	Payment     string    `gorm:"size:80"`
	Tokens      string    `gorm:"size:80"`
	Bonus       string    `gorm:"size:80"`
	Remainder   string    `gorm:"size:80"`
	ReferralHit bool
	CreatedAt   time.Time
}

// Withdrawal is one treasury withdrawal.
type Withdrawal struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxHash    string    `gorm:"size:66;index"`
	Height    uint64    `gorm:"index"`
	Seller    string    `gorm:"size:42;index"`
	Recipient string    `gorm:"size:42"`
	Amount    string    `gorm:"size:80"`
	CreatedAt time.Time
}

// ConfigChange records a rank, price, reward or custody update.
type ConfigChange struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxHash    string    `gorm:"size:66;index"`
	Height    uint64    `gorm:"index"`
	Seller    string    `gorm:"size:42;index"`
	Kind      string    `gorm:"size:64;index"`
	Caller    string    `gorm:"size:42"`
	Detail    string
	CreatedAt time.Time
}

// Failure is a transaction that executed and reverted.
type Failure struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxHash    string    `gorm:"size:66;uniqueIndex"`
	Height    uint64    `gorm:"index"`
	Sender    string    `gorm:"size:42;index"`
	Target    string    `gorm:"size:42;index"`
	Code      string    `gorm:"size:64;index"`
	Message   string
	GasUsed   uint64
	CreatedAt time.Time
}

// AutoMigrate creates or updates every indexer table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&IndexedReceipt{},
		&Purchase{},
		&Withdrawal{},
		&ConfigChange{},
		&Failure{},
	)
}
