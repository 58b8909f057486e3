package wallets

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of the platform a wallet belongs to.
type Role string

const (
	RolePlatform Role = "PLATFORM"
	RoleOwner    Role = "OWNER"
	RoleCustomer Role = "CUSTOMER"
)

// IsValid checks if the wallet role is valid
func (r Role) IsValid() bool {
	switch r {
	case RolePlatform, RoleOwner, RoleCustomer:
		return true
	}
	return false
}

// Bucket names a typed balance within a wallet.
type Bucket string

const (
	BucketSystem  Bucket = "system"
	BucketPending Bucket = "pending"
	BucketRefund  Bucket = "refund"
)

// Wallet aggregates one holder's balances. Balances only move through the
// wallet service methods; every mutation that spans holders lives inside a
// single database transaction.
type Wallet struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HolderID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wallets_holder_role" json:"holder_id"`
	Role           Role      `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallets_holder_role" json:"role"`
	SystemBalance  int64     `gorm:"not null;default:0" json:"system_balance"`
	PendingBalance int64     `gorm:"not null;default:0" json:"pending_balance"`
	RefundBalance  int64     `gorm:"not null;default:0" json:"refund_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName sets the table name for Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// Total sums all buckets.
func (w *Wallet) Total() int64 {
	return w.SystemBalance + w.PendingBalance + w.RefundBalance
}

// Entry is an append-only journal row written inside the same transaction as
// the balance change it records. Corrections are new entries, never edits.
type Entry struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WalletID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"wallet_id"`
	BookingID *uuid.UUID `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Bucket    Bucket     `gorm:"type:varchar(10);not null" json:"bucket"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Reason    string     `gorm:"type:varchar(50);not null" json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName sets the table name for Entry
func (Entry) TableName() string {
	return "wallet_entries"
}

// Journal reasons.
const (
	ReasonSettlement     = "booking_settlement"
	ReasonCheckIn        = "check_in_transfer"
	ReasonRefundCredit   = "refund_credit"
	ReasonRefundBank     = "refund_bank"
	ReasonWithdraw       = "withdraw"
)
