package models

import (
	"time"
)

// EntryType 账本条目类型（封闭枚举，金额符号由 SignedAmount 统一决定）
type EntryType string

// 账本条目类型
const (
	EntryTypeEarning    EntryType = "earning"    // 收入入账（待结算）
	EntryTypePayout     EntryType = "payout"     // 提现打款
	EntryTypeSettlement EntryType = "settlement" // 批次结算释放
	EntryTypeRefund     EntryType = "refund"     // 人工调增
	EntryTypeDeduction  EntryType = "deduction"  // 人工调减
)

// IsValid 判断条目类型是否合法
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeEarning, EntryTypePayout, EntryTypeSettlement, EntryTypeRefund, EntryTypeDeduction:
		return true
	default:
		return false
	}
}

// Sign 返回类型对余额的符号作用：+1 增加、-1 减少、0 不变
// settlement 只在 pending/available 两个口径间搬运，不改变总余额。
func (t EntryType) Sign() int {
	switch t {
	case EntryTypeEarning, EntryTypeRefund:
		return 1
	case EntryTypePayout, EntryTypeDeduction:
		return -1
	default:
		return 0
	}
}

// SignedAmount 返回带符号金额
func SignedAmount(t EntryType, amount float64) float64 {
	return float64(t.Sign()) * amount
}

// SellerLedgerEntry 卖家账本条目
// 只追加，绝不修改；balance_after = balance_before + SignedAmount(type, amount)，
// 同一卖家的条目按 sequence 构成一条不断裂的余额链。
type SellerLedgerEntry struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID        int64     `gorm:"not null;uniqueIndex:idx_seller_ledger_seq,priority:1" json:"seller_id"`
	Sequence        int64     `gorm:"not null;uniqueIndex:idx_seller_ledger_seq,priority:2" json:"sequence"`
	OrderID         *int64    `gorm:"index" json:"order_id,omitempty"`
	BatchID         *int64    `gorm:"index" json:"batch_id,omitempty"`
	Type            EntryType `gorm:"type:varchar(15);not null;index" json:"type"`
	Amount          float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description     string    `gorm:"type:varchar(255);not null" json:"description"`
	BalanceBefore   float64   `gorm:"type:decimal(14,2);not null" json:"balance_before"`
	BalanceAfter    float64   `gorm:"type:decimal(14,2);not null" json:"balance_after"`
	PendingBefore   float64   `gorm:"type:decimal(14,2);not null" json:"pending_before"`
	PendingAfter    float64   `gorm:"type:decimal(14,2);not null" json:"pending_after"`
	AvailableBefore float64   `gorm:"type:decimal(14,2);not null" json:"available_before"`
	AvailableAfter  float64   `gorm:"type:decimal(14,2);not null" json:"available_after"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (SellerLedgerEntry) TableName() string {
	return "seller_ledger_entries"
}

// PartnerLedgerEntry 配送员账本条目，结构与卖家条目一致但无 pending/available 口径
type PartnerLedgerEntry struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PartnerID     int64     `gorm:"not null;uniqueIndex:idx_partner_ledger_seq,priority:1" json:"partner_id"`
	Sequence      int64     `gorm:"not null;uniqueIndex:idx_partner_ledger_seq,priority:2" json:"sequence"`
	OrderID       *int64    `gorm:"index" json:"order_id,omitempty"`
	WithdrawalID  *int64    `gorm:"index" json:"withdrawal_id,omitempty"`
	Type          EntryType `gorm:"type:varchar(15);not null;index" json:"type"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description   string    `gorm:"type:varchar(255);not null" json:"description"`
	BalanceBefore float64   `gorm:"type:decimal(14,2);not null" json:"balance_before"`
	BalanceAfter  float64   `gorm:"type:decimal(14,2);not null" json:"balance_after"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (PartnerLedgerEntry) TableName() string {
	return "partner_ledger_entries"
}
