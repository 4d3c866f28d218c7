package models

import (
	"time"
)

// WithdrawalStatus 提现申请状态
const (
	WithdrawalStatusPending    = "pending"    // 待审核
	WithdrawalStatusProcessing = "processing" // 打款中
	WithdrawalStatusCompleted  = "completed"  // 已完成
	WithdrawalStatusRejected   = "rejected"   // 已拒绝
)

// WithdrawalRequest 配送员提现申请
// 同一配送员同一时刻最多存在一笔 pending/processing 状态的申请，
// 由 uniq_outstanding_withdrawal 部分唯一索引在库层兜底。
type WithdrawalRequest struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"`
	PartnerID          int64      `gorm:"index;not null;uniqueIndex:uniq_outstanding_withdrawal,where:status = 'pending' OR status = 'processing'" json:"partner_id"`
	Amount             float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceAtRequest   float64    `gorm:"type:decimal(14,2);not null" json:"balance_at_request"`
	BankAccountName    string     `gorm:"type:varchar(50);not null" json:"bank_account_name"`
	BankAccountNo      string     `gorm:"type:varchar(64);not null" json:"bank_account_no"`
	BankName           string     `gorm:"type:varchar(100);not null" json:"bank_name"`
	Status             string     `gorm:"type:varchar(15);not null;default:'pending';index" json:"status"`
	ReviewedBy         *int64     `json:"reviewed_by,omitempty"`
	TransactionRef     *string    `gorm:"type:varchar(64)" json:"transaction_ref,omitempty"`
	RejectionReason    *string    `gorm:"type:varchar(255)" json:"rejection_reason,omitempty"`
	BalanceAfterPayout *float64   `gorm:"type:decimal(14,2)" json:"balance_after_payout,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Partner  *Partner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	Reviewer *Admin   `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
}

// TableName 表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// IsOutstanding 是否为未完结申请
func (w *WithdrawalRequest) IsOutstanding() bool {
	return w.Status == WithdrawalStatusPending || w.Status == WithdrawalStatusProcessing
}
