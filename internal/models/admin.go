package models

import (
	"time"
)

// AdminStatus 管理员状态
const (
	AdminStatusActive   = 1 // 正常
	AdminStatusDisabled = 2 // 禁用
)

// AdminRole 管理员角色
const (
	AdminRoleSuper   = "super"   // 超级管理员
	AdminRoleFinance = "finance" // 财务
	AdminRoleOps     = "ops"     // 运营
)

// Admin 管理员模型
type Admin struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(100);not null" json:"-"`
	Name         string     `gorm:"type:varchar(50);not null" json:"name"`
	Role         string     `gorm:"type:varchar(20);not null;default:'ops'" json:"role"`
	Status       int8       `gorm:"type:smallint;not null;default:1" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Admin) TableName() string {
	return "admins"
}

// Override 目标类型
const (
	OverrideTargetSeller     = "seller"
	OverrideTargetPartner    = "partner"
	OverrideTargetSettlement = "settlement"
	OverrideTargetWithdrawal = "withdrawal"
	OverrideTargetLedger     = "ledger"
)

// Override 动作
const (
	OverrideActionTierOverride     = "tier_override"
	OverrideActionAccountHold      = "account_hold"
	OverrideActionAccountRestrict  = "account_restrict"
	OverrideActionAccountRelease   = "account_release"
	OverrideActionAccountDelete    = "account_delete"
	OverrideActionSettlementAdjust = "settlement_adjust"
	OverrideActionPayoutHold       = "payout_hold"
	OverrideActionPayoutRelease    = "payout_release"
	OverrideActionLedgerCorrection = "ledger_correction"
)

// AdminOverride 人工干预审计记录
// 每一次人工改动在改动发生前记录 previous/new 快照，且必须携带非空理由。
type AdminOverride struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID       int64     `gorm:"index;not null" json:"admin_id"`
	TargetType    string    `gorm:"type:varchar(20);not null;index:idx_override_target" json:"target_type"`
	TargetID      int64     `gorm:"not null;index:idx_override_target" json:"target_id"`
	Action        string    `gorm:"type:varchar(30);not null;index" json:"action"`
	PreviousValue string    `gorm:"type:text;not null" json:"previous_value"`
	NewValue      string    `gorm:"type:text;not null" json:"new_value"`
	Reason        string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// 关联
	Admin *Admin `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

// TableName 表名
func (AdminOverride) TableName() string {
	return "admin_overrides"
}
