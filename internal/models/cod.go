package models

import (
	"time"
)

// RemittanceStatus 代收货款回款状态
const (
	RemittanceStatusCollected = "collected" // 配送员已收款
	RemittanceStatusRemitted  = "remitted"  // 已回款平台
)

// CODCollection 代收货款记录
// 跟踪实物现金流，与卖家收入账本相互独立；declared 与 collected 的差异保留可审计。
type CODCollection struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64      `gorm:"uniqueIndex;not null" json:"order_id"`
	SellerID         int64      `gorm:"index;not null" json:"seller_id"`
	PartnerID        int64      `gorm:"index;not null" json:"partner_id"`
	CodAmount        float64    `gorm:"type:decimal(12,2);not null" json:"cod_amount"`
	CollectedAmount  float64    `gorm:"type:decimal(12,2);not null" json:"collected_amount"`
	ShippingCharge   float64    `gorm:"type:decimal(10,2);not null" json:"shipping_charge"`
	PlatformFee      float64    `gorm:"type:decimal(10,2);not null" json:"platform_fee"`
	CodHandlingFee   float64    `gorm:"type:decimal(10,2);not null" json:"cod_handling_fee"`
	NetSettlement    float64    `gorm:"type:decimal(12,2);not null" json:"net_settlement"`
	RemittanceStatus string     `gorm:"type:varchar(15);not null;default:'collected';index" json:"remittance_status"`
	CollectedAt      time.Time  `gorm:"not null" json:"collected_at"`
	RemittedAt       *time.Time `json:"remitted_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (CODCollection) TableName() string {
	return "cod_collections"
}
