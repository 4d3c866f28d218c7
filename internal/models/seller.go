package models

import (
	"time"
)

// SellerTier 卖家等级
const (
	SellerTierBronze = "bronze" // 青铜：7 天结算
	SellerTierSilver = "silver" // 白银：5 天结算
	SellerTierGold   = "gold"   // 黄金：3 天结算
)

// SellerStatus 卖家状态
const (
	SellerStatusActive     = "active"     // 正常
	SellerStatusHold       = "hold"       // 冻结（暂停结算）
	SellerStatusRestricted = "restricted" // 受限
	SellerStatusDeleted    = "deleted"    // 已注销
)

// TierSettlementDays 返回等级对应的结算周期天数
func TierSettlementDays(tier string) int {
	switch tier {
	case SellerTierGold:
		return 3
	case SellerTierSilver:
		return 5
	default:
		return 7
	}
}

// IsValidTier 判断等级是否合法
func IsValidTier(tier string) bool {
	switch tier {
	case SellerTierBronze, SellerTierSilver, SellerTierGold:
		return true
	default:
		return false
	}
}

// Seller 卖家模型
type Seller struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	Phone         *string    `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	Email         *string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	Tier          string     `gorm:"type:varchar(10);not null;default:'bronze'" json:"tier"`
	TierUpdatedAt *time.Time `json:"tier_updated_at,omitempty"`
	FeePercent    *float64   `gorm:"type:decimal(5,2)" json:"fee_percent,omitempty"`
	Status        string     `gorm:"type:varchar(15);not null;default:'active';index" json:"status"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Seller) TableName() string {
	return "sellers"
}

// SellerStats 卖家统计缓存（可由账本与订单历史完整重算）
type SellerStats struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID               int64      `gorm:"uniqueIndex;not null" json:"seller_id"`
	CurrentTier            string     `gorm:"type:varchar(10);not null;default:'bronze'" json:"current_tier"`
	TotalOrders            int        `gorm:"not null;default:0" json:"total_orders"`
	DeliveredOrders        int        `gorm:"not null;default:0" json:"delivered_orders"`
	RTOOrders              int        `gorm:"not null;default:0" json:"rto_orders"`
	CancelledOrders        int        `gorm:"not null;default:0" json:"cancelled_orders"`
	GrossRevenue           float64    `gorm:"type:decimal(14,2);not null;default:0" json:"gross_revenue"`
	ShippingCost           float64    `gorm:"type:decimal(14,2);not null;default:0" json:"shipping_cost"`
	PlatformFees           float64    `gorm:"type:decimal(14,2);not null;default:0" json:"platform_fees"`
	TotalSettled           float64    `gorm:"type:decimal(14,2);not null;default:0" json:"total_settled"`
	PendingSettlement      float64    `gorm:"type:decimal(14,2);not null;default:0" json:"pending_settlement"`
	AvailableForWithdrawal float64    `gorm:"type:decimal(14,2);not null;default:0" json:"available_for_withdrawal"`
	TotalCodCollected      float64    `gorm:"type:decimal(14,2);not null;default:0" json:"total_cod_collected"`
	PendingCodRemittance   float64    `gorm:"type:decimal(14,2);not null;default:0" json:"pending_cod_remittance"`
	RTOPercent             float64    `gorm:"type:decimal(5,2);not null;default:0" json:"rto_percent"`
	DeliverySuccessRate    float64    `gorm:"type:decimal(5,2);not null;default:0" json:"delivery_success_rate"`
	NextSettlementDate     *time.Time `json:"next_settlement_date,omitempty"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (SellerStats) TableName() string {
	return "seller_stats"
}
