package models

import (
	"time"
)

// PaymentMode 支付方式
const (
	PaymentModeCod     = "cod"     // 货到付款
	PaymentModePrepaid = "prepaid" // 预付
)

// OrderStatus 订单状态
const (
	OrderStatusCreated   = "created"    // 已创建
	OrderStatusInTransit = "in_transit" // 配送中
	OrderStatusDelivered = "delivered"  // 已妥投（RTD，触发结算计时）
	OrderStatusRTO       = "rto"        // 退回卖家
	OrderStatusCancelled = "cancelled"  // 已取消
)

// SettlementStatus 订单结算状态
const (
	SettlementStatusUnscheduled = "unscheduled" // 未排期
	SettlementStatusScheduled   = "scheduled"   // 已进入结算批次
	SettlementStatusSettled     = "settled"     // 已结算
)

// Order 订单模型
// 订单的创建与配送由上游子系统负责，这里只维护结算相关字段。
type Order struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo           string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	SellerID          int64      `gorm:"index;not null" json:"seller_id"`
	PartnerID         *int64     `gorm:"index" json:"partner_id,omitempty"`
	TotalValue        float64    `gorm:"type:decimal(12,2);not null" json:"total_value"`
	ShippingCost      float64    `gorm:"type:decimal(10,2);not null;default:0" json:"shipping_cost"`
	PlatformFee       float64    `gorm:"type:decimal(10,2);not null;default:0" json:"platform_fee"`
	SellerEarning     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"seller_earning"`
	PaymentMode       string     `gorm:"type:varchar(10);not null;default:'prepaid'" json:"payment_mode"`
	CodAmount         float64    `gorm:"type:decimal(12,2);not null;default:0" json:"cod_amount"`
	DistanceKm        float64    `gorm:"type:decimal(8,2);not null;default:0" json:"distance_km"`
	Status            string     `gorm:"type:varchar(15);not null;default:'created';index" json:"status"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	SettlementStatus  string     `gorm:"type:varchar(15);not null;default:'unscheduled';index" json:"settlement_status"`
	SettlementDate    *time.Time `json:"settlement_date,omitempty"`
	SettlementBatchID *int64     `gorm:"index" json:"settlement_batch_id,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Seller  *Seller  `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Partner *Partner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}
