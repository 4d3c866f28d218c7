package models

import (
	"time"
)

// 等级评估触发方
const (
	TierTriggerMonthlyTask = "monthly_task" // 月度定时任务
	TierTriggerAdmin       = "admin"        // 管理员手动触发
	TierTriggerOverride    = "override"     // 管理员直接改写
)

// TierEvaluationLog 等级评估日志（只追加，无论等级是否变化都会写入）
type TierEvaluationLog struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID        int64     `gorm:"index;not null" json:"seller_id"`
	EvaluationDate  time.Time `gorm:"not null" json:"evaluation_date"`
	PeriodStart     time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd       time.Time `gorm:"not null" json:"period_end"`
	PreviousTier    string    `gorm:"type:varchar(10);not null" json:"previous_tier"`
	NewTier         string    `gorm:"type:varchar(10);not null" json:"new_tier"`
	MonthlyOrders   int       `gorm:"not null" json:"monthly_orders"`
	DeliveredOrders int       `gorm:"not null" json:"delivered_orders"`
	RTOOrders       int       `gorm:"not null" json:"rto_orders"`
	RTOPercent      float64   `gorm:"type:decimal(5,2);not null" json:"rto_percent"`
	Reason          string    `gorm:"type:varchar(255);not null" json:"reason"`
	AutoUpgrade     bool      `gorm:"not null;default:false" json:"auto_upgrade"`
	TriggeredBy     string    `gorm:"type:varchar(20);not null" json:"triggered_by"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (TierEvaluationLog) TableName() string {
	return "tier_evaluation_logs"
}

// TierMetrics 评估窗口内的卖家指标
type TierMetrics struct {
	Orders     int     `json:"orders"`
	Delivered  int     `json:"delivered"`
	RTO        int     `json:"rto"`
	Cancelled  int     `json:"cancelled"`
	RTOPercent float64 `json:"rto_percent"`
}
