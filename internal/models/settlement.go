package models

import (
	"time"
)

// ScheduleStatus 结算批次状态
const (
	ScheduleStatusScheduled  = "scheduled"  // 待结算
	ScheduleStatusProcessing = "processing" // 结算中
	ScheduleStatusCompleted  = "completed"  // 已完成（不可再变更）
	ScheduleStatusFailed     = "failed"     // 结算失败
)

// SettlementSchedule 结算批次
// 同一卖家同一结算日最多存在一个 scheduled 批次，由 uniq_open_batch
// 部分唯一索引在库层兜底；状态流转只由批次处理器驱动。
type SettlementSchedule struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchNo        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_no"`
	SellerID       int64      `gorm:"not null;index:idx_schedule_seller_date;uniqueIndex:uniq_open_batch,where:status = 'scheduled'" json:"seller_id"`
	Tier           string     `gorm:"type:varchar(10);not null" json:"tier"`
	TotalAmount    float64    `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	OrderCount     int        `gorm:"not null;default:0" json:"order_count"`
	SettlementDate time.Time  `gorm:"not null;index:idx_schedule_seller_date;uniqueIndex:uniq_open_batch,where:status = 'scheduled'" json:"settlement_date"`
	Status         string     `gorm:"type:varchar(15);not null;default:'scheduled';index" json:"status"`
	FailureReason  *string    `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Seller *Seller `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

// TableName 表名
func (SettlementSchedule) TableName() string {
	return "settlement_schedules"
}

// BatchResult 单个批次的处理结果
type BatchResult struct {
	BatchID     int64   `json:"batch_id"`
	BatchNo     string  `json:"batch_no"`
	SellerID    int64   `json:"seller_id"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	OrderCount  int     `json:"order_count"`
	Error       string  `json:"error,omitempty"`
}

// BatchRunSummary 一次批次扫描的汇总
type BatchRunSummary struct {
	Scanned   int           `json:"scanned"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Results   []BatchResult `json:"results"`
}
