// Package models 定义数据模型
package models

import "time"

// FinanceOverview 财务概览
type FinanceOverview struct {
	TotalEarnings        float64 `json:"total_earnings"`         // 累计卖家收入入账
	TotalSettled         float64 `json:"total_settled"`          // 累计已结算金额
	TotalPlatformFees    float64 `json:"total_platform_fees"`    // 累计平台佣金
	TotalCodCollected    float64 `json:"total_cod_collected"`    // 累计代收货款
	PendingCodRemittance float64 `json:"pending_cod_remittance"` // 待回款代收货款
	PendingSettlements   int     `json:"pending_settlements"`    // 待结算批次数
	FailedSettlements    int     `json:"failed_settlements"`     // 失败批次数
	PendingWithdrawals   int     `json:"pending_withdrawals"`    // 待审核提现数
	TodaySettledAmount   float64 `json:"today_settled_amount"`   // 今日结算金额
}

// SettlementSummary 结算批次汇总统计
type SettlementSummary struct {
	TotalBatches   int     `json:"total_batches"`
	TotalAmount    float64 `json:"total_amount"`
	ScheduledCount int     `json:"scheduled_count"`
	CompletedCount int     `json:"completed_count"`
	FailedCount    int     `json:"failed_count"`
}

// SettlementExportRow 结算批次导出行
type SettlementExportRow struct {
	BatchNo        string    `json:"batch_no"`
	SellerID       int64     `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	Tier           string    `json:"tier"`
	OrderCount     int       `json:"order_count"`
	TotalAmount    float64   `json:"total_amount"`
	SettlementDate time.Time `json:"settlement_date"`
	Status         string    `json:"status"`
	ProcessedAt    string    `json:"processed_at"`
}

// WithdrawalSummary 提现汇总
type WithdrawalSummary struct {
	TotalWithdrawals int     `json:"total_withdrawals"`
	TotalAmount      float64 `json:"total_amount"`
	PendingCount     int     `json:"pending_count"`
	PendingAmount    float64 `json:"pending_amount"`
	CompletedCount   int     `json:"completed_count"`
	CompletedAmount  float64 `json:"completed_amount"`
	RejectedCount    int     `json:"rejected_count"`
}
