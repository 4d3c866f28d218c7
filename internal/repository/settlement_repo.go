// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// SettlementRepository 结算批次仓储
type SettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository 创建结算批次仓储
func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create 创建结算批次
func (r *SettlementRepository) Create(ctx context.Context, schedule *models.SettlementSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

// GetByID 根据 ID 获取批次
func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*models.SettlementSchedule, error) {
	var schedule models.SettlementSchedule
	err := r.db.WithContext(ctx).First(&schedule, id).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetByBatchNo 根据批次号获取批次
func (r *SettlementRepository) GetByBatchNo(ctx context.Context, batchNo string) (*models.SettlementSchedule, error) {
	var schedule models.SettlementSchedule
	err := r.db.WithContext(ctx).Where("batch_no = ?", batchNo).First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindOpenBatch 查找卖家在指定结算日的待结算批次
func (r *SettlementRepository) FindOpenBatch(ctx context.Context, sellerID int64, settlementDate time.Time) (*models.SettlementSchedule, error) {
	var schedule models.SettlementSchedule
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND settlement_date = ? AND status = ?",
			sellerID, settlementDate, models.ScheduleStatusScheduled).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// AddOrderAmount 累加批次金额与订单数
func (r *SettlementRepository) AddOrderAmount(ctx context.Context, batchID int64, amount float64) error {
	return r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"total_amount": gorm.Expr("total_amount + ?", amount),
			"order_count":  gorm.Expr("order_count + 1"),
		}).Error
}

// ListDue 获取到期的待结算批次
func (r *SettlementRepository) ListDue(ctx context.Context, now time.Time) ([]*models.SettlementSchedule, error) {
	var schedules []*models.SettlementSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND settlement_date <= ?", models.ScheduleStatusScheduled, now).
		Order("settlement_date ASC, id ASC").
		Find(&schedules).Error
	return schedules, err
}

// ClaimProcessing 以条件更新独占批次（scheduled -> processing）
// 返回 gorm.ErrRecordNotFound 表示批次已被其他处理器认领
func (r *SettlementRepository) ClaimProcessing(ctx context.Context, batchID int64) error {
	result := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ? AND status = ?", batchID, models.ScheduleStatusScheduled).
		Update("status", models.ScheduleStatusProcessing)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkCompleted 将批次置为已完成
func (r *SettlementRepository) MarkCompleted(ctx context.Context, batchID int64, processedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ? AND status = ?", batchID, models.ScheduleStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.ScheduleStatusCompleted,
			"processed_at": processedAt,
		}).Error
}

// MarkFailed 将批次置为失败并记录原因
func (r *SettlementRepository) MarkFailed(ctx context.Context, batchID int64, reason string) error {
	return r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status":         models.ScheduleStatusFailed,
			"failure_reason": reason,
		}).Error
}

// RescheduleFailed 将失败批次重新置为待结算（人工修复后重试）
func (r *SettlementRepository) RescheduleFailed(ctx context.Context, batchID int64, settlementDate time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ? AND status = ?", batchID, models.ScheduleStatusFailed).
		Updates(map[string]interface{}{
			"status":          models.ScheduleStatusScheduled,
			"settlement_date": settlementDate,
			"failure_reason":  nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSettlementDate 调整批次结算日（仅限待结算批次）
func (r *SettlementRepository) UpdateSettlementDate(ctx context.Context, batchID int64, settlementDate time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("id = ? AND status = ?", batchID, models.ScheduleStatusScheduled).
		Update("settlement_date", settlementDate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ScheduleFilter 批次查询过滤条件
type ScheduleFilter struct {
	SellerID  *int64
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

// List 获取批次列表
func (r *SettlementRepository) List(ctx context.Context, filter *ScheduleFilter, offset, limit int) ([]*models.SettlementSchedule, int64, error) {
	var schedules []*models.SettlementSchedule
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SettlementSchedule{})
	query = applyScheduleFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("settlement_date DESC, id DESC").Offset(offset).Limit(limit).Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	return schedules, total, nil
}

// ListForExport 获取用于导出的批次（含卖家信息，不分页）
func (r *SettlementRepository) ListForExport(ctx context.Context, filter *ScheduleFilter) ([]*models.SettlementSchedule, error) {
	var schedules []*models.SettlementSchedule
	query := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).Preload("Seller")
	query = applyScheduleFilter(query, filter)
	err := query.Order("settlement_date ASC, id ASC").Find(&schedules).Error
	return schedules, err
}

// CountByStatus 统计各状态批次数
func (r *SettlementRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// Summary 统计窗口期内的批次汇总
func (r *SettlementRepository) Summary(ctx context.Context, start, end *time.Time) (*models.SettlementSummary, error) {
	type row struct {
		Status string
		Count  int
		Amount float64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount")
	if start != nil {
		query = query.Where("settlement_date >= ?", *start)
	}
	if end != nil {
		query = query.Where("settlement_date <= ?", *end)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &models.SettlementSummary{}
	for _, r := range rows {
		summary.TotalBatches += r.Count
		summary.TotalAmount += r.Amount
		switch r.Status {
		case models.ScheduleStatusScheduled, models.ScheduleStatusProcessing:
			summary.ScheduledCount += r.Count
		case models.ScheduleStatusCompleted:
			summary.CompletedCount += r.Count
		case models.ScheduleStatusFailed:
			summary.FailedCount += r.Count
		}
	}
	return summary, nil
}

// SumCompletedBetween 统计窗口期内已完成批次的结算金额
func (r *SettlementRepository) SumCompletedBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.SettlementSchedule{}).
		Where("status = ? AND processed_at >= ? AND processed_at < ?", models.ScheduleStatusCompleted, start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	return total, err
}

func applyScheduleFilter(query *gorm.DB, filter *ScheduleFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("settlement_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("settlement_date <= ?", *filter.EndDate)
	}
	return query
}
