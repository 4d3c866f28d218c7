// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// WithdrawalRepository 提现申请仓储
type WithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现申请仓储
func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create 创建提现申请
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

// GetByID 根据 ID 获取提现申请
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	var withdrawal models.WithdrawalRequest
	err := r.db.WithContext(ctx).First(&withdrawal, id).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// GetByWithdrawalNo 根据提现单号获取申请
func (r *WithdrawalRepository) GetByWithdrawalNo(ctx context.Context, withdrawalNo string) (*models.WithdrawalRequest, error) {
	var withdrawal models.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("withdrawal_no = ?", withdrawalNo).First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// Update 更新提现申请
func (r *WithdrawalRepository) Update(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Save(withdrawal).Error
}

// CountOutstanding 统计配送员未完结（待审核/打款中）的申请数
func (r *WithdrawalRepository) CountOutstanding(ctx context.Context, partnerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("partner_id = ? AND status IN ?", partnerID,
			[]string{models.WithdrawalStatusPending, models.WithdrawalStatusProcessing}).
		Count(&count).Error
	return count, err
}

// ClaimProcessing 以条件更新独占申请（pending -> processing）
// 返回 gorm.ErrRecordNotFound 表示申请已被其他审核流程处理
func (r *WithdrawalRepository) ClaimProcessing(ctx context.Context, id int64, reviewerID int64) error {
	result := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":      models.WithdrawalStatusProcessing,
			"reviewed_by": reviewerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByPartner 获取配送员的提现申请列表
func (r *WithdrawalRepository) ListByPartner(ctx context.Context, partnerID int64, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	var withdrawals []*models.WithdrawalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).Where("partner_id = ?", partnerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&withdrawals).Error; err != nil {
		return nil, 0, err
	}

	return withdrawals, total, nil
}

// List 获取提现申请列表（管理端）
func (r *WithdrawalRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	var withdrawals []*models.WithdrawalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Partner").Order("id DESC").Offset(offset).Limit(limit).Find(&withdrawals).Error; err != nil {
		return nil, 0, err
	}

	return withdrawals, total, nil
}

// Summary 统计提现汇总
func (r *WithdrawalRepository) Summary(ctx context.Context) (*models.WithdrawalSummary, error) {
	type row struct {
		Status string
		Count  int
		Amount float64
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &models.WithdrawalSummary{}
	for _, r := range rows {
		summary.TotalWithdrawals += r.Count
		summary.TotalAmount += r.Amount
		switch r.Status {
		case models.WithdrawalStatusPending, models.WithdrawalStatusProcessing:
			summary.PendingCount += r.Count
			summary.PendingAmount += r.Amount
		case models.WithdrawalStatusCompleted:
			summary.CompletedCount += r.Count
			summary.CompletedAmount += r.Amount
		case models.WithdrawalStatusRejected:
			summary.RejectedCount += r.Count
		}
	}
	return summary, nil
}
