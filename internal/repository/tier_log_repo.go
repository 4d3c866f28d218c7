// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// TierLogRepository 等级评估日志仓储（只追加）
type TierLogRepository struct {
	db *gorm.DB
}

// NewTierLogRepository 创建等级评估日志仓储
func NewTierLogRepository(db *gorm.DB) *TierLogRepository {
	return &TierLogRepository{db: db}
}

// Create 追加评估日志
func (r *TierLogRepository) Create(ctx context.Context, log *models.TierEvaluationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListBySeller 获取卖家的评估日志列表
func (r *TierLogRepository) ListBySeller(ctx context.Context, sellerID int64, offset, limit int) ([]*models.TierEvaluationLog, int64, error) {
	var logs []*models.TierEvaluationLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TierEvaluationLog{}).Where("seller_id = ?", sellerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// GetLatestBySeller 获取卖家最近一次评估日志
func (r *TierLogRepository) GetLatestBySeller(ctx context.Context, sellerID int64) (*models.TierEvaluationLog, error) {
	var log models.TierEvaluationLog
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("id DESC").
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}
