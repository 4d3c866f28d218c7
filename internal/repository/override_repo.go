// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// OverrideRepository 人工干预审计记录仓储（只追加）
type OverrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository 创建审计记录仓储
func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Create 追加审计记录
func (r *OverrideRepository) Create(ctx context.Context, override *models.AdminOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

// OverrideFilter 审计记录查询过滤条件
type OverrideFilter struct {
	AdminID    *int64
	TargetType string
	TargetID   *int64
	Action     string
}

// List 获取审计记录列表
func (r *OverrideRepository) List(ctx context.Context, filter *OverrideFilter, offset, limit int) ([]*models.AdminOverride, int64, error) {
	var overrides []*models.AdminOverride
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AdminOverride{})

	if filter != nil {
		if filter.AdminID != nil {
			query = query.Where("admin_id = ?", *filter.AdminID)
		}
		if filter.TargetType != "" {
			query = query.Where("target_type = ?", filter.TargetType)
		}
		if filter.TargetID != nil {
			query = query.Where("target_id = ?", *filter.TargetID)
		}
		if filter.Action != "" {
			query = query.Where("action = ?", filter.Action)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&overrides).Error; err != nil {
		return nil, 0, err
	}

	return overrides, total, nil
}

// ListByTarget 获取指定对象的全部审计记录
func (r *OverrideRepository) ListByTarget(ctx context.Context, targetType string, targetID int64) ([]*models.AdminOverride, error) {
	var overrides []*models.AdminOverride
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id ASC").
		Find(&overrides).Error
	return overrides, err
}
