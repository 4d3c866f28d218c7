// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// PartnerRepository 配送员仓储
type PartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建配送员仓储
func NewPartnerRepository(db *gorm.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// Create 创建配送员
func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

// GetByID 根据 ID 获取配送员
func (r *PartnerRepository) GetByID(ctx context.Context, id int64) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).First(&partner, id).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// GetByPhone 根据手机号获取配送员
func (r *PartnerRepository) GetByPhone(ctx context.Context, phone string) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// Update 更新配送员
func (r *PartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Save(partner).Error
}

// UpdateStatus 更新配送员状态
func (r *PartnerRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 获取配送员列表
func (r *PartnerRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.Partner, int64, error) {
	var partners []*models.Partner
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Partner{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&partners).Error; err != nil {
		return nil, 0, err
	}

	return partners, total, nil
}
