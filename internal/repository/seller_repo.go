// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// SellerRepository 卖家仓储
type SellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓储
func NewSellerRepository(db *gorm.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

// Create 创建卖家
func (r *SellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

// GetByID 根据 ID 获取卖家
func (r *SellerRepository) GetByID(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).First(&seller, id).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// GetByPhone 根据手机号获取卖家
func (r *SellerRepository) GetByPhone(ctx context.Context, phone string) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// Update 更新卖家
func (r *SellerRepository) Update(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Save(seller).Error
}

// UpdateTier 更新卖家等级
func (r *SellerRepository) UpdateTier(ctx context.Context, id int64, tier string, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Seller{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tier":            tier,
			"tier_updated_at": updatedAt,
		}).Error
}

// UpdateStatus 更新卖家状态
func (r *SellerRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Seller{}).
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

// SellerFilter 卖家查询过滤条件
type SellerFilter struct {
	Tier   string
	Status string
}

// List 获取卖家列表
func (r *SellerRepository) List(ctx context.Context, filter *SellerFilter, offset, limit int) ([]*models.Seller, int64, error) {
	var sellers []*models.Seller
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Seller{})

	if filter != nil {
		if filter.Tier != "" {
			query = query.Where("tier = ?", filter.Tier)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&sellers).Error; err != nil {
		return nil, 0, err
	}

	return sellers, total, nil
}

// ListActive 获取全部正常状态卖家（等级评估任务使用）
func (r *SellerRepository) ListActive(ctx context.Context) ([]*models.Seller, error) {
	var sellers []*models.Seller
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{models.SellerStatusDeleted}).
		Order("id ASC").
		Find(&sellers).Error
	return sellers, err
}
