// Package repository 提供数据访问层
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// StatsRepository 卖家统计仓储
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建卖家统计仓储
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetBySeller 获取卖家统计
func (r *StatsRepository) GetBySeller(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	var stats models.SellerStats
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetOrCreate 获取卖家统计，不存在时初始化一行
func (r *StatsRepository) GetOrCreate(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	stats, err := r.GetBySeller(ctx, sellerID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stats = &models.SellerStats{
		SellerID:    sellerID,
		CurrentTier: models.SellerTierBronze,
	}
	if err := r.db.WithContext(ctx).Create(stats).Error; err != nil {
		// 并发初始化时读回已存在的行
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetBySeller(ctx, sellerID)
		}
		return nil, err
	}
	return stats, nil
}

// Save 保存卖家统计
func (r *StatsRepository) Save(ctx context.Context, stats *models.SellerStats) error {
	return r.db.WithContext(ctx).Save(stats).Error
}

// Increment 对统计字段做原子增量更新
// updates 的值使用 gorm.Expr 表达增量，如 gorm.Expr("total_orders + 1")
func (r *StatsRepository) Increment(ctx context.Context, sellerID int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.SellerStats{}).
		Where("seller_id = ?", sellerID).
		Updates(updates).Error
}

// UpdateTier 更新统计缓存中的当前等级
func (r *StatsRepository) UpdateTier(ctx context.Context, sellerID int64, tier string) error {
	return r.db.WithContext(ctx).Model(&models.SellerStats{}).
		Where("seller_id = ?", sellerID).
		Update("current_tier", tier).Error
}
