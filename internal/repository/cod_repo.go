// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// CODRepository 代收货款仓储
type CODRepository struct {
	db *gorm.DB
}

// NewCODRepository 创建代收货款仓储
func NewCODRepository(db *gorm.DB) *CODRepository {
	return &CODRepository{db: db}
}

// Create 创建代收记录
// order_id 上的唯一索引保证同一订单只上报一次，重复插入返回 gorm.ErrDuplicatedKey
func (r *CODRepository) Create(ctx context.Context, collection *models.CODCollection) error {
	return r.db.WithContext(ctx).Create(collection).Error
}

// GetByID 根据 ID 获取代收记录
func (r *CODRepository) GetByID(ctx context.Context, id int64) (*models.CODCollection, error) {
	var collection models.CODCollection
	err := r.db.WithContext(ctx).First(&collection, id).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// GetByOrderID 根据订单 ID 获取代收记录
func (r *CODRepository) GetByOrderID(ctx context.Context, orderID int64) (*models.CODCollection, error) {
	var collection models.CODCollection
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// MarkRemitted 将代收记录置为已回款（条件更新，保证幂等）
func (r *CODRepository) MarkRemitted(ctx context.Context, id int64, remittedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.CODCollection{}).
		Where("id = ? AND remittance_status = ?", id, models.RemittanceStatusCollected).
		Updates(map[string]interface{}{
			"remittance_status": models.RemittanceStatusRemitted,
			"remitted_at":       remittedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CODFilter 代收记录查询过滤条件
type CODFilter struct {
	SellerID         *int64
	PartnerID        *int64
	RemittanceStatus string
	StartDate        *time.Time
	EndDate          *time.Time
}

// List 获取代收记录列表
func (r *CODRepository) List(ctx context.Context, filter *CODFilter, offset, limit int) ([]*models.CODCollection, int64, error) {
	var collections []*models.CODCollection
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CODCollection{})

	if filter != nil {
		if filter.SellerID != nil {
			query = query.Where("seller_id = ?", *filter.SellerID)
		}
		if filter.PartnerID != nil {
			query = query.Where("partner_id = ?", *filter.PartnerID)
		}
		if filter.RemittanceStatus != "" {
			query = query.Where("remittance_status = ?", filter.RemittanceStatus)
		}
		if filter.StartDate != nil {
			query = query.Where("collected_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			query = query.Where("collected_at <= ?", *filter.EndDate)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&collections).Error; err != nil {
		return nil, 0, err
	}

	return collections, total, nil
}

// SumCollected 统计累计代收金额
func (r *CODRepository) SumCollected(ctx context.Context, sellerID *int64) (float64, error) {
	var total float64
	query := r.db.WithContext(ctx).Model(&models.CODCollection{})
	if sellerID != nil {
		query = query.Where("seller_id = ?", *sellerID)
	}
	err := query.Select("COALESCE(SUM(collected_amount), 0)").Scan(&total).Error
	return total, err
}

// SumPendingRemittance 统计未回款的代收净额
func (r *CODRepository) SumPendingRemittance(ctx context.Context, sellerID *int64) (float64, error) {
	var total float64
	query := r.db.WithContext(ctx).Model(&models.CODCollection{}).
		Where("remittance_status = ?", models.RemittanceStatusCollected)
	if sellerID != nil {
		query = query.Where("seller_id = ?", *sellerID)
	}
	err := query.Select("COALESCE(SUM(net_settlement), 0)").Scan(&total).Error
	return total, err
}
