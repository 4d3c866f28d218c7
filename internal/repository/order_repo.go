// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// OrderRepository 订单仓储
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update 更新订单
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// ClaimForSettlement 将订单从未排期置为已排期（条件更新，保证同一订单只排期一次）
// 返回 gorm.ErrRecordNotFound 表示订单已被排期或不存在
func (r *OrderRepository) ClaimForSettlement(ctx context.Context, orderID int64, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND settlement_status = ?", orderID, models.SettlementStatusUnscheduled).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetBatch 将订单挂入结算批次
func (r *OrderRepository) SetBatch(ctx context.Context, orderID, batchID int64) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("settlement_batch_id", batchID).Error
}

// MarkSettledByBatch 将批次内全部订单标记为已结算
func (r *OrderRepository) MarkSettledByBatch(ctx context.Context, batchID int64) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("settlement_batch_id = ? AND settlement_status = ?", batchID, models.SettlementStatusScheduled).
		Update("settlement_status", models.SettlementStatusSettled).Error
}

// SumPlatformFees 汇总已计费订单的平台佣金
func (r *OrderRepository) SumPlatformFees(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("settlement_status IN ?", []string{models.SettlementStatusScheduled, models.SettlementStatusSettled}).
		Select("COALESCE(SUM(platform_fee), 0)").
		Row().Scan(&total)
	return total, err
}

// ListByBatch 获取批次内的订单
func (r *OrderRepository) ListByBatch(ctx context.Context, batchID int64) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("settlement_batch_id = ?", batchID).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

// OrderFilter 订单查询过滤条件
type OrderFilter struct {
	SellerID         *int64
	PartnerID        *int64
	Status           string
	SettlementStatus string
	PaymentMode      string
	StartDate        *time.Time
	EndDate          *time.Time
}

// List 获取订单列表
func (r *OrderRepository) List(ctx context.Context, filter *OrderFilter, offset, limit int) ([]*models.Order, int64, error) {
	var orders []*models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filter != nil {
		if filter.SellerID != nil {
			query = query.Where("seller_id = ?", *filter.SellerID)
		}
		if filter.PartnerID != nil {
			query = query.Where("partner_id = ?", *filter.PartnerID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.SettlementStatus != "" {
			query = query.Where("settlement_status = ?", filter.SettlementStatus)
		}
		if filter.PaymentMode != "" {
			query = query.Where("payment_mode = ?", filter.PaymentMode)
		}
		if filter.StartDate != nil {
			query = query.Where("created_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			query = query.Where("created_at <= ?", *filter.EndDate)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// PeriodMetrics 统计卖家在窗口期内的订单指标（等级评估使用）
func (r *OrderRepository) PeriodMetrics(ctx context.Context, sellerID int64, start, end time.Time) (*models.TierMetrics, error) {
	type row struct {
		Status string
		Count  int
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("seller_id = ? AND created_at >= ? AND created_at < ?", sellerID, start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	metrics := &models.TierMetrics{}
	for _, r := range rows {
		metrics.Orders += r.Count
		switch r.Status {
		case models.OrderStatusDelivered:
			metrics.Delivered += r.Count
		case models.OrderStatusRTO:
			metrics.RTO += r.Count
		case models.OrderStatusCancelled:
			metrics.Cancelled += r.Count
		}
	}

	if metrics.Orders > 0 {
		metrics.RTOPercent = float64(metrics.RTO) / float64(metrics.Orders) * 100
	}

	return metrics, nil
}
