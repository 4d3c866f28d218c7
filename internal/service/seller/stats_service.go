// Package seller 提供卖家侧服务
package seller

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// StatsService 卖家统计服务
// 统计是缓存而非事实来源：任何时候都可以由订单历史与账本重放得出。
type StatsService struct {
	statsRepo  *repository.StatsRepository
	orderRepo  *repository.OrderRepository
	ledgerRepo *repository.LedgerRepository
	codRepo    *repository.CODRepository
	sellerRepo *repository.SellerRepository
}

// NewStatsService 创建卖家统计服务
func NewStatsService(
	statsRepo *repository.StatsRepository,
	orderRepo *repository.OrderRepository,
	ledgerRepo *repository.LedgerRepository,
	codRepo *repository.CODRepository,
	sellerRepo *repository.SellerRepository,
) *StatsService {
	return &StatsService{
		statsRepo:  statsRepo,
		orderRepo:  orderRepo,
		ledgerRepo: ledgerRepo,
		codRepo:    codRepo,
		sellerRepo: sellerRepo,
	}
}

// Get 获取卖家统计
func (s *StatsService) Get(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	stats, err := s.statsRepo.GetOrCreate(ctx, sellerID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return stats, nil
}

// StatsDelta 统计增量
type StatsDelta struct {
	GrossRevenue      float64
	ShippingCost      float64
	PlatformFees      float64
	TotalSettled      float64
	PendingSettlement float64
	Available         float64
	CodCollected      float64
	CodPending        float64
}

// ApplyDelta 对统计缓存做原子增量更新
func (s *StatsService) ApplyDelta(ctx context.Context, sellerID int64, delta *StatsDelta) error {
	if _, err := s.statsRepo.GetOrCreate(ctx, sellerID); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}

	updates := map[string]interface{}{}
	if delta.GrossRevenue != 0 {
		updates["gross_revenue"] = gorm.Expr("gross_revenue + ?", delta.GrossRevenue)
	}
	if delta.ShippingCost != 0 {
		updates["shipping_cost"] = gorm.Expr("shipping_cost + ?", delta.ShippingCost)
	}
	if delta.PlatformFees != 0 {
		updates["platform_fees"] = gorm.Expr("platform_fees + ?", delta.PlatformFees)
	}
	if delta.TotalSettled != 0 {
		updates["total_settled"] = gorm.Expr("total_settled + ?", delta.TotalSettled)
	}
	if delta.PendingSettlement != 0 {
		updates["pending_settlement"] = gorm.Expr("pending_settlement + ?", delta.PendingSettlement)
	}
	if delta.Available != 0 {
		updates["available_for_withdrawal"] = gorm.Expr("available_for_withdrawal + ?", delta.Available)
	}
	if delta.CodCollected != 0 {
		updates["total_cod_collected"] = gorm.Expr("total_cod_collected + ?", delta.CodCollected)
	}
	if delta.CodPending != 0 {
		updates["pending_cod_remittance"] = gorm.Expr("pending_cod_remittance + ?", delta.CodPending)
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.statsRepo.Increment(ctx, sellerID, updates); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// SetNextSettlementDate 更新最近的下次结算日（仅当更早时不回退）
func (s *StatsService) SetNextSettlementDate(ctx context.Context, sellerID int64, date time.Time) error {
	stats, err := s.statsRepo.GetOrCreate(ctx, sellerID)
	if err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if stats.NextSettlementDate == nil || date.Before(*stats.NextSettlementDate) {
		stats.NextSettlementDate = &date
		if err := s.statsRepo.Save(ctx, stats); err != nil {
			return apperrors.ErrDatabaseError.WithError(err)
		}
	}
	return nil
}

// Recompute 从订单历史与账本完整重算卖家统计
// 用于修复增量更新产生的漂移；重算结果覆盖缓存行。
func (s *StatsService) Recompute(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	sellerRecord, err := s.sellerRepo.GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSellerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	stats, err := s.statsRepo.GetOrCreate(ctx, sellerID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	// 订单口径：逐页扫描全部订单
	var (
		totalOrders, delivered, rto, cancelled   int
		grossRevenue, shippingCost, platformFees float64
	)
	const pageSize = 500
	filter := &repository.OrderFilter{SellerID: &sellerID}
	for offset := 0; ; offset += pageSize {
		orders, _, err := s.orderRepo.List(ctx, filter, offset, pageSize)
		if err != nil {
			return nil, apperrors.ErrDatabaseError.WithError(err)
		}
		for _, o := range orders {
			totalOrders++
			switch o.Status {
			case models.OrderStatusDelivered:
				delivered++
				grossRevenue = utils.Round2(grossRevenue + o.TotalValue)
				shippingCost = utils.Round2(shippingCost + o.ShippingCost)
				platformFees = utils.Round2(platformFees + o.PlatformFee)
			case models.OrderStatusRTO:
				rto++
			case models.OrderStatusCancelled:
				cancelled++
			}
		}
		if len(orders) < pageSize {
			break
		}
	}

	// 账本口径：直接读取链尾快照
	var pending, available, totalSettled float64
	last, err := s.ledgerRepo.GetLastSellerEntry(ctx, sellerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if last != nil {
		pending = last.PendingAfter
		available = last.AvailableAfter
	}
	totalSettled, err = s.ledgerRepo.SumSellerByType(ctx, sellerID, models.EntryTypeSettlement)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	// COD 口径
	codCollected, err := s.codRepo.SumCollected(ctx, &sellerID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	codPending, err := s.codRepo.SumPendingRemittance(ctx, &sellerID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	stats.CurrentTier = sellerRecord.Tier
	stats.TotalOrders = totalOrders
	stats.DeliveredOrders = delivered
	stats.RTOOrders = rto
	stats.CancelledOrders = cancelled
	stats.GrossRevenue = grossRevenue
	stats.ShippingCost = shippingCost
	stats.PlatformFees = platformFees
	stats.TotalSettled = utils.Round2(totalSettled)
	stats.PendingSettlement = pending
	stats.AvailableForWithdrawal = available
	stats.TotalCodCollected = utils.Round2(codCollected)
	stats.PendingCodRemittance = utils.Round2(codPending)
	if totalOrders > 0 {
		stats.RTOPercent = utils.Round2(float64(rto) / float64(totalOrders) * 100)
		stats.DeliverySuccessRate = utils.Round2(float64(delivered) / float64(totalOrders) * 100)
	} else {
		stats.RTOPercent = 0
		stats.DeliverySuccessRate = 0
	}

	if err := s.statsRepo.Save(ctx, stats); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return stats, nil
}

// IncrementOrderCounters 记录订单状态计数（订单事件入口调用）
func (s *StatsService) IncrementOrderCounters(ctx context.Context, sellerID int64, status string) error {
	if _, err := s.statsRepo.GetOrCreate(ctx, sellerID); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}

	updates := map[string]interface{}{
		"total_orders": gorm.Expr("total_orders + 1"),
	}
	switch status {
	case models.OrderStatusDelivered:
		updates["delivered_orders"] = gorm.Expr("delivered_orders + 1")
	case models.OrderStatusRTO:
		updates["rto_orders"] = gorm.Expr("rto_orders + 1")
	case models.OrderStatusCancelled:
		updates["cancelled_orders"] = gorm.Expr("cancelled_orders + 1")
	}

	if err := s.statsRepo.Increment(ctx, sellerID, updates); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}
	return nil
}
