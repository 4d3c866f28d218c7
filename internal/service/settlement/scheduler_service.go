// Package settlement 提供订单结算排期与批次处理服务
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	"github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	sellersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
)

// SchedulerService 结算排期服务
// 订单妥投时计算佣金与卖家应得，并把订单挂入对应结算日的批次。
type SchedulerService struct {
	orderRepo      *repository.OrderRepository
	sellerRepo     *repository.SellerRepository
	settlementRepo *repository.SettlementRepository
	ledgerService  *ledger.Service
	statsService   *sellersvc.StatsService
	feePercent     float64
}

// NewSchedulerService 创建结算排期服务
func NewSchedulerService(
	orderRepo *repository.OrderRepository,
	sellerRepo *repository.SellerRepository,
	settlementRepo *repository.SettlementRepository,
	ledgerService *ledger.Service,
	statsService *sellersvc.StatsService,
	cfg *config.SettlementConfig,
) *SchedulerService {
	feePercent := 5.0
	if cfg != nil && cfg.DefaultFeePercent > 0 {
		feePercent = cfg.DefaultFeePercent
	}
	return &SchedulerService{
		orderRepo:      orderRepo,
		sellerRepo:     sellerRepo,
		settlementRepo: settlementRepo,
		ledgerService:  ledgerService,
		statsService:   statsService,
		feePercent:     feePercent,
	}
}

// SettlementDate 由妥投日与卖家等级推算结算日
// 落在周六/周日时顺延到下周一。
func SettlementDate(deliveredAt time.Time, tier string) time.Time {
	date := deliveredAt.AddDate(0, 0, models.TierSettlementDays(tier))
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch date.Weekday() {
	case time.Saturday:
		date = date.AddDate(0, 0, 2)
	case time.Sunday:
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// ScheduleResult 排期结果
type ScheduleResult struct {
	Order          *models.Order              `json:"order"`
	Schedule       *models.SettlementSchedule `json:"schedule"`
	LedgerEntry    *models.SellerLedgerEntry  `json:"ledger_entry"`
	PlatformFee    float64                    `json:"platform_fee"`
	SellerEarning  float64                    `json:"seller_earning"`
	SettlementDate time.Time                  `json:"settlement_date"`
}

// ScheduleOnDelivery 订单妥投后触发结算排期
// 同一订单重复触发返回 Conflict，绝不重复入账。
func (s *SchedulerService) ScheduleOnDelivery(ctx context.Context, orderID int64, deliveredAt time.Time) (*ScheduleResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	switch order.SettlementStatus {
	case models.SettlementStatusScheduled:
		return nil, apperrors.ErrOrderAlreadyScheduled
	case models.SettlementStatusSettled:
		return nil, apperrors.ErrOrderAlreadySettled
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, apperrors.ErrOrderNotDelivered
	}

	sellerRecord, err := s.sellerRepo.GetByID(ctx, order.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSellerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	feePercent := s.feePercent
	if sellerRecord.FeePercent != nil {
		feePercent = *sellerRecord.FeePercent
	}

	platformFee := utils.PercentRound2(order.TotalValue, feePercent)
	earning := utils.NonNegative(utils.Round2(order.TotalValue - order.ShippingCost - platformFee))
	settlementDate := SettlementDate(deliveredAt, sellerRecord.Tier)

	// 条件更新认领订单，并发重复触发在这里收敛为 Conflict
	claim := map[string]interface{}{
		"platform_fee":      platformFee,
		"seller_earning":    earning,
		"settlement_status": models.SettlementStatusScheduled,
		"settlement_date":   settlementDate,
		"delivered_at":      deliveredAt,
	}
	if err := s.orderRepo.ClaimForSettlement(ctx, order.ID, claim); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderAlreadyScheduled
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	schedule, err := s.findOrCreateBatch(ctx, sellerRecord, settlementDate)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.SetBatch(ctx, order.ID, schedule.ID); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if err := s.settlementRepo.AddOrderAmount(ctx, schedule.ID, earning); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	var entry *models.SellerLedgerEntry
	if earning > 0 {
		entry, err = s.ledgerService.AppendSeller(ctx, &ledger.SellerAppendRequest{
			SellerID:    order.SellerID,
			Type:        models.EntryTypeEarning,
			Amount:      earning,
			Description: fmt.Sprintf("订单 %s 妥投入账", order.OrderNo),
			OrderID:     &order.ID,
			BatchID:     &schedule.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.statsService.ApplyDelta(ctx, order.SellerID, &sellersvc.StatsDelta{
		GrossRevenue:      order.TotalValue,
		ShippingCost:      order.ShippingCost,
		PlatformFees:      platformFee,
		PendingSettlement: earning,
	}); err != nil {
		logger.Error("更新卖家统计失败", logger.SellerID(order.SellerID), logger.OrderNo(order.OrderNo))
	}
	if err := s.statsService.SetNextSettlementDate(ctx, order.SellerID, settlementDate); err != nil {
		logger.Error("更新下次结算日失败", logger.SellerID(order.SellerID))
	}

	order.PlatformFee = platformFee
	order.SellerEarning = earning
	order.SettlementStatus = models.SettlementStatusScheduled
	order.SettlementDate = &settlementDate
	order.SettlementBatchID = &schedule.ID
	order.DeliveredAt = &deliveredAt

	return &ScheduleResult{
		Order:          order,
		Schedule:       schedule,
		LedgerEntry:    entry,
		PlatformFee:    platformFee,
		SellerEarning:  earning,
		SettlementDate: settlementDate,
	}, nil
}

// findOrCreateBatch 查找或创建卖家在结算日的待结算批次
func (s *SchedulerService) findOrCreateBatch(ctx context.Context, sellerRecord *models.Seller, settlementDate time.Time) (*models.SettlementSchedule, error) {
	schedule, err := s.settlementRepo.FindOpenBatch(ctx, sellerRecord.ID, settlementDate)
	if err == nil {
		return schedule, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	schedule = &models.SettlementSchedule{
		BatchNo:        utils.GenerateBatchNo(),
		SellerID:       sellerRecord.ID,
		Tier:           sellerRecord.Tier,
		SettlementDate: settlementDate,
		Status:         models.ScheduleStatusScheduled,
	}
	if err := s.settlementRepo.Create(ctx, schedule); err != nil {
		// 并发创建同一批次时读回已存在的批次
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.settlementRepo.FindOpenBatch(ctx, sellerRecord.ID, settlementDate)
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return schedule, nil
}
