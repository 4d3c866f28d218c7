// Package cod 提供代收货款对账服务
//
// 代收对账跟踪实物现金流，与卖家收入账本相互独立：
// 账本记录平台口径的订单价值/运费/佣金，代收记录配送员实收金额，
// 两边的差异（少收/多收）保留在各自记录中可供审计。
package cod

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	sellersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
)

// 默认代收手续费比例 2%
const DefaultHandlingRate = 0.02

// Service 代收货款服务
type Service struct {
	codRepo      *repository.CODRepository
	orderRepo    *repository.OrderRepository
	statsService *sellersvc.StatsService
	handlingRate float64
}

// NewService 创建代收货款服务
func NewService(
	codRepo *repository.CODRepository,
	orderRepo *repository.OrderRepository,
	statsService *sellersvc.StatsService,
	cfg *config.SettlementConfig,
) *Service {
	rate := DefaultHandlingRate
	if cfg != nil && cfg.CodHandlingRate > 0 {
		rate = cfg.CodHandlingRate
	}
	return &Service{
		codRepo:      codRepo,
		orderRepo:    orderRepo,
		statsService: statsService,
		handlingRate: rate,
	}
}

// ReportRequest 代收上报请求
type ReportRequest struct {
	OrderID         int64     `json:"order_id" binding:"required"`
	PartnerID       int64     `json:"partner_id" binding:"required"`
	CollectedAmount float64   `json:"collected_amount" binding:"required"`
	CollectedAt     time.Time `json:"collected_at"`
}

// ReportCollection 配送员上报代收货款
// 同一订单只允许上报一次，重复上报返回 Conflict。
func (s *Service) ReportCollection(ctx context.Context, req *ReportRequest) (*models.CODCollection, error) {
	if req.CollectedAmount <= 0 {
		return nil, apperrors.ErrCollectedNonPositive
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if order.PaymentMode != models.PaymentModeCod {
		return nil, apperrors.ErrOrderNotCod
	}

	collectedAt := req.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	handlingFee := utils.MulRound2(req.CollectedAmount, s.handlingRate)
	net := utils.NonNegative(utils.Round2(
		req.CollectedAmount - order.ShippingCost - order.PlatformFee - handlingFee))

	collection := &models.CODCollection{
		OrderID:          order.ID,
		SellerID:         order.SellerID,
		PartnerID:        req.PartnerID,
		CodAmount:        order.CodAmount,
		CollectedAmount:  utils.Round2(req.CollectedAmount),
		ShippingCharge:   order.ShippingCost,
		PlatformFee:      order.PlatformFee,
		CodHandlingFee:   handlingFee,
		NetSettlement:    net,
		RemittanceStatus: models.RemittanceStatusCollected,
		CollectedAt:      collectedAt,
	}

	if err := s.codRepo.Create(ctx, collection); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrCodAlreadyCollected
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	if err := s.statsService.ApplyDelta(ctx, order.SellerID, &sellersvc.StatsDelta{
		CodCollected: collection.CollectedAmount,
		CodPending:   collection.NetSettlement,
	}); err != nil {
		logger.Error("代收上报后更新卖家统计失败",
			logger.SellerID(order.SellerID),
			logger.OrderNo(order.OrderNo))
	}

	metrics.GetMetrics().RecordCODCollection()
	logger.Info("代收货款上报",
		logger.OrderNo(order.OrderNo),
		logger.PartnerID(req.PartnerID))

	return collection, nil
}

// ConfirmRemittance 确认代收货款已回款平台
func (s *Service) ConfirmRemittance(ctx context.Context, collectionID int64) (*models.CODCollection, error) {
	collection, err := s.codRepo.GetByID(ctx, collectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCodRecordNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if collection.RemittanceStatus == models.RemittanceStatusRemitted {
		return nil, apperrors.ErrCodAlreadyRemitted
	}

	remittedAt := time.Now()
	if err := s.codRepo.MarkRemitted(ctx, collectionID, remittedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCodAlreadyRemitted
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	if err := s.statsService.ApplyDelta(ctx, collection.SellerID, &sellersvc.StatsDelta{
		CodPending: -collection.NetSettlement,
	}); err != nil {
		logger.Error("回款确认后更新卖家统计失败", logger.SellerID(collection.SellerID))
	}

	collection.RemittanceStatus = models.RemittanceStatusRemitted
	collection.RemittedAt = &remittedAt
	return collection, nil
}

// GetByOrder 根据订单获取代收记录
func (s *Service) GetByOrder(ctx context.Context, orderID int64) (*models.CODCollection, error) {
	collection, err := s.codRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCodRecordNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return collection, nil
}

// List 获取代收记录列表
func (s *Service) List(ctx context.Context, filter *repository.CODFilter, p utils.Pagination) ([]*models.CODCollection, int64, error) {
	collections, total, err := s.codRepo.List(ctx, filter, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return collections, total, nil
}
