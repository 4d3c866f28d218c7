// Package tier 提供卖家等级评估服务
package tier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// 等级评估阈值
const (
	GoldOrderThreshold      = 800
	SilverOrderThreshold    = 300
	GoldKeepOrderFloor      = 500
	SilverKeepOrderFloor    = 150
	UpgradeRTOLimit         = 15.0
	GoldDowngradeRTOLimit   = 15.0
	SilverDowngradeRTOLimit = 20.0
)

// Service 等级评估服务
type Service struct {
	sellerRepo  *repository.SellerRepository
	orderRepo   *repository.OrderRepository
	statsRepo   *repository.StatsRepository
	tierLogRepo *repository.TierLogRepository
}

// NewService 创建等级评估服务
func NewService(
	sellerRepo *repository.SellerRepository,
	orderRepo *repository.OrderRepository,
	statsRepo *repository.StatsRepository,
	tierLogRepo *repository.TierLogRepository,
) *Service {
	return &Service{
		sellerRepo:  sellerRepo,
		orderRepo:   orderRepo,
		statsRepo:   statsRepo,
		tierLogRepo: tierLogRepo,
	}
}

// decideTier 由窗口指标推导新等级
// 先算升级候选，再做降级裁决；降级规则可以推翻升级结果。
func decideTier(current string, m *models.TierMetrics) (newTier, reason string) {
	newTier = current
	reason = "指标未触发等级变化"

	// 升级候选（不会把已有 gold 降下来）
	if m.Orders > GoldOrderThreshold && m.RTOPercent <= UpgradeRTOLimit {
		newTier = models.SellerTierGold
		reason = fmt.Sprintf("月订单 %d 超过 %d 且 RTO %.2f%% 达标，升为黄金", m.Orders, GoldOrderThreshold, m.RTOPercent)
	} else if m.Orders > SilverOrderThreshold && m.RTOPercent <= UpgradeRTOLimit && current != models.SellerTierGold {
		newTier = models.SellerTierSilver
		reason = fmt.Sprintf("月订单 %d 超过 %d 且 RTO %.2f%% 达标，升为白银", m.Orders, SilverOrderThreshold, m.RTOPercent)
	}

	// 降级裁决，基于当前等级，可覆盖上面的升级结果
	switch current {
	case models.SellerTierGold:
		if m.Orders < GoldKeepOrderFloor || m.RTOPercent > GoldDowngradeRTOLimit {
			newTier = models.SellerTierSilver
			reason = fmt.Sprintf("月订单 %d 低于 %d 或 RTO %.2f%% 超限，黄金降为白银", m.Orders, GoldKeepOrderFloor, m.RTOPercent)
		}
	case models.SellerTierSilver:
		if m.Orders < SilverKeepOrderFloor || m.RTOPercent > SilverDowngradeRTOLimit {
			newTier = models.SellerTierBronze
			reason = fmt.Sprintf("月订单 %d 低于 %d 或 RTO %.2f%% 超限，白银降为青铜", m.Orders, SilverKeepOrderFloor, m.RTOPercent)
		}
	}

	return newTier, reason
}

// EvaluationResult 单个卖家的评估结果
type EvaluationResult struct {
	SellerID     int64               `json:"seller_id"`
	PreviousTier string              `json:"previous_tier"`
	NewTier      string              `json:"new_tier"`
	Changed      bool                `json:"changed"`
	Metrics      *models.TierMetrics `json:"metrics"`
	Reason       string              `json:"reason"`
}

// EvaluateSeller 评估单个卖家
// 评估窗口为 asOf 往前一个自然月；无论等级是否变化都写入评估日志。
func (s *Service) EvaluateSeller(ctx context.Context, sellerID int64, asOf time.Time, triggeredBy string) (*EvaluationResult, error) {
	sellerRecord, err := s.sellerRepo.GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSellerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	periodStart := asOf.AddDate(0, -1, 0)
	m, err := s.orderRepo.PeriodMetrics(ctx, sellerID, periodStart, asOf)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	m.RTOPercent = utils.Round2(m.RTOPercent)

	newTier, reason := decideTier(sellerRecord.Tier, m)
	changed := newTier != sellerRecord.Tier
	autoUpgrade := changed && models.TierSettlementDays(newTier) < models.TierSettlementDays(sellerRecord.Tier)

	log := &models.TierEvaluationLog{
		SellerID:        sellerID,
		EvaluationDate:  asOf,
		PeriodStart:     periodStart,
		PeriodEnd:       asOf,
		PreviousTier:    sellerRecord.Tier,
		NewTier:         newTier,
		MonthlyOrders:   m.Orders,
		DeliveredOrders: m.Delivered,
		RTOOrders:       m.RTO,
		RTOPercent:      m.RTOPercent,
		Reason:          reason,
		AutoUpgrade:     autoUpgrade,
		TriggeredBy:     triggeredBy,
	}
	if err := s.tierLogRepo.Create(ctx, log); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	if changed {
		if err := s.sellerRepo.UpdateTier(ctx, sellerID, newTier, asOf); err != nil {
			return nil, apperrors.ErrDatabaseError.WithError(err)
		}
		if err := s.statsRepo.UpdateTier(ctx, sellerID, newTier); err != nil {
			logger.Error("更新统计缓存等级失败", logger.SellerID(sellerID))
		}
		metrics.GetMetrics().RecordTierChange(sellerRecord.Tier, newTier)
		logger.Info("卖家等级变更",
			logger.SellerID(sellerID),
			logger.Action("tier_change"))
	}

	return &EvaluationResult{
		SellerID:     sellerID,
		PreviousTier: sellerRecord.Tier,
		NewTier:      newTier,
		Changed:      changed,
		Metrics:      m,
		Reason:       reason,
	}, nil
}

// EvaluateAll 评估全部未注销卖家（月度任务入口）
// 单个卖家评估失败只记录日志，不中断整轮评估。
func (s *Service) EvaluateAll(ctx context.Context, asOf time.Time, triggeredBy string) ([]*EvaluationResult, error) {
	sellers, err := s.sellerRepo.ListActive(ctx)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	results := make([]*EvaluationResult, 0, len(sellers))
	for _, sellerRecord := range sellers {
		result, err := s.EvaluateSeller(ctx, sellerRecord.ID, asOf, triggeredBy)
		if err != nil {
			logger.Error("卖家等级评估失败", logger.SellerID(sellerRecord.ID))
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// History 获取卖家评估历史
func (s *Service) History(ctx context.Context, sellerID int64, p utils.Pagination) ([]*models.TierEvaluationLog, int64, error) {
	logs, total, err := s.tierLogRepo.ListBySeller(ctx, sellerID, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return logs, total, nil
}
