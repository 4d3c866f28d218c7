// Package partner 提供配送员计酬与提现服务
package partner

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	"github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
)

// EarningService 配送员计酬服务
type EarningService struct {
	partnerRepo   *repository.PartnerRepository
	orderRepo     *repository.OrderRepository
	ledgerService *ledger.Service
	defaultRate   float64
	slabs         []config.DistanceSlab
}

// NewEarningService 创建计酬服务
func NewEarningService(
	partnerRepo *repository.PartnerRepository,
	orderRepo *repository.OrderRepository,
	ledgerService *ledger.Service,
	cfg *config.PartnerConfig,
) *EarningService {
	rate := 6.0
	var slabs []config.DistanceSlab
	if cfg != nil {
		if cfg.DefaultRatePerKm > 0 {
			rate = cfg.DefaultRatePerKm
		}
		slabs = cfg.DistanceSlabs
	}
	return &EarningService{
		partnerRepo:   partnerRepo,
		orderRepo:     orderRepo,
		ledgerService: ledgerService,
		defaultRate:   rate,
		slabs:         slabs,
	}
}

// slabAddition 按配送距离取阶梯补贴（取满足条件的最高档）
func (s *EarningService) slabAddition(distanceKm float64) float64 {
	var addition float64
	var best float64 = -1
	for _, slab := range s.slabs {
		if distanceKm >= slab.MinKm && slab.MinKm > best {
			best = slab.MinKm
			addition = slab.Addition
		}
	}
	return addition
}

// ComputeEarning 计算配送报酬 = round2(距离×费率 + 阶梯补贴)
func (s *EarningService) ComputeEarning(partnerRecord *models.Partner, distanceKm float64) float64 {
	rate := s.defaultRate
	if partnerRecord.RatePerKm != nil {
		rate = *partnerRecord.RatePerKm
	}
	return utils.Round2(utils.MulRound2(distanceKm, rate) + s.slabAddition(distanceKm))
}

// RecordDeliveryEarning 订单妥投后为配送员入账报酬
func (s *EarningService) RecordDeliveryEarning(ctx context.Context, partnerID, orderID int64) (*models.PartnerLedgerEntry, error) {
	partnerRecord, err := s.partnerRepo.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPartnerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if partnerRecord.Status == models.PartnerStatusDisabled {
		return nil, apperrors.ErrPartnerOnHold.WithMessage("配送员账户已禁用")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, apperrors.ErrOrderNotDelivered
	}

	earning := s.ComputeEarning(partnerRecord, order.DistanceKm)
	if earning <= 0 {
		return nil, apperrors.ErrInvalidAmount.WithMessage("配送报酬计算结果为零")
	}

	return s.ledgerService.AppendPartner(ctx, &ledger.PartnerAppendRequest{
		PartnerID:   partnerID,
		Type:        models.EntryTypeEarning,
		Amount:      earning,
		Description: fmt.Sprintf("订单 %s 配送报酬", order.OrderNo),
		OrderID:     &order.ID,
	})
}

// GetBalance 获取配送员当前余额
func (s *EarningService) GetBalance(ctx context.Context, partnerID int64) (float64, error) {
	if _, err := s.partnerRepo.GetByID(ctx, partnerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrPartnerNotFound
		}
		return 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return s.ledgerService.GetPartnerBalance(ctx, partnerID)
}
