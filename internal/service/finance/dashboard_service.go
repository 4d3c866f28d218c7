// Package finance 提供平台侧财务汇总服务
package finance

import (
	"context"
	"time"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// DashboardService 财务仪表盘服务
type DashboardService struct {
	ledgerRepo     *repository.LedgerRepository
	settlementRepo *repository.SettlementRepository
	withdrawalRepo *repository.WithdrawalRepository
	codRepo        *repository.CODRepository
	orderRepo      *repository.OrderRepository
}

// NewDashboardService 创建财务仪表盘服务
func NewDashboardService(
	ledgerRepo *repository.LedgerRepository,
	settlementRepo *repository.SettlementRepository,
	withdrawalRepo *repository.WithdrawalRepository,
	codRepo *repository.CODRepository,
	orderRepo *repository.OrderRepository,
) *DashboardService {
	return &DashboardService{
		ledgerRepo:     ledgerRepo,
		settlementRepo: settlementRepo,
		withdrawalRepo: withdrawalRepo,
		codRepo:        codRepo,
		orderRepo:      orderRepo,
	}
}

// Overview 汇总全平台财务概览
func (s *DashboardService) Overview(ctx context.Context) (*models.FinanceOverview, error) {
	overview := &models.FinanceOverview{}

	totalEarnings, err := s.ledgerRepo.SumAllSellersByType(ctx, models.EntryTypeEarning)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.TotalEarnings = utils.Round2(totalEarnings)

	totalSettled, err := s.ledgerRepo.SumAllSellersByType(ctx, models.EntryTypeSettlement)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.TotalSettled = utils.Round2(totalSettled)

	platformFees, err := s.orderRepo.SumPlatformFees(ctx)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.TotalPlatformFees = utils.Round2(platformFees)

	summary, err := s.settlementRepo.Summary(ctx, nil, nil)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.PendingSettlements = summary.ScheduledCount
	overview.FailedSettlements = summary.FailedCount

	withdrawals, err := s.withdrawalRepo.Summary(ctx)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.PendingWithdrawals = withdrawals.PendingCount

	codCollected, err := s.codRepo.SumCollected(ctx, nil)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.TotalCodCollected = utils.Round2(codCollected)

	codPending, err := s.codRepo.SumPendingRemittance(ctx, nil)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.PendingCodRemittance = utils.Round2(codPending)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todaySettled, err := s.settlementRepo.SumCompletedBetween(ctx, today, today.Add(24*time.Hour))
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	overview.TodaySettledAmount = utils.Round2(todaySettled)

	return overview, nil
}

// SettlementSummary 结算批次汇总，可选时间区间
func (s *DashboardService) SettlementSummary(ctx context.Context, start, end *time.Time) (*models.SettlementSummary, error) {
	summary, err := s.settlementRepo.Summary(ctx, start, end)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return summary, nil
}

// WithdrawalSummary 提现汇总
func (s *DashboardService) WithdrawalSummary(ctx context.Context) (*models.WithdrawalSummary, error) {
	summary, err := s.withdrawalRepo.Summary(ctx)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return summary, nil
}
