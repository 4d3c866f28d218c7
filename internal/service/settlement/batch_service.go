// Package settlement 提供订单结算排期与批次处理服务
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/tracing"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	"github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	sellersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/sms"
)

// BatchService 结算批次处理服务
// 扫描到期批次并逐个独立结算；单个批次失败只记录原因，不影响其余批次。
type BatchService struct {
	settlementRepo *repository.SettlementRepository
	orderRepo      *repository.OrderRepository
	sellerRepo     *repository.SellerRepository
	ledgerService  *ledger.Service
	statsService   *sellersvc.StatsService
	smsSender      sms.Sender // 可为 nil，到账通知为尽力而为
}

// NewBatchService 创建批次处理服务
func NewBatchService(
	settlementRepo *repository.SettlementRepository,
	orderRepo *repository.OrderRepository,
	sellerRepo *repository.SellerRepository,
	ledgerService *ledger.Service,
	statsService *sellersvc.StatsService,
	smsSender sms.Sender,
) *BatchService {
	return &BatchService{
		settlementRepo: settlementRepo,
		orderRepo:      orderRepo,
		sellerRepo:     sellerRepo,
		ledgerService:  ledgerService,
		statsService:   statsService,
		smsSender:      smsSender,
	}
}

// ProcessDue 处理全部到期批次
func (s *BatchService) ProcessDue(ctx context.Context, now time.Time) (*models.BatchRunSummary, error) {
	schedules, err := s.settlementRepo.ListDue(ctx, now)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	summary := &models.BatchRunSummary{
		Scanned: len(schedules),
		Results: make([]models.BatchResult, 0, len(schedules)),
	}

	for _, schedule := range schedules {
		result := s.processOne(ctx, schedule)
		if result.Status == models.ScheduleStatusCompleted {
			summary.Completed++
		} else if result.Status == models.ScheduleStatusFailed {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	if pending, err := s.settlementRepo.CountByStatus(ctx, models.ScheduleStatusScheduled); err == nil {
		metrics.GetMetrics().SetPendingBatches(float64(pending))
	}

	logger.Info("结算批次扫描完成",
		logger.Action("settlement_batch_run"),
		zap.Int("scanned", summary.Scanned),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// ProcessBatch 处理单个批次（管理端手动触发）
func (s *BatchService) ProcessBatch(ctx context.Context, batchID int64) (*models.BatchResult, error) {
	schedule, err := s.settlementRepo.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, apperrors.ErrScheduleNotScheduled
	}

	result := s.processOne(ctx, schedule)
	return &result, nil
}

// processOne 处理一个批次，任何失败都收敛为 failed 状态而非向上传播
func (s *BatchService) processOne(ctx context.Context, schedule *models.SettlementSchedule) models.BatchResult {
	ctx, span := tracing.GetTracer().Start(ctx, "settlement.processOne")
	defer span.End()
	tracing.SetAttributes(ctx,
		tracing.AttrBatchNo.String(schedule.BatchNo),
		tracing.WithSellerID(schedule.SellerID))

	result := models.BatchResult{
		BatchID:     schedule.ID,
		BatchNo:     schedule.BatchNo,
		SellerID:    schedule.SellerID,
		TotalAmount: schedule.TotalAmount,
		OrderCount:  schedule.OrderCount,
	}

	// 独占批次，并发扫描下同一批次只会被一个处理器拿到
	if err := s.settlementRepo.ClaimProcessing(ctx, schedule.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Status = schedule.Status
			result.Error = "批次已被其他处理器认领"
			return result
		}
		return s.fail(ctx, schedule, result, err)
	}

	if schedule.TotalAmount > 0 {
		// 上次处理可能在释放落账之后才失败，重试时先查批次避免重复释放
		released, err := s.ledgerService.HasSellerBatchEntry(ctx, schedule.SellerID, models.EntryTypeSettlement, schedule.ID)
		if err != nil {
			return s.fail(ctx, schedule, result, err)
		}
		if !released {
			if _, err := s.ledgerService.AppendSeller(ctx, &ledger.SellerAppendRequest{
				SellerID:    schedule.SellerID,
				Type:        models.EntryTypeSettlement,
				Amount:      schedule.TotalAmount,
				Description: fmt.Sprintf("结算批次 %s 释放", schedule.BatchNo),
				BatchID:     &schedule.ID,
			}); err != nil {
				return s.fail(ctx, schedule, result, err)
			}
		}
	}

	if err := s.orderRepo.MarkSettledByBatch(ctx, schedule.ID); err != nil {
		return s.fail(ctx, schedule, result, err)
	}

	processedAt := time.Now()
	if err := s.settlementRepo.MarkCompleted(ctx, schedule.ID, processedAt); err != nil {
		return s.fail(ctx, schedule, result, err)
	}

	if err := s.statsService.ApplyDelta(ctx, schedule.SellerID, &sellersvc.StatsDelta{
		TotalSettled:      schedule.TotalAmount,
		PendingSettlement: -schedule.TotalAmount,
		Available:         schedule.TotalAmount,
	}); err != nil {
		logger.Error("批次完成后更新卖家统计失败",
			logger.SellerID(schedule.SellerID),
			logger.BatchNo(schedule.BatchNo))
	}

	metrics.GetMetrics().RecordSettlementBatch(models.ScheduleStatusCompleted)
	metrics.GetMetrics().AddSettlementAmount(schedule.Tier, schedule.TotalAmount)
	logger.Info("结算批次完成",
		logger.BatchNo(schedule.BatchNo),
		logger.SellerID(schedule.SellerID))

	s.notifySettled(ctx, schedule)

	result.Status = models.ScheduleStatusCompleted
	return result
}

// notifySettled 批次到账短信通知，发送失败只记录日志
func (s *BatchService) notifySettled(ctx context.Context, schedule *models.SettlementSchedule) {
	if s.smsSender == nil {
		return
	}
	seller, err := s.sellerRepo.GetByID(ctx, schedule.SellerID)
	if err != nil || seller.Phone == nil {
		return
	}
	amount := fmt.Sprintf("%.2f", schedule.TotalAmount)
	if err := sms.SendSettlementDone(ctx, s.smsSender, *seller.Phone, schedule.BatchNo, amount); err != nil {
		logger.Warn("结算到账短信发送失败",
			logger.BatchNo(schedule.BatchNo),
			logger.SellerID(schedule.SellerID))
	}
}

// truncateReason 在不超过 max 字节的前提下按字符边界截断失败原因
func truncateReason(reason string, max int) string {
	if len(reason) <= max {
		return reason
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

func (s *BatchService) fail(ctx context.Context, schedule *models.SettlementSchedule, result models.BatchResult, cause error) models.BatchResult {
	tracing.SetError(ctx, cause)

	reason := truncateReason(cause.Error(), 250)
	if err := s.settlementRepo.MarkFailed(ctx, schedule.ID, reason); err != nil {
		logger.Error("标记批次失败状态时出错", logger.BatchNo(schedule.BatchNo))
	}

	metrics.GetMetrics().RecordSettlementBatch(models.ScheduleStatusFailed)
	logger.Error("结算批次处理失败",
		logger.BatchNo(schedule.BatchNo),
		logger.SellerID(schedule.SellerID))

	result.Status = models.ScheduleStatusFailed
	result.Error = reason
	return result
}

// RetryFailed 将失败批次重新排期
func (s *BatchService) RetryFailed(ctx context.Context, batchID int64, settlementDate time.Time) (*models.SettlementSchedule, error) {
	if err := s.settlementRepo.RescheduleFailed(ctx, batchID, settlementDate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrScheduleNotScheduled.WithMessage("仅失败批次可重新排期")
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	schedule, err := s.settlementRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return schedule, nil
}
