package admin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	ledgersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
)

// OverrideService 人工干预服务
// 每一条人工改动都要求非空理由，并在改动落库前写入一条 AdminOverride 审计记录，
// 记录目标当时的旧值与即将写入的新值。
type OverrideService struct {
	overrideRepo   *repository.OverrideRepository
	sellerRepo     *repository.SellerRepository
	partnerRepo    *repository.PartnerRepository
	settlementRepo *repository.SettlementRepository
	withdrawalRepo *repository.WithdrawalRepository
	tierLogRepo    *repository.TierLogRepository
	statsRepo      *repository.StatsRepository
	ledgerService  *ledgersvc.Service
}

// NewOverrideService 创建人工干预服务
func NewOverrideService(
	overrideRepo *repository.OverrideRepository,
	sellerRepo *repository.SellerRepository,
	partnerRepo *repository.PartnerRepository,
	settlementRepo *repository.SettlementRepository,
	withdrawalRepo *repository.WithdrawalRepository,
	tierLogRepo *repository.TierLogRepository,
	statsRepo *repository.StatsRepository,
	ledgerService *ledgersvc.Service,
) *OverrideService {
	return &OverrideService{
		overrideRepo:   overrideRepo,
		sellerRepo:     sellerRepo,
		partnerRepo:    partnerRepo,
		settlementRepo: settlementRepo,
		withdrawalRepo: withdrawalRepo,
		tierLogRepo:    tierLogRepo,
		statsRepo:      statsRepo,
		ledgerService:  ledgerService,
	}
}

// recordOverride 写入审计记录，旧值/新值以 JSON 快照保存
func (s *OverrideService) recordOverride(ctx context.Context, adminID int64, targetType string, targetID int64, action string, previous, newValue interface{}, reason string) error {
	prevJSON, err := json.Marshal(previous)
	if err != nil {
		return apperrors.ErrOverrideFailed.WithError(err)
	}
	newJSON, err := json.Marshal(newValue)
	if err != nil {
		return apperrors.ErrOverrideFailed.WithError(err)
	}
	override := &models.AdminOverride{
		AdminID:       adminID,
		TargetType:    targetType,
		TargetID:      targetID,
		Action:        action,
		PreviousValue: string(prevJSON),
		NewValue:      string(newJSON),
		Reason:        reason,
	}
	if err := s.overrideRepo.Create(ctx, override); err != nil {
		return apperrors.ErrOverrideFailed.WithError(err)
	}
	return nil
}

// OverrideTierRequest 等级改写请求
type OverrideTierRequest struct {
	SellerID int64  `json:"seller_id" binding:"required"`
	NewTier  string `json:"new_tier" binding:"required,oneof=bronze silver gold"`
	Reason   string `json:"reason" binding:"required"`
}

// OverrideTier 管理员直接改写卖家等级
// 改写同样会写入一条等级评估日志，保持等级历史完整。
func (s *OverrideService) OverrideTier(ctx context.Context, adminID int64, req *OverrideTierRequest) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	if !models.IsValidTier(req.NewTier) {
		return apperrors.ErrInvalidTier
	}

	seller, err := s.sellerRepo.GetByID(ctx, req.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrSellerNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if seller.Tier == req.NewTier {
		return apperrors.ErrTierUnchangedTarget
	}

	now := time.Now()
	prev := map[string]interface{}{"tier": seller.Tier}
	next := map[string]interface{}{"tier": req.NewTier}
	if err := s.recordOverride(ctx, adminID, models.OverrideTargetSeller, seller.ID, models.OverrideActionTierOverride, prev, next, req.Reason); err != nil {
		return err
	}

	if err := s.sellerRepo.UpdateTier(ctx, seller.ID, req.NewTier, now); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if err := s.statsRepo.UpdateTier(ctx, seller.ID, req.NewTier); err != nil {
		logger.Warn("同步统计等级失败", logger.SellerID(seller.ID))
	}
	tierLog := &models.TierEvaluationLog{
		SellerID:       seller.ID,
		EvaluationDate: now,
		PeriodStart:    now,
		PeriodEnd:      now,
		PreviousTier:   seller.Tier,
		NewTier:        req.NewTier,
		Reason:         req.Reason,
		TriggeredBy:    models.TierTriggerOverride,
	}
	if err := s.tierLogRepo.Create(ctx, tierLog); err != nil {
		logger.Warn("写入等级日志失败", logger.SellerID(seller.ID))
	}

	logger.Info("管理员改写卖家等级",
		logger.AdminID(adminID),
		logger.SellerID(seller.ID),
		logger.Action(models.OverrideActionTierOverride))
	return nil
}

// AccountStatusRequest 卖家账号状态变更请求
type AccountStatusRequest struct {
	SellerID int64  `json:"seller_id" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// HoldSellerAccount 冻结卖家账号（暂停结算）
func (s *OverrideService) HoldSellerAccount(ctx context.Context, adminID int64, req *AccountStatusRequest) error {
	return s.changeSellerStatus(ctx, adminID, req, models.SellerStatusHold, models.OverrideActionAccountHold)
}

// RestrictSellerAccount 限制卖家账号
func (s *OverrideService) RestrictSellerAccount(ctx context.Context, adminID int64, req *AccountStatusRequest) error {
	return s.changeSellerStatus(ctx, adminID, req, models.SellerStatusRestricted, models.OverrideActionAccountRestrict)
}

// ReleaseSellerAccount 恢复卖家账号
func (s *OverrideService) ReleaseSellerAccount(ctx context.Context, adminID int64, req *AccountStatusRequest) error {
	return s.changeSellerStatus(ctx, adminID, req, models.SellerStatusActive, models.OverrideActionAccountRelease)
}

// DeleteSellerAccount 注销卖家账号
func (s *OverrideService) DeleteSellerAccount(ctx context.Context, adminID int64, req *AccountStatusRequest) error {
	return s.changeSellerStatus(ctx, adminID, req, models.SellerStatusDeleted, models.OverrideActionAccountDelete)
}

func (s *OverrideService) changeSellerStatus(ctx context.Context, adminID int64, req *AccountStatusRequest, newStatus, action string) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	seller, err := s.sellerRepo.GetByID(ctx, req.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrSellerNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if seller.Status == newStatus {
		return apperrors.ErrAccountStatusSame
	}
	if seller.Status == models.SellerStatusDeleted {
		return apperrors.ErrSellerDeleted
	}

	prev := map[string]interface{}{"status": seller.Status}
	next := map[string]interface{}{"status": newStatus}
	if err := s.recordOverride(ctx, adminID, models.OverrideTargetSeller, seller.ID, action, prev, next, req.Reason); err != nil {
		return err
	}
	if err := s.sellerRepo.UpdateStatus(ctx, seller.ID, newStatus); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrSellerNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("管理员变更卖家状态",
		logger.AdminID(adminID),
		logger.SellerID(seller.ID),
		logger.Action(action))
	return nil
}

// AdjustSettlementRequest 结算日期调整请求
type AdjustSettlementRequest struct {
	BatchID        int64     `json:"batch_id" binding:"required"`
	SettlementDate time.Time `json:"settlement_date" binding:"required"`
	Reason         string    `json:"reason" binding:"required"`
}

// AdjustSettlementDate 调整待结算批次的结算日期
func (s *OverrideService) AdjustSettlementDate(ctx context.Context, adminID int64, req *AdjustSettlementRequest) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	schedule, err := s.settlementRepo.GetByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrScheduleNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return apperrors.ErrScheduleNotScheduled
	}

	prev := map[string]interface{}{"settlement_date": schedule.SettlementDate}
	next := map[string]interface{}{"settlement_date": req.SettlementDate}
	if err := s.recordOverride(ctx, adminID, models.OverrideTargetSettlement, schedule.ID, models.OverrideActionSettlementAdjust, prev, next, req.Reason); err != nil {
		return err
	}
	if err := s.settlementRepo.UpdateSettlementDate(ctx, schedule.ID, req.SettlementDate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrScheduleNotScheduled
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("管理员调整结算日期",
		logger.AdminID(adminID),
		logger.BatchNo(schedule.BatchNo))
	return nil
}

// PayoutHoldRequest 提现冻结/解冻请求
type PayoutHoldRequest struct {
	WithdrawalID int64  `json:"withdrawal_id" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// HoldPayout 冻结一笔待审核提现
// 冻结通过独占认领实现：pending → processing，冻结期间申请不可被审批或重复提交。
func (s *OverrideService) HoldPayout(ctx context.Context, adminID int64, req *PayoutHoldRequest) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, req.WithdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrWithdrawalNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return apperrors.ErrWithdrawalNotPending
	}

	prev := map[string]interface{}{"status": withdrawal.Status}
	next := map[string]interface{}{"status": models.WithdrawalStatusProcessing}
	if err := s.recordOverride(ctx, adminID, models.OverrideTargetWithdrawal, withdrawal.ID, models.OverrideActionPayoutHold, prev, next, req.Reason); err != nil {
		return err
	}
	if err := s.withdrawalRepo.ClaimProcessing(ctx, withdrawal.ID, adminID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrWithdrawalNotPending
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("管理员冻结提现", logger.AdminID(adminID), logger.PartnerID(withdrawal.PartnerID))
	return nil
}

// ReleasePayout 解冻提现申请，回到待审核状态
func (s *OverrideService) ReleasePayout(ctx context.Context, adminID int64, req *PayoutHoldRequest) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, req.WithdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrWithdrawalNotFound
		}
		return apperrors.ErrDatabaseError.WithError(err)
	}
	if withdrawal.Status != models.WithdrawalStatusProcessing {
		return apperrors.ErrWithdrawalNotHeld
	}

	prev := map[string]interface{}{"status": withdrawal.Status}
	next := map[string]interface{}{"status": models.WithdrawalStatusPending}
	if err := s.recordOverride(ctx, adminID, models.OverrideTargetWithdrawal, withdrawal.ID, models.OverrideActionPayoutRelease, prev, next, req.Reason); err != nil {
		return err
	}

	withdrawal.Status = models.WithdrawalStatusPending
	withdrawal.ReviewedBy = nil
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("管理员解冻提现", logger.AdminID(adminID), logger.PartnerID(withdrawal.PartnerID))
	return nil
}

// LedgerCorrectionRequest 人工账本修正请求
// Amount 为带符号金额：非负走 refund（调增），负数走 deduction（调减）。
type LedgerCorrectionRequest struct {
	ActorType   string  `json:"actor_type" binding:"required,oneof=seller partner"`
	ActorID     int64   `json:"actor_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
}

// CorrectLedger 人工账本修正
// 修正本身就是一条普通账本条目，走与系统条目完全相同的串行追加链路，绝不直接改历史。
func (s *OverrideService) CorrectLedger(ctx context.Context, adminID int64, req *LedgerCorrectionRequest) error {
	if req.Reason == "" {
		return apperrors.ErrReasonRequired
	}
	if req.Description == "" {
		return apperrors.ErrInvalidParams.WithMessage("必须填写条目描述")
	}

	entryType := models.EntryTypeRefund
	amount := utils.Round2(req.Amount)
	if amount < 0 {
		entryType = models.EntryTypeDeduction
		amount = -amount
	}
	if amount == 0 {
		return apperrors.ErrCorrectionZeroAmount
	}

	switch req.ActorType {
	case models.OverrideTargetSeller:
		if _, err := s.sellerRepo.GetByID(ctx, req.ActorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrSellerNotFound
			}
			return apperrors.ErrDatabaseError.WithError(err)
		}
		balance, err := s.ledgerService.GetSellerBalance(ctx, req.ActorID)
		if err != nil {
			return err
		}
		prev := map[string]interface{}{"pending": balance.Pending, "available": balance.Available}
		if err := s.recordOverride(ctx, adminID, models.OverrideTargetSeller, req.ActorID, models.OverrideActionLedgerCorrection,
			prev, map[string]interface{}{"type": entryType, "amount": amount}, req.Reason); err != nil {
			return err
		}
		if _, err := s.ledgerService.AppendSeller(ctx, &ledgersvc.SellerAppendRequest{
			SellerID:    req.ActorID,
			Type:        entryType,
			Amount:      amount,
			Description: req.Description,
		}); err != nil {
			return err
		}
	case models.OverrideTargetPartner:
		if _, err := s.partnerRepo.GetByID(ctx, req.ActorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPartnerNotFound
			}
			return apperrors.ErrDatabaseError.WithError(err)
		}
		balance, err := s.ledgerService.GetPartnerBalance(ctx, req.ActorID)
		if err != nil {
			return err
		}
		prev := map[string]interface{}{"balance": balance}
		if err := s.recordOverride(ctx, adminID, models.OverrideTargetPartner, req.ActorID, models.OverrideActionLedgerCorrection,
			prev, map[string]interface{}{"type": entryType, "amount": amount}, req.Reason); err != nil {
			return err
		}
		if _, err := s.ledgerService.AppendPartner(ctx, &ledgersvc.PartnerAppendRequest{
			PartnerID:   req.ActorID,
			Type:        entryType,
			Amount:      amount,
			Description: req.Description,
		}); err != nil {
			return err
		}
	default:
		return apperrors.ErrLedgerActorUnsupported
	}

	logger.Info("管理员人工修正账本",
		logger.AdminID(adminID),
		logger.Action(models.OverrideActionLedgerCorrection))
	return nil
}

// ListOverrides 分页查询审计记录
func (s *OverrideService) ListOverrides(ctx context.Context, filter *repository.OverrideFilter, offset, limit int) ([]*models.AdminOverride, int64, error) {
	overrides, total, err := s.overrideRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return overrides, total, nil
}

// ListTargetHistory 查询某个目标的全部人工干预历史
func (s *OverrideService) ListTargetHistory(ctx context.Context, targetType string, targetID int64) ([]*models.AdminOverride, error) {
	overrides, err := s.overrideRepo.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return overrides, nil
}
