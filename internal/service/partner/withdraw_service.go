// Package partner 提供配送员计酬与提现服务
package partner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/tracing"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	"github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/bankpay"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/sms"
)

// 默认最低提现金额
const DefaultMinWithdraw = 100.0

// WithdrawService 配送员提现服务
type WithdrawService struct {
	withdrawalRepo *repository.WithdrawalRepository
	partnerRepo    *repository.PartnerRepository
	ledgerService  *ledger.Service
	transferer     bankpay.Transferer
	smsSender      sms.Sender // 可为 nil，审批结果通知为尽力而为
	minWithdraw    float64
}

// NewWithdrawService 创建提现服务
func NewWithdrawService(
	withdrawalRepo *repository.WithdrawalRepository,
	partnerRepo *repository.PartnerRepository,
	ledgerService *ledger.Service,
	transferer bankpay.Transferer,
	smsSender sms.Sender,
	cfg *config.PartnerConfig,
) *WithdrawService {
	minWithdraw := DefaultMinWithdraw
	if cfg != nil && cfg.MinWithdrawAmount > 0 {
		minWithdraw = cfg.MinWithdrawAmount
	}
	return &WithdrawService{
		withdrawalRepo: withdrawalRepo,
		partnerRepo:    partnerRepo,
		ledgerService:  ledgerService,
		transferer:     transferer,
		smsSender:      smsSender,
		minWithdraw:    minWithdraw,
	}
}

// notifyReviewed 短信通知审批结果，失败只记日志
func (s *WithdrawService) notifyReviewed(ctx context.Context, withdrawal *models.WithdrawalRequest, approved bool) {
	if s.smsSender == nil {
		return
	}
	partnerRecord, err := s.partnerRepo.GetByID(ctx, withdrawal.PartnerID)
	if err != nil || partnerRecord.Phone == nil {
		return
	}
	amount := fmt.Sprintf("%.2f", withdrawal.Amount)
	if err := sms.SendWithdrawalReviewed(ctx, s.smsSender, *partnerRecord.Phone, withdrawal.WithdrawalNo, approved, amount); err != nil {
		logger.Warn("提现审批短信发送失败", logger.PartnerID(withdrawal.PartnerID))
	}
}

// ApplyRequest 提现申请请求
type ApplyRequest struct {
	PartnerID       int64   `json:"partner_id"`
	Amount          float64 `json:"amount" binding:"required"`
	BankAccountName string  `json:"bank_account_name" binding:"required"`
	BankAccountNo   string  `json:"bank_account_no" binding:"required"`
	BankName        string  `json:"bank_name" binding:"required"`
}

// Apply 申请提现
// 同一配送员最多一笔未完结申请；申请时校验余额，审批时再次校验。
func (s *WithdrawService) Apply(ctx context.Context, req *ApplyRequest) (*models.WithdrawalRequest, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.Amount < s.minWithdraw {
		return nil, apperrors.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("最低提现金额为 %.2f 元", s.minWithdraw))
	}

	partnerRecord, err := s.partnerRepo.GetByID(ctx, req.PartnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPartnerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if partnerRecord.Status != models.PartnerStatusActive {
		return nil, apperrors.ErrPartnerOnHold
	}

	outstanding, err := s.withdrawalRepo.CountOutstanding(ctx, req.PartnerID)
	if err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if outstanding > 0 {
		return nil, apperrors.ErrWithdrawalOutstanding
	}

	balance, err := s.ledgerService.GetPartnerBalance(ctx, req.PartnerID)
	if err != nil {
		return nil, err
	}
	if balance < req.Amount {
		return nil, apperrors.ErrInsufficientBalance.WithMessage(
			fmt.Sprintf("可用余额不足，当前可用: %.2f", balance))
	}

	withdrawal := &models.WithdrawalRequest{
		WithdrawalNo:     utils.GenerateWithdrawalNo(),
		PartnerID:        req.PartnerID,
		Amount:           utils.Round2(req.Amount),
		BalanceAtRequest: balance,
		BankAccountName:  req.BankAccountName,
		BankAccountNo:    req.BankAccountNo,
		BankName:         req.BankName,
		Status:           models.WithdrawalStatusPending,
	}
	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		// 并发申请越过前面的计数检查时，未完结申请唯一索引在这里收口
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrWithdrawalOutstanding
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordWithdrawal(models.WithdrawalStatusPending)
	logger.Info("配送员提现申请",
		logger.PartnerID(req.PartnerID),
		logger.Action("withdrawal_apply"))

	return withdrawal, nil
}

// Approve 审批通过并打款
// 余额在审批时以账本串行化口径重新校验，而不是沿用申请时的快照。
func (s *WithdrawService) Approve(ctx context.Context, withdrawalID, reviewerID int64) (*models.WithdrawalRequest, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "withdrawal.approve")
	defer span.End()

	withdrawal, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWithdrawalNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, apperrors.ErrWithdrawalNotPending
	}
	tracing.SetAttributes(ctx,
		tracing.WithPartnerID(withdrawal.PartnerID),
		tracing.AttrWithdrawalNo.String(withdrawal.WithdrawalNo))

	// 独占申请，双重审批收敛为 Conflict
	if err := s.withdrawalRepo.ClaimProcessing(ctx, withdrawalID, reviewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWithdrawalNotPending
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	// payout 条目本身会在账本串行化下再次校验余额并扣减
	entry, err := s.ledgerService.AppendPartner(ctx, &ledger.PartnerAppendRequest{
		PartnerID:    withdrawal.PartnerID,
		Type:         models.EntryTypePayout,
		Amount:       withdrawal.Amount,
		Description:  fmt.Sprintf("提现 %s 打款", withdrawal.WithdrawalNo),
		WithdrawalID: &withdrawal.ID,
	})
	if err != nil {
		// 打款失败，申请退回待审核
		withdrawal.Status = models.WithdrawalStatusPending
		withdrawal.ReviewedBy = nil
		if saveErr := s.withdrawalRepo.Update(ctx, withdrawal); saveErr != nil {
			logger.Error("提现回滚到待审核失败", logger.PartnerID(withdrawal.PartnerID))
		}
		return nil, err
	}

	transfer, err := s.transferer.Transfer(ctx, &bankpay.TransferRequest{
		OutTradeNo:  withdrawal.WithdrawalNo,
		AccountName: withdrawal.BankAccountName,
		AccountNo:   withdrawal.BankAccountNo,
		BankName:    withdrawal.BankName,
		Amount:      withdrawal.Amount,
		Remark:      "配送报酬提现",
	})
	if err != nil {
		// 银行打款失败：退回扣减的余额并标记申请失败原因
		if _, refundErr := s.ledgerService.AppendPartner(ctx, &ledger.PartnerAppendRequest{
			PartnerID:    withdrawal.PartnerID,
			Type:         models.EntryTypeRefund,
			Amount:       withdrawal.Amount,
			Description:  fmt.Sprintf("提现 %s 打款失败退回", withdrawal.WithdrawalNo),
			WithdrawalID: &withdrawal.ID,
		}); refundErr != nil {
			logger.Error("打款失败退回余额时出错", logger.PartnerID(withdrawal.PartnerID))
		}
		reason := err.Error()
		withdrawal.Status = models.WithdrawalStatusRejected
		withdrawal.ReviewedBy = &reviewerID
		withdrawal.RejectionReason = &reason
		if saveErr := s.withdrawalRepo.Update(ctx, withdrawal); saveErr != nil {
			return nil, apperrors.ErrDatabaseError.WithError(saveErr)
		}
		return nil, apperrors.ErrExternalService.WithError(err)
	}

	now := time.Now()
	withdrawal.Status = models.WithdrawalStatusCompleted
	withdrawal.ReviewedBy = &reviewerID
	withdrawal.TransactionRef = &transfer.TransactionRef
	withdrawal.BalanceAfterPayout = &entry.BalanceAfter
	withdrawal.PaidAt = &now
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordWithdrawal(models.WithdrawalStatusCompleted)
	logger.Info("配送员提现完成",
		logger.PartnerID(withdrawal.PartnerID),
		logger.Action("withdrawal_completed"))
	s.notifyReviewed(ctx, withdrawal, true)

	return withdrawal, nil
}

// Reject 审批拒绝
func (s *WithdrawService) Reject(ctx context.Context, withdrawalID, reviewerID int64, reason string) (*models.WithdrawalRequest, error) {
	if reason == "" {
		return nil, apperrors.ErrReasonRequired
	}

	withdrawal, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWithdrawalNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, apperrors.ErrWithdrawalNotPending
	}

	withdrawal.Status = models.WithdrawalStatusRejected
	withdrawal.ReviewedBy = &reviewerID
	withdrawal.RejectionReason = &reason
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordWithdrawal(models.WithdrawalStatusRejected)
	s.notifyReviewed(ctx, withdrawal, false)
	return withdrawal, nil
}

// GetByID 获取提现申请
func (s *WithdrawService) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWithdrawalNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return withdrawal, nil
}

// ListByPartner 获取配送员的提现记录
func (s *WithdrawService) ListByPartner(ctx context.Context, partnerID int64, p utils.Pagination) ([]*models.WithdrawalRequest, int64, error) {
	withdrawals, total, err := s.withdrawalRepo.ListByPartner(ctx, partnerID, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return withdrawals, total, nil
}

// List 获取提现申请列表（管理端）
func (s *WithdrawService) List(ctx context.Context, status string, p utils.Pagination) ([]*models.WithdrawalRequest, int64, error) {
	withdrawals, total, err := s.withdrawalRepo.List(ctx, status, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return withdrawals, total, nil
}
