// Package ledger 提供追加式账本服务
//
// 账本是资金事实的唯一来源：每个主体（卖家/配送员）的条目按 sequence
// 构成一条不断裂的余额链，任何余额都可以由链上条目重放得出。
// 并发追加由两层机制保证串行：进程内按主体加互斥锁，跨进程由
// (actor_id, sequence) 唯一索引兜底，冲突时重读链尾重试。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// 序号冲突最大重试次数
const maxAppendRetries = 3

// Service 账本服务
type Service struct {
	ledgerRepo *repository.LedgerRepository
	statsRepo  *repository.StatsRepository

	sellerLocks  sync.Map // sellerID -> *sync.Mutex
	partnerLocks sync.Map // partnerID -> *sync.Mutex
}

// NewService 创建账本服务
func NewService(ledgerRepo *repository.LedgerRepository, statsRepo *repository.StatsRepository) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		statsRepo:  statsRepo,
	}
}

func (s *Service) sellerLock(sellerID int64) *sync.Mutex {
	v, _ := s.sellerLocks.LoadOrStore(sellerID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Service) partnerLock(partnerID int64) *sync.Mutex {
	v, _ := s.partnerLocks.LoadOrStore(partnerID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SellerAppendRequest 卖家账本追加请求
type SellerAppendRequest struct {
	SellerID    int64
	Type        models.EntryType
	Amount      float64 // 正数
	Description string
	OrderID     *int64
	BatchID     *int64
}

// AppendSeller 追加卖家账本条目
// earning 计入待结算，settlement 将金额从待结算释放到可提现，
// payout/deduction 扣减可提现，refund 增加可提现。
func (s *Service) AppendSeller(ctx context.Context, req *SellerAppendRequest) (*models.SellerLedgerEntry, error) {
	if !req.Type.IsValid() {
		return nil, apperrors.ErrInvalidEntryType
	}
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.Description == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("账本条目必须携带描述")
	}

	mu := s.sellerLock(req.SellerID)
	mu.Lock()
	defer mu.Unlock()

	var entry *models.SellerLedgerEntry
	var err error
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		entry, err = s.tryAppendSeller(ctx, req)
		if err == nil {
			metrics.GetMetrics().RecordLedgerEntry("seller", string(req.Type))
			return entry, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// 其他进程抢先写入了同一序号，重读链尾再试
		metrics.GetMetrics().RecordLedgerRetry()
		logger.Warn("卖家账本序号冲突，重试",
			logger.SellerID(req.SellerID),
			zap.Int("attempt", attempt+1))
	}
	return nil, apperrors.ErrLedgerAppendConflict.WithError(err)
}

func (s *Service) tryAppendSeller(ctx context.Context, req *SellerAppendRequest) (*models.SellerLedgerEntry, error) {
	var sequence int64 = 1
	var balance, pending, available float64

	last, err := s.ledgerRepo.GetLastSellerEntry(ctx, req.SellerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if last != nil {
		sequence = last.Sequence + 1
		balance = last.BalanceAfter
		pending = last.PendingAfter
		available = last.AvailableAfter
	}

	newPending, newAvailable, err := applySellerDeltas(req.Type, req.Amount, pending, available)
	if err != nil {
		return nil, err
	}
	newBalance := utils.Round2(balance + models.SignedAmount(req.Type, req.Amount))

	entry := &models.SellerLedgerEntry{
		SellerID:        req.SellerID,
		Sequence:        sequence,
		OrderID:         req.OrderID,
		BatchID:         req.BatchID,
		Type:            req.Type,
		Amount:          utils.Round2(req.Amount),
		Description:     req.Description,
		BalanceBefore:   balance,
		BalanceAfter:    newBalance,
		PendingBefore:   pending,
		PendingAfter:    newPending,
		AvailableBefore: available,
		AvailableAfter:  newAvailable,
	}

	if err := s.ledgerRepo.CreateSellerEntry(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return entry, nil
}

// applySellerDeltas 按条目类型推进 pending/available 两个口径
func applySellerDeltas(entryType models.EntryType, amount, pending, available float64) (newPending, newAvailable float64, err error) {
	switch entryType {
	case models.EntryTypeEarning:
		return utils.Round2(pending + amount), available, nil
	case models.EntryTypeSettlement:
		// 人工调账可能使待结算口径先行减少，这里向下收敛到 0 而不是报错
		return utils.NonNegative(utils.Round2(pending - amount)), utils.Round2(available + amount), nil
	case models.EntryTypePayout, models.EntryTypeDeduction:
		if available < amount {
			return 0, 0, apperrors.ErrInsufficientBalance.WithMessage(
				fmt.Sprintf("可用余额不足，当前可用: %.2f", available))
		}
		return pending, utils.Round2(available - amount), nil
	case models.EntryTypeRefund:
		return pending, utils.Round2(available + amount), nil
	default:
		return 0, 0, apperrors.ErrInvalidEntryType
	}
}

// PartnerAppendRequest 配送员账本追加请求
type PartnerAppendRequest struct {
	PartnerID    int64
	Type         models.EntryType
	Amount       float64
	Description  string
	OrderID      *int64
	WithdrawalID *int64
}

// AppendPartner 追加配送员账本条目
func (s *Service) AppendPartner(ctx context.Context, req *PartnerAppendRequest) (*models.PartnerLedgerEntry, error) {
	if !req.Type.IsValid() {
		return nil, apperrors.ErrInvalidEntryType
	}
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.Description == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("账本条目必须携带描述")
	}

	mu := s.partnerLock(req.PartnerID)
	mu.Lock()
	defer mu.Unlock()

	var entry *models.PartnerLedgerEntry
	var err error
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		entry, err = s.tryAppendPartner(ctx, req)
		if err == nil {
			metrics.GetMetrics().RecordLedgerEntry("partner", string(req.Type))
			return entry, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		metrics.GetMetrics().RecordLedgerRetry()
		logger.Warn("配送员账本序号冲突，重试",
			logger.PartnerID(req.PartnerID),
			zap.Int("attempt", attempt+1))
	}
	return nil, apperrors.ErrLedgerAppendConflict.WithError(err)
}

func (s *Service) tryAppendPartner(ctx context.Context, req *PartnerAppendRequest) (*models.PartnerLedgerEntry, error) {
	var sequence int64 = 1
	var balance float64

	last, err := s.ledgerRepo.GetLastPartnerEntry(ctx, req.PartnerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if last != nil {
		sequence = last.Sequence + 1
		balance = last.BalanceAfter
	}

	signed := models.SignedAmount(req.Type, req.Amount)
	if signed < 0 && balance < req.Amount {
		return nil, apperrors.ErrInsufficientBalance.WithMessage(
			fmt.Sprintf("可用余额不足，当前可用: %.2f", balance))
	}

	entry := &models.PartnerLedgerEntry{
		PartnerID:     req.PartnerID,
		Sequence:      sequence,
		OrderID:       req.OrderID,
		WithdrawalID:  req.WithdrawalID,
		Type:          req.Type,
		Amount:        utils.Round2(req.Amount),
		Description:   req.Description,
		BalanceBefore: balance,
		BalanceAfter:  utils.Round2(balance + signed),
	}

	if err := s.ledgerRepo.CreatePartnerEntry(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return entry, nil
}

// SellerBalance 卖家余额口径
type SellerBalance struct {
	SellerID  int64   `json:"seller_id"`
	Balance   float64 `json:"balance"`
	Pending   float64 `json:"pending"`
	Available float64 `json:"available"`
}

// GetSellerBalance 获取卖家当前余额（链尾快照）
func (s *Service) GetSellerBalance(ctx context.Context, sellerID int64) (*SellerBalance, error) {
	last, err := s.ledgerRepo.GetLastSellerEntry(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SellerBalance{SellerID: sellerID}, nil
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return &SellerBalance{
		SellerID:  sellerID,
		Balance:   last.BalanceAfter,
		Pending:   last.PendingAfter,
		Available: last.AvailableAfter,
	}, nil
}

// GetPartnerBalance 获取配送员当前余额
func (s *Service) GetPartnerBalance(ctx context.Context, partnerID int64) (float64, error) {
	last, err := s.ledgerRepo.GetLastPartnerEntry(ctx, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return last.BalanceAfter, nil
}

// HasSellerBatchEntry 判断卖家账本中是否已存在某批次的某类条目
// 批次失败重试时用它识别已经落账的结算释放
func (s *Service) HasSellerBatchEntry(ctx context.Context, sellerID int64, entryType models.EntryType, batchID int64) (bool, error) {
	count, err := s.ledgerRepo.CountSellerByBatch(ctx, sellerID, entryType, batchID)
	if err != nil {
		return false, apperrors.ErrDatabaseError.WithError(err)
	}
	return count > 0, nil
}

// ListSellerEntries 分页获取卖家账本
func (s *Service) ListSellerEntries(ctx context.Context, sellerID int64, filter *repository.LedgerFilter, p utils.Pagination) ([]*models.SellerLedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.ListSellerEntries(ctx, sellerID, filter, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return entries, total, nil
}

// ListPartnerEntries 分页获取配送员账本
func (s *Service) ListPartnerEntries(ctx context.Context, partnerID int64, filter *repository.LedgerFilter, p utils.Pagination) ([]*models.PartnerLedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.ListPartnerEntries(ctx, partnerID, filter, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return entries, total, nil
}

// VerifySellerChain 校验卖家余额链的连续性
// 返回 nil 表示每个条目的 before/after 与前驱严格衔接
func (s *Service) VerifySellerChain(ctx context.Context, sellerID int64) error {
	entries, err := s.ledgerRepo.ListAllSellerEntries(ctx, sellerID)
	if err != nil {
		return apperrors.ErrDatabaseError.WithError(err)
	}

	var prevSeq int64
	var balance, pending, available float64
	for _, e := range entries {
		if e.Sequence != prevSeq+1 {
			return fmt.Errorf("账本链断裂: 卖家 %d 序号 %d 之后出现 %d", sellerID, prevSeq, e.Sequence)
		}
		if e.BalanceBefore != balance || e.PendingBefore != pending || e.AvailableBefore != available {
			return fmt.Errorf("账本链断裂: 卖家 %d 序号 %d 的期初余额与前驱不衔接", sellerID, e.Sequence)
		}
		prevSeq = e.Sequence
		balance = e.BalanceAfter
		pending = e.PendingAfter
		available = e.AvailableAfter
	}
	return nil
}
