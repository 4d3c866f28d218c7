// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/cache"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	settlementService "github.com/chenhao2025/logistics-settlement-backend/internal/service/settlement"
	tierService "github.com/chenhao2025/logistics-settlement-backend/internal/service/tier"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	batchService *settlementService.BatchService
	tierService  *tierService.Service
	logger       *zap.Logger

	mu                sync.Mutex
	lastTierEvaluated time.Time
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(
	batchSvc *settlementService.BatchService,
	tierSvc *tierService.Service,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		batchService: batchSvc,
		tierService:  tierSvc,
		logger:       logger,
	}
}

// ProcessDueSettlements 扫描并处理到期的结算批次
// 多实例部署时用 Redis 锁保证同一轮扫描只有一个实例执行
func (h *TaskHandler) ProcessDueSettlements(ctx context.Context) error {
	lockKey := cache.BuildKey(cache.KeyPrefixLock, "settlement", "scan")
	acquired, err := cache.SetNX(ctx, lockKey, time.Now().Unix(), 4*time.Minute)
	if err == nil && !acquired {
		// 其他实例正在扫描
		return nil
	}
	if err == nil {
		defer func() {
			_ = cache.Delete(context.Background(), lockKey)
		}()
	}

	summary, err := h.batchService.ProcessDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if summary.Scanned > 0 {
		h.logger.Info("Settlement scan finished",
			zap.Int("scanned", summary.Scanned),
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed))
	}
	return nil
}

// EvaluateSellerTiers 月度等级评估
// 每天触发一次，仅在每月 1 号实际执行，同一个月内不重复评估。
func (h *TaskHandler) EvaluateSellerTiers(ctx context.Context) error {
	now := time.Now()
	if now.Day() != 1 {
		return nil
	}

	h.mu.Lock()
	if h.lastTierEvaluated.Year() == now.Year() && h.lastTierEvaluated.Month() == now.Month() {
		h.mu.Unlock()
		return nil
	}
	h.lastTierEvaluated = now
	h.mu.Unlock()

	results, err := h.tierService.EvaluateAll(ctx, now, models.TierTriggerMonthlyTask)
	if err != nil {
		return err
	}

	changed := 0
	for _, result := range results {
		if result.Changed {
			changed++
		}
	}
	h.logger.Info("Tier evaluation finished",
		zap.Int("evaluated", len(results)),
		zap.Int("changed", changed))
	return nil
}

// SetupTasks 设置所有任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler, settlementScanInterval time.Duration) {
	if settlementScanInterval <= 0 {
		settlementScanInterval = 5 * time.Minute
	}

	// 按配置间隔扫描到期结算批次
	scheduler.AddTask("ProcessDueSettlements", settlementScanInterval, handler.ProcessDueSettlements)

	// 每天检查是否需要月度等级评估
	scheduler.AddTask("EvaluateSellerTiers", 24*time.Hour, handler.EvaluateSellerTiers)
}
