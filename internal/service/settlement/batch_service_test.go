package settlement

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	ledgersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	sellersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/sms"
)

// setupBatchTestDB 创建批次处理测试数据库
func setupBatchTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&models.Seller{},
		&models.SellerStats{},
		&models.Order{},
		&models.SettlementSchedule{},
		&models.SellerLedgerEntry{},
		&models.PartnerLedgerEntry{},
		&models.CODCollection{},
	)
	require.NoError(t, err)

	return db
}

func newBatchTestService(db *gorm.DB, smsClient sms.Sender) (*BatchService, *ledgersvc.Service) {
	orderRepo := repository.NewOrderRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	codRepo := repository.NewCODRepository(db)

	ledgerService := ledgersvc.NewService(ledgerRepo, statsRepo)
	statsService := sellersvc.NewStatsService(statsRepo, orderRepo, ledgerRepo, codRepo, sellerRepo)
	return NewBatchService(settlementRepo, orderRepo, sellerRepo, ledgerService, statsService, smsClient), ledgerService
}

// createBatchTestSeller 创建批次测试卖家
func createBatchTestSeller(db *gorm.DB, phone *string) *models.Seller {
	seller := &models.Seller{
		Name:   "测试卖家",
		Phone:  phone,
		Tier:   models.SellerTierGold,
		Status: models.SellerStatusActive,
	}
	db.Create(seller)
	return seller
}

// createBatchTestSchedule 创建指定状态的结算批次
func createBatchTestSchedule(db *gorm.DB, sellerID int64, totalAmount float64, orderCount int, settlementDate time.Time, status string) *models.SettlementSchedule {
	schedule := &models.SettlementSchedule{
		BatchNo:        utils.GenerateBatchNo(),
		SellerID:       sellerID,
		Tier:           models.SellerTierGold,
		TotalAmount:    totalAmount,
		OrderCount:     orderCount,
		SettlementDate: settlementDate,
		Status:         status,
	}
	db.Create(schedule)
	return schedule
}

// createBatchTestOrder 创建已进入批次的订单
func createBatchTestOrder(db *gorm.DB, sellerID, batchID int64, earning float64) *models.Order {
	order := &models.Order{
		OrderNo:           utils.GenerateOrderNo("ORD"),
		SellerID:          sellerID,
		TotalValue:        earning + 200.0,
		ShippingCost:      150.0,
		SellerEarning:     earning,
		PaymentMode:       models.PaymentModePrepaid,
		Status:            models.OrderStatusDelivered,
		SettlementStatus:  models.SettlementStatusScheduled,
		SettlementBatchID: &batchID,
	}
	db.Create(order)
	return order
}

func TestBatchService_ProcessDue(t *testing.T) {
	t.Run("到期批次完成结算并释放余额", func(t *testing.T) {
		db := setupBatchTestDB(t)
		mockSMS := sms.NewMockClient("物流结算")
		svc, ledgerService := newBatchTestService(db, mockSMS)
		ctx := context.Background()

		phone := "13800138001"
		seller := createBatchTestSeller(db, &phone)
		yesterday := time.Now().AddDate(0, 0, -1)
		schedule := createBatchTestSchedule(db, seller.ID, 800.0, 1, yesterday, models.ScheduleStatusScheduled)
		order := createBatchTestOrder(db, seller.ID, schedule.ID, 800.0)

		// 排期时的入账条目
		_, err := ledgerService.AppendSeller(ctx, &ledgersvc.SellerAppendRequest{
			SellerID: seller.ID, Type: models.EntryTypeEarning, Amount: 800.0,
			Description: "订单妥投入账", OrderID: &order.ID, BatchID: &schedule.ID,
		})
		require.NoError(t, err)

		summary, err := svc.ProcessDue(ctx, time.Now())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Scanned)
		assert.Equal(t, 1, summary.Completed)
		assert.Equal(t, 0, summary.Failed)

		var updated models.SettlementSchedule
		require.NoError(t, db.First(&updated, schedule.ID).Error)
		assert.Equal(t, models.ScheduleStatusCompleted, updated.Status)
		require.NotNil(t, updated.ProcessedAt)

		// 待结算释放到可提现
		balance, err := ledgerService.GetSellerBalance(ctx, seller.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, balance.Pending)
		assert.Equal(t, 800.0, balance.Available)

		// 批内订单标记已结算
		var settledOrder models.Order
		require.NoError(t, db.First(&settledOrder, order.ID).Error)
		assert.Equal(t, models.SettlementStatusSettled, settledOrder.SettlementStatus)

		// 统计缓存同步
		var stats models.SellerStats
		require.NoError(t, db.Where("seller_id = ?", seller.ID).First(&stats).Error)
		assert.Equal(t, 800.0, stats.TotalSettled)
		assert.Equal(t, 800.0, stats.AvailableForWithdrawal)

		// 到账短信
		require.Len(t, mockSMS.Sent, 1)
		assert.Equal(t, phone, mockSMS.Sent[0].Phone)
	})

	t.Run("未到期批次不被扫描", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		tomorrow := time.Now().AddDate(0, 0, 1)
		createBatchTestSchedule(db, seller.ID, 500.0, 1, tomorrow, models.ScheduleStatusScheduled)

		summary, err := svc.ProcessDue(ctx, time.Now())

		require.NoError(t, err)
		assert.Equal(t, 0, summary.Scanned)
	})

	t.Run("单个批次失败不影响其他批次", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)
		ctx := context.Background()

		sellerA := createBatchTestSeller(db, nil)
		sellerB := createBatchTestSeller(db, nil)
		yesterday := time.Now().AddDate(0, 0, -1)
		// 零金额批次不触碰账本
		okBatch := createBatchTestSchedule(db, sellerA.ID, 0, 0, yesterday, models.ScheduleStatusScheduled)
		badBatch := createBatchTestSchedule(db, sellerB.ID, 500.0, 1, yesterday, models.ScheduleStatusScheduled)

		// 账本表不可用时，需要释放余额的批次失败
		require.NoError(t, db.Migrator().DropTable(&models.SellerLedgerEntry{}))

		summary, err := svc.ProcessDue(ctx, time.Now())

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Scanned)
		assert.Equal(t, 1, summary.Completed)
		assert.Equal(t, 1, summary.Failed)

		var completed models.SettlementSchedule
		require.NoError(t, db.First(&completed, okBatch.ID).Error)
		assert.Equal(t, models.ScheduleStatusCompleted, completed.Status)

		var failed models.SettlementSchedule
		require.NoError(t, db.First(&failed, badBatch.ID).Error)
		assert.Equal(t, models.ScheduleStatusFailed, failed.Status)
		require.NotNil(t, failed.FailureReason)
		assert.NotEmpty(t, *failed.FailureReason)
	})
}

func TestBatchService_ProcessBatch(t *testing.T) {
	t.Run("手动触发处理单个批次", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, ledgerService := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		schedule := createBatchTestSchedule(db, seller.ID, 300.0, 1, time.Now(), models.ScheduleStatusScheduled)
		_, err := ledgerService.AppendSeller(ctx, &ledgersvc.SellerAppendRequest{
			SellerID: seller.ID, Type: models.EntryTypeEarning, Amount: 300.0, Description: "入账",
		})
		require.NoError(t, err)

		result, err := svc.ProcessBatch(ctx, schedule.ID)

		require.NoError(t, err)
		assert.Equal(t, models.ScheduleStatusCompleted, result.Status)
		assert.Equal(t, 300.0, result.TotalAmount)
	})

	t.Run("已完成批次不可再次处理", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		schedule := createBatchTestSchedule(db, seller.ID, 300.0, 1, time.Now(), models.ScheduleStatusCompleted)

		_, err := svc.ProcessBatch(ctx, schedule.ID)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrScheduleNotScheduled.Code, appErr.Code)
	})

	t.Run("批次不存在", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)

		_, err := svc.ProcessBatch(context.Background(), 9999)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrScheduleNotFound.Code, appErr.Code)
	})
}

func TestTruncateReason(t *testing.T) {
	t.Run("短原因原样保留", func(t *testing.T) {
		assert.Equal(t, "账本写入失败", truncateReason("账本写入失败", 250))
	})

	t.Run("超长中文原因按字符边界截断", func(t *testing.T) {
		long := strings.Repeat("账本写入失败", 20)
		got := truncateReason(long, 250)

		assert.LessOrEqual(t, len(got), 250)
		assert.True(t, utf8.ValidString(got))
		assert.True(t, strings.HasPrefix(long, got))
	})
}

func TestBatchService_RetryFailed(t *testing.T) {
	t.Run("失败批次重新排期", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		schedule := createBatchTestSchedule(db, seller.ID, 500.0, 1, time.Now().AddDate(0, 0, -3), models.ScheduleStatusFailed)
		reason := "账本写入失败"
		db.Model(schedule).Update("failure_reason", reason)

		newDate := time.Now().AddDate(0, 0, 1)
		rescheduled, err := svc.RetryFailed(ctx, schedule.ID, newDate)

		require.NoError(t, err)
		assert.Equal(t, models.ScheduleStatusScheduled, rescheduled.Status)
		assert.Nil(t, rescheduled.FailureReason)
	})

	t.Run("重试已落账的批次不重复释放", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, ledgerService := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		yesterday := time.Now().AddDate(0, 0, -1)
		schedule := createBatchTestSchedule(db, seller.ID, 500.0, 1, yesterday, models.ScheduleStatusFailed)
		db.Model(schedule).Update("failure_reason", "批次状态更新失败")

		// 首次处理时释放已经写入账本，批次却没能标记完成
		_, err := ledgerService.AppendSeller(ctx, &ledgersvc.SellerAppendRequest{
			SellerID: seller.ID, Type: models.EntryTypeEarning, Amount: 500.0,
			Description: "订单妥投入账", BatchID: &schedule.ID,
		})
		require.NoError(t, err)
		_, err = ledgerService.AppendSeller(ctx, &ledgersvc.SellerAppendRequest{
			SellerID: seller.ID, Type: models.EntryTypeSettlement, Amount: 500.0,
			Description: "结算批次释放", BatchID: &schedule.ID,
		})
		require.NoError(t, err)

		_, err = svc.RetryFailed(ctx, schedule.ID, yesterday)
		require.NoError(t, err)

		summary, err := svc.ProcessDue(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Completed)

		// 本批次的结算条目只有一条，余额不被放大
		var count int64
		db.Model(&models.SellerLedgerEntry{}).
			Where("batch_id = ? AND type = ?", schedule.ID, models.EntryTypeSettlement).
			Count(&count)
		assert.Equal(t, int64(1), count)

		balance, err := ledgerService.GetSellerBalance(ctx, seller.ID)
		require.NoError(t, err)
		assert.Equal(t, 500.0, balance.Available)
		assert.Equal(t, 0.0, balance.Pending)
	})

	t.Run("非失败批次不可重新排期", func(t *testing.T) {
		db := setupBatchTestDB(t)
		svc, _ := newBatchTestService(db, nil)
		ctx := context.Background()

		seller := createBatchTestSeller(db, nil)
		schedule := createBatchTestSchedule(db, seller.ID, 500.0, 1, time.Now(), models.ScheduleStatusScheduled)

		_, err := svc.RetryFailed(ctx, schedule.ID, time.Now().AddDate(0, 0, 1))

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrScheduleNotScheduled.Code, appErr.Code)
	})
}
