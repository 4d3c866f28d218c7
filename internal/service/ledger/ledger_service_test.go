package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// setupLedgerTestDB 创建账本测试数据库
func setupLedgerTestDB(t *testing.T) *gorm.DB {
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
		&models.SellerLedgerEntry{},
		&models.PartnerLedgerEntry{},
		&models.SellerStats{},
	)
	require.NoError(t, err)

	return db
}

func newLedgerTestService(db *gorm.DB) *Service {
	return NewService(repository.NewLedgerRepository(db), repository.NewStatsRepository(db))
}

func TestService_AppendSeller(t *testing.T) {
	t.Run("入账条目计入待结算", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		entry, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID:    1,
			Type:        models.EntryTypeEarning,
			Amount:      800.0,
			Description: "订单 ORD001 妥投入账",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), entry.Sequence)
		assert.Equal(t, 0.0, entry.BalanceBefore)
		assert.Equal(t, 800.0, entry.BalanceAfter)
		assert.Equal(t, 800.0, entry.PendingAfter)
		assert.Equal(t, 0.0, entry.AvailableAfter)
	})

	t.Run("结算条目将待结算释放到可提现", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 800.0, Description: "入账",
		})
		require.NoError(t, err)

		entry, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeSettlement, Amount: 800.0, Description: "批次释放",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), entry.Sequence)
		// settlement 只在口径间搬运，总余额不变
		assert.Equal(t, 800.0, entry.BalanceAfter)
		assert.Equal(t, 0.0, entry.PendingAfter)
		assert.Equal(t, 800.0, entry.AvailableAfter)
	})

	t.Run("结算金额超出待结算时向下收敛到零", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 100.0, Description: "入账",
		})
		require.NoError(t, err)

		entry, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeSettlement, Amount: 150.0, Description: "批次释放",
		})

		require.NoError(t, err)
		assert.Equal(t, 0.0, entry.PendingAfter)
		assert.Equal(t, 150.0, entry.AvailableAfter)
	})

	t.Run("可提现不足时拒绝打款条目", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 500.0, Description: "入账",
		})
		require.NoError(t, err)

		// 全部金额还在待结算口径，不可打款
		_, err = svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypePayout, Amount: 100.0, Description: "打款",
		})

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInsufficientBalance.Code, appErr.Code)

		// 拒绝的追加不产生条目
		var count int64
		db.Model(&models.SellerLedgerEntry{}).Where("seller_id = ?", 1).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("人工调增与调减", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		refund, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeRefund, Amount: 200.0, Description: "人工调增",
		})
		require.NoError(t, err)
		assert.Equal(t, 200.0, refund.AvailableAfter)
		assert.Equal(t, 200.0, refund.BalanceAfter)

		deduction, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeDeduction, Amount: 50.0, Description: "人工调减",
		})
		require.NoError(t, err)
		assert.Equal(t, 150.0, deduction.AvailableAfter)
		assert.Equal(t, 150.0, deduction.BalanceAfter)
	})

	t.Run("非法条目类型被拒绝", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryType("bonus"), Amount: 10.0, Description: "x",
		})

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidEntryType.Code, appErr.Code)
	})

	t.Run("金额必须为正且描述必填", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: -5.0, Description: "x",
		})
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidAmount.Code, appErr.Code)

		_, err = svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 5.0,
		})
		require.Error(t, err)
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidParams.Code, appErr.Code)
	})

	t.Run("不同卖家的链互不影响", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		e1, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 100.0, Description: "入账",
		})
		require.NoError(t, err)
		e2, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 2, Type: models.EntryTypeEarning, Amount: 300.0, Description: "入账",
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), e1.Sequence)
		assert.Equal(t, int64(1), e2.Sequence)
		assert.Equal(t, 100.0, e1.PendingAfter)
		assert.Equal(t, 300.0, e2.PendingAfter)
	})
}

func TestService_AppendSeller_Concurrent(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerTestService(db)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.AppendSeller(ctx, &SellerAppendRequest{
				SellerID:    1,
				Type:        models.EntryTypeEarning,
				Amount:      10.0,
				Description: fmt.Sprintf("并发入账 %d", idx),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// 序号连续且余额链衔接
	require.NoError(t, svc.VerifySellerChain(ctx, 1))

	balance, err := svc.GetSellerBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 200.0, balance.Pending)
	assert.Equal(t, 200.0, balance.Balance)
}

func TestService_AppendPartner(t *testing.T) {
	t.Run("入账与打款的余额链", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		earning, err := svc.AppendPartner(ctx, &PartnerAppendRequest{
			PartnerID: 1, Type: models.EntryTypeEarning, Amount: 66.0, Description: "配送报酬",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), earning.Sequence)
		assert.Equal(t, 66.0, earning.BalanceAfter)

		payout, err := svc.AppendPartner(ctx, &PartnerAppendRequest{
			PartnerID: 1, Type: models.EntryTypePayout, Amount: 60.0, Description: "提现打款",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), payout.Sequence)
		assert.Equal(t, 66.0, payout.BalanceBefore)
		assert.Equal(t, 6.0, payout.BalanceAfter)
	})

	t.Run("余额不足时拒绝打款", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendPartner(ctx, &PartnerAppendRequest{
			PartnerID: 1, Type: models.EntryTypeEarning, Amount: 50.0, Description: "配送报酬",
		})
		require.NoError(t, err)

		_, err = svc.AppendPartner(ctx, &PartnerAppendRequest{
			PartnerID: 1, Type: models.EntryTypePayout, Amount: 100.0, Description: "提现打款",
		})

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInsufficientBalance.Code, appErr.Code)
	})
}

func TestService_GetSellerBalance(t *testing.T) {
	t.Run("空链返回零余额", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)

		balance, err := svc.GetSellerBalance(context.Background(), 99)

		require.NoError(t, err)
		assert.Equal(t, int64(99), balance.SellerID)
		assert.Equal(t, 0.0, balance.Balance)
		assert.Equal(t, 0.0, balance.Pending)
		assert.Equal(t, 0.0, balance.Available)
	})

	t.Run("返回链尾快照", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeEarning, Amount: 300.0, Description: "入账",
		})
		require.NoError(t, err)
		_, err = svc.AppendSeller(ctx, &SellerAppendRequest{
			SellerID: 1, Type: models.EntryTypeSettlement, Amount: 100.0, Description: "释放",
		})
		require.NoError(t, err)

		balance, err := svc.GetSellerBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 300.0, balance.Balance)
		assert.Equal(t, 200.0, balance.Pending)
		assert.Equal(t, 100.0, balance.Available)
	})
}

func TestService_VerifySellerChain(t *testing.T) {
	t.Run("被篡改的链校验失败", func(t *testing.T) {
		db := setupLedgerTestDB(t)
		svc := newLedgerTestService(db)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
				SellerID: 1, Type: models.EntryTypeEarning, Amount: 100.0, Description: "入账",
			})
			require.NoError(t, err)
		}
		require.NoError(t, svc.VerifySellerChain(ctx, 1))

		// 直接改写历史条目，链应断裂
		err := db.Model(&models.SellerLedgerEntry{}).
			Where("seller_id = ? AND sequence = ?", 1, 2).
			Update("balance_after", 9999.0).Error
		require.NoError(t, err)

		assert.Error(t, svc.VerifySellerChain(ctx, 1))
	})
}
