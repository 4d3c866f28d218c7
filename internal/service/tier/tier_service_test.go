package tier

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// setupTierTestDB 创建等级评估测试数据库
func setupTierTestDB(t *testing.T) *gorm.DB {
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
		&models.TierEvaluationLog{},
	)
	require.NoError(t, err)

	return db
}

func newTierTestService(db *gorm.DB) *Service {
	return NewService(
		repository.NewSellerRepository(db),
		repository.NewOrderRepository(db),
		repository.NewStatsRepository(db),
		repository.NewTierLogRepository(db),
	)
}

// createTierTestSeller 创建等级测试卖家
func createTierTestSeller(db *gorm.DB, tier string) *models.Seller {
	seller := &models.Seller{
		Name:   "测试卖家",
		Tier:   tier,
		Status: models.SellerStatusActive,
	}
	db.Create(seller)
	return seller
}

// seedTierOrders 在指定时间点批量造单
func seedTierOrders(t *testing.T, db *gorm.DB, sellerID int64, delivered, rto, cancelled int, createdAt time.Time) {
	t.Helper()
	total := delivered + rto + cancelled
	orders := make([]*models.Order, 0, total)
	statusOf := func(i int) string {
		if i < delivered {
			return models.OrderStatusDelivered
		}
		if i < delivered+rto {
			return models.OrderStatusRTO
		}
		return models.OrderStatusCancelled
	}
	for i := 0; i < total; i++ {
		orders = append(orders, &models.Order{
			OrderNo:          fmt.Sprintf("T%d-%d-%d", sellerID, createdAt.Unix(), i),
			SellerID:         sellerID,
			TotalValue:       100.0,
			PaymentMode:      models.PaymentModePrepaid,
			Status:           statusOf(i),
			SettlementStatus: models.SettlementStatusUnscheduled,
			CreatedAt:        createdAt,
		})
	}
	require.NoError(t, db.CreateInBatches(orders, 200).Error)
}

func TestService_EvaluateSeller(t *testing.T) {
	asOf := time.Now()
	inWindow := asOf.AddDate(0, 0, -15)

	t.Run("订单量与RTO达标升为黄金", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierBronze)
		// 850 单，RTO 10%
		seedTierOrders(t, db, seller.ID, 765, 85, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, models.SellerTierBronze, result.PreviousTier)
		assert.Equal(t, models.SellerTierGold, result.NewTier)
		assert.Equal(t, 850, result.Metrics.Orders)
		assert.Equal(t, 10.0, result.Metrics.RTOPercent)

		var updated models.Seller
		require.NoError(t, db.First(&updated, seller.ID).Error)
		assert.Equal(t, models.SellerTierGold, updated.Tier)
		require.NotNil(t, updated.TierUpdatedAt)
	})

	t.Run("RTO超限阻止升级", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierSilver)
		// 825 单但 RTO 16%，升级被拦，白银保级条件仍满足
		seedTierOrders(t, db, seller.ID, 693, 132, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, models.SellerTierSilver, result.NewTier)
	})

	t.Run("订单量达标升为白银", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierBronze)
		// 350 单，RTO 10%
		seedTierOrders(t, db, seller.ID, 315, 35, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, models.SellerTierSilver, result.NewTier)
	})

	t.Run("黄金订单量不足降为白银", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierGold)
		// 400 单低于保级线 500
		seedTierOrders(t, db, seller.ID, 380, 20, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, models.SellerTierSilver, result.NewTier)
	})

	t.Run("白银RTO超限降为青铜", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierSilver)
		// 200 单，RTO 25%
		seedTierOrders(t, db, seller.ID, 150, 50, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, models.SellerTierBronze, result.NewTier)
	})

	t.Run("窗口外订单不计入指标", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierBronze)
		// 两个月前的订单不应被统计
		seedTierOrders(t, db, seller.ID, 900, 0, 0, asOf.AddDate(0, -2, 0))
		seedTierOrders(t, db, seller.ID, 50, 0, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerMonthlyTask)

		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, 50, result.Metrics.Orders)
	})

	t.Run("等级不变也写入评估日志", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)
		ctx := context.Background()

		seller := createTierTestSeller(db, models.SellerTierBronze)
		seedTierOrders(t, db, seller.ID, 90, 10, 0, inWindow)

		result, err := svc.EvaluateSeller(ctx, seller.ID, asOf, models.TierTriggerAdmin)

		require.NoError(t, err)
		assert.False(t, result.Changed)

		var logs []models.TierEvaluationLog
		require.NoError(t, db.Where("seller_id = ?", seller.ID).Find(&logs).Error)
		require.Len(t, logs, 1)
		assert.Equal(t, models.SellerTierBronze, logs[0].PreviousTier)
		assert.Equal(t, models.SellerTierBronze, logs[0].NewTier)
		assert.Equal(t, models.TierTriggerAdmin, logs[0].TriggeredBy)
		assert.Equal(t, 100, logs[0].MonthlyOrders)
	})

	t.Run("卖家不存在", func(t *testing.T) {
		db := setupTierTestDB(t)
		svc := newTierTestService(db)

		_, err := svc.EvaluateSeller(context.Background(), 9999, asOf, models.TierTriggerAdmin)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrSellerNotFound.Code, appErr.Code)
	})
}

func TestService_EvaluateAll(t *testing.T) {
	db := setupTierTestDB(t)
	svc := newTierTestService(db)
	ctx := context.Background()

	asOf := time.Now()
	inWindow := asOf.AddDate(0, 0, -10)

	upgrading := createTierTestSeller(db, models.SellerTierBronze)
	seedTierOrders(t, db, upgrading.ID, 810, 40, 0, inWindow)
	steady := createTierTestSeller(db, models.SellerTierBronze)
	seedTierOrders(t, db, steady.ID, 100, 5, 0, inWindow)

	// 注销卖家不参与评估
	deleted := createTierTestSeller(db, models.SellerTierBronze)
	db.Model(deleted).Update("status", models.SellerStatusDeleted)

	results, err := svc.EvaluateAll(ctx, asOf, models.TierTriggerMonthlyTask)

	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[int64]string{}
	for _, r := range results {
		byID[r.SellerID] = r.NewTier
	}
	assert.Equal(t, models.SellerTierGold, byID[upgrading.ID])
	assert.Equal(t, models.SellerTierBronze, byID[steady.ID])
}

func TestDecideTier(t *testing.T) {
	cases := []struct {
		name    string
		current string
		metrics models.TierMetrics
		want    string
	}{
		{"青铜无单保持", models.SellerTierBronze, models.TierMetrics{}, models.SellerTierBronze},
		{"刚好卡在黄金线不升", models.SellerTierBronze, models.TierMetrics{Orders: 800, RTOPercent: 5}, models.SellerTierSilver},
		{"黄金保级", models.SellerTierGold, models.TierMetrics{Orders: 600, RTOPercent: 10}, models.SellerTierGold},
		{"黄金RTO超限降级", models.SellerTierGold, models.TierMetrics{Orders: 900, RTOPercent: 15.5}, models.SellerTierSilver},
		{"白银订单不足降级", models.SellerTierSilver, models.TierMetrics{Orders: 100, RTOPercent: 5}, models.SellerTierBronze},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := decideTier(tc.current, &tc.metrics)
			assert.Equal(t, tc.want, got)
		})
	}
}
