package cod

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
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	sellersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
)

// setupCodTestDB 创建代收货款测试数据库
func setupCodTestDB(t *testing.T) *gorm.DB {
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
		&models.CODCollection{},
		&models.SellerLedgerEntry{},
	)
	require.NoError(t, err)

	return db
}

func newCodTestService(db *gorm.DB) *Service {
	orderRepo := repository.NewOrderRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	codRepo := repository.NewCODRepository(db)

	statsService := sellersvc.NewStatsService(statsRepo, orderRepo, ledgerRepo, codRepo, sellerRepo)
	return NewService(codRepo, orderRepo, statsService, nil)
}

// createCodTestOrder 创建货到付款订单
func createCodTestOrder(db *gorm.DB, paymentMode string, codAmount, shippingCost, platformFee float64) *models.Order {
	order := &models.Order{
		OrderNo:          utils.GenerateOrderNo("ORD"),
		SellerID:         1,
		TotalValue:       codAmount,
		ShippingCost:     shippingCost,
		PlatformFee:      platformFee,
		PaymentMode:      paymentMode,
		CodAmount:        codAmount,
		Status:           models.OrderStatusDelivered,
		SettlementStatus: models.SettlementStatusScheduled,
	}
	db.Create(order)
	return order
}

func TestService_ReportCollection(t *testing.T) {
	t.Run("正常上报并计算净结算额", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModeCod, 1000.0, 150.0, 50.0)

		collection, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID:         order.ID,
			PartnerID:       7,
			CollectedAmount: 1000.0,
		})

		require.NoError(t, err)
		// 手续费 2%：1000×0.02 = 20；净额 1000-150-50-20 = 780
		assert.Equal(t, 20.0, collection.CodHandlingFee)
		assert.Equal(t, 780.0, collection.NetSettlement)
		assert.Equal(t, models.RemittanceStatusCollected, collection.RemittanceStatus)
		assert.Equal(t, int64(7), collection.PartnerID)
		assert.False(t, collection.CollectedAt.IsZero())

		// 统计缓存记录现金流
		var stats models.SellerStats
		require.NoError(t, db.Where("seller_id = ?", order.SellerID).First(&stats).Error)
		assert.Equal(t, 1000.0, stats.TotalCodCollected)
		assert.Equal(t, 780.0, stats.PendingCodRemittance)
	})

	t.Run("实收金额与声明不符时按实收计算", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModeCod, 1000.0, 150.0, 50.0)

		collection, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID:         order.ID,
			PartnerID:       7,
			CollectedAmount: 900.0,
		})

		require.NoError(t, err)
		// 差异保留可审计
		assert.Equal(t, 1000.0, collection.CodAmount)
		assert.Equal(t, 900.0, collection.CollectedAmount)
		// 900×0.02 = 18；900-150-50-18 = 682
		assert.Equal(t, 682.0, collection.NetSettlement)
	})

	t.Run("重复上报返回冲突", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModeCod, 1000.0, 150.0, 50.0)

		_, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID: order.ID, PartnerID: 7, CollectedAmount: 1000.0,
		})
		require.NoError(t, err)

		_, err = svc.ReportCollection(ctx, &ReportRequest{
			OrderID: order.ID, PartnerID: 7, CollectedAmount: 1000.0,
		})
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodAlreadyCollected.Code, appErr.Code)

		var count int64
		db.Model(&models.CODCollection{}).Where("order_id = ?", order.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("非货到付款订单不可上报", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModePrepaid, 0, 150.0, 50.0)

		_, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID: order.ID, PartnerID: 7, CollectedAmount: 500.0,
		})

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrOrderNotCod.Code, appErr.Code)
	})

	t.Run("实收金额必须为正", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)

		_, err := svc.ReportCollection(context.Background(), &ReportRequest{
			OrderID: 1, PartnerID: 7, CollectedAmount: 0,
		})

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCollectedNonPositive.Code, appErr.Code)
	})
}

func TestService_ConfirmRemittance(t *testing.T) {
	t.Run("回款确认并释放待回款", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModeCod, 1000.0, 150.0, 50.0)
		collection, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID: order.ID, PartnerID: 7, CollectedAmount: 1000.0, CollectedAt: time.Now(),
		})
		require.NoError(t, err)

		confirmed, err := svc.ConfirmRemittance(ctx, collection.ID)

		require.NoError(t, err)
		assert.Equal(t, models.RemittanceStatusRemitted, confirmed.RemittanceStatus)
		require.NotNil(t, confirmed.RemittedAt)

		var stats models.SellerStats
		require.NoError(t, db.Where("seller_id = ?", order.SellerID).First(&stats).Error)
		assert.Equal(t, 1000.0, stats.TotalCodCollected)
		assert.Equal(t, 0.0, stats.PendingCodRemittance)
	})

	t.Run("重复回款返回冲突", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)
		ctx := context.Background()

		order := createCodTestOrder(db, models.PaymentModeCod, 1000.0, 150.0, 50.0)
		collection, err := svc.ReportCollection(ctx, &ReportRequest{
			OrderID: order.ID, PartnerID: 7, CollectedAmount: 1000.0,
		})
		require.NoError(t, err)

		_, err = svc.ConfirmRemittance(ctx, collection.ID)
		require.NoError(t, err)

		_, err = svc.ConfirmRemittance(ctx, collection.ID)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodAlreadyRemitted.Code, appErr.Code)
	})

	t.Run("代收记录不存在", func(t *testing.T) {
		db := setupCodTestDB(t)
		svc := newCodTestService(db)

		_, err := svc.ConfirmRemittance(context.Background(), 9999)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodRecordNotFound.Code, appErr.Code)
	})
}

func TestService_GetByOrder(t *testing.T) {
	db := setupCodTestDB(t)
	svc := newCodTestService(db)
	ctx := context.Background()

	order := createCodTestOrder(db, models.PaymentModeCod, 600.0, 100.0, 30.0)
	_, err := svc.ReportCollection(ctx, &ReportRequest{
		OrderID: order.ID, PartnerID: 3, CollectedAmount: 600.0,
	})
	require.NoError(t, err)

	collection, err := svc.GetByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, collection.OrderID)

	_, err = svc.GetByOrder(ctx, 9999)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodRecordNotFound.Code, appErr.Code)
}
