package partner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	ledgersvc "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
)

// setupEarningTestDB 创建配送报酬测试数据库
func setupEarningTestDB(t *testing.T) *gorm.DB {
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
		&models.Partner{},
		&models.Order{},
		&models.PartnerLedgerEntry{},
		&models.SellerLedgerEntry{},
		&models.SellerStats{},
	)
	require.NoError(t, err)

	return db
}

func newEarningTestService(db *gorm.DB, cfg *config.PartnerConfig) *EarningService {
	partnerRepo := repository.NewPartnerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	ledgerService := ledgersvc.NewService(ledgerRepo, statsRepo)
	return NewEarningService(partnerRepo, orderRepo, ledgerService, cfg)
}

// createEarningTestPartner 创建报酬测试配送员
func createEarningTestPartner(db *gorm.DB, ratePerKm *float64, status string) *models.Partner {
	partner := &models.Partner{
		Name:      "测试配送员",
		RatePerKm: ratePerKm,
		Status:    status,
	}
	db.Create(partner)
	return partner
}

// createEarningTestOrder 创建报酬测试订单
func createEarningTestOrder(db *gorm.DB, distanceKm float64, status string) *models.Order {
	order := &models.Order{
		OrderNo:          utils.GenerateOrderNo("ORD"),
		SellerID:         1,
		TotalValue:       300.0,
		PaymentMode:      models.PaymentModePrepaid,
		DistanceKm:       distanceKm,
		Status:           status,
		SettlementStatus: models.SettlementStatusUnscheduled,
	}
	db.Create(order)
	return order
}

func TestEarningService_ComputeEarning(t *testing.T) {
	t.Run("默认费率无阶梯", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		partner := createEarningTestPartner(db, nil, models.PartnerStatusActive)

		// 默认 6 元/公里
		assert.Equal(t, 30.0, svc.ComputeEarning(partner, 5.0))
	})

	t.Run("配送员自定义费率优先", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		partner := createEarningTestPartner(db, utils.Float64Ptr(8.0), models.PartnerStatusActive)

		assert.Equal(t, 40.0, svc.ComputeEarning(partner, 5.0))
	})

	t.Run("里程阶梯取满足的最高档", func(t *testing.T) {
		db := setupEarningTestDB(t)
		cfg := &config.PartnerConfig{
			DefaultRatePerKm: 6.0,
			DistanceSlabs: []config.DistanceSlab{
				{MinKm: 5, Addition: 10},
				{MinKm: 10, Addition: 25},
			},
		}
		svc := newEarningTestService(db, cfg)
		partner := createEarningTestPartner(db, nil, models.PartnerStatusActive)

		// 3 公里不够任何档
		assert.Equal(t, 18.0, svc.ComputeEarning(partner, 3.0))
		// 7 公里命中 5 公里档
		assert.Equal(t, 52.0, svc.ComputeEarning(partner, 7.0))
		// 12 公里命中 10 公里档
		assert.Equal(t, 97.0, svc.ComputeEarning(partner, 12.0))
	})
}

func TestEarningService_RecordDeliveryEarning(t *testing.T) {
	t.Run("妥投后报酬入账", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		ctx := context.Background()

		partner := createEarningTestPartner(db, nil, models.PartnerStatusActive)
		order := createEarningTestOrder(db, 8.0, models.OrderStatusDelivered)

		entry, err := svc.RecordDeliveryEarning(ctx, partner.ID, order.ID)

		require.NoError(t, err)
		assert.Equal(t, models.EntryTypeEarning, entry.Type)
		assert.Equal(t, 48.0, entry.Amount)
		assert.Equal(t, 48.0, entry.BalanceAfter)
		require.NotNil(t, entry.OrderID)
		assert.Equal(t, order.ID, *entry.OrderID)
	})

	t.Run("未妥投订单不入账", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		ctx := context.Background()

		partner := createEarningTestPartner(db, nil, models.PartnerStatusActive)
		order := createEarningTestOrder(db, 8.0, models.OrderStatusInTransit)

		_, err := svc.RecordDeliveryEarning(ctx, partner.ID, order.ID)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrOrderNotDelivered.Code, appErr.Code)
	})

	t.Run("禁用配送员不入账", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		ctx := context.Background()

		partner := createEarningTestPartner(db, nil, models.PartnerStatusDisabled)
		order := createEarningTestOrder(db, 8.0, models.OrderStatusDelivered)

		_, err := svc.RecordDeliveryEarning(ctx, partner.ID, order.ID)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrPartnerOnHold.Code, appErr.Code)
	})

	t.Run("零距离订单报酬为零时拒绝", func(t *testing.T) {
		db := setupEarningTestDB(t)
		svc := newEarningTestService(db, nil)
		ctx := context.Background()

		partner := createEarningTestPartner(db, nil, models.PartnerStatusActive)
		order := createEarningTestOrder(db, 0, models.OrderStatusDelivered)

		_, err := svc.RecordDeliveryEarning(ctx, partner.ID, order.ID)

		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidAmount.Code, appErr.Code)
	})
}
