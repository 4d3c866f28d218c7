package finance

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

func newExportTestService(db *gorm.DB) *ExportService {
	return NewExportService(
		repository.NewSettlementRepository(db),
		repository.NewWithdrawalRepository(db),
		repository.NewCODRepository(db),
	)
}

// parseExportCSV 去掉 BOM 后解析导出内容
func parseExportCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportService_ExportSettlements(t *testing.T) {
	ctx := context.Background()

	t.Run("导出批次并携带卖家名称", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		svc := newExportTestService(db)

		seller := &models.Seller{Name: "导出卖家", Tier: models.SellerTierBronze, Status: models.SellerStatusActive}
		require.NoError(t, db.Create(seller).Error)

		now := time.Now()
		createFinanceTestSchedule(t, db, seller.ID, 800, models.ScheduleStatusCompleted, &now)

		data, filename, err := svc.ExportSettlements(ctx, &ExportSettlementsRequest{})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "settlements_"))
		assert.True(t, strings.HasSuffix(filename, ".csv"))

		records := parseExportCSV(t, data)
		require.Len(t, records, 2)
		assert.Equal(t, "批次号", records[0][0])
		assert.Equal(t, "导出卖家", records[1][2])
		assert.Equal(t, "青铜", records[1][3])
		assert.Equal(t, "800.00", records[1][5])
		assert.Equal(t, "已完成", records[1][7])
	})

	t.Run("状态过滤只导出匹配批次", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		svc := newExportTestService(db)

		seller := &models.Seller{Name: "过滤卖家", Tier: models.SellerTierBronze, Status: models.SellerStatusActive}
		require.NoError(t, db.Create(seller).Error)
		createFinanceTestSchedule(t, db, seller.ID, 300, models.ScheduleStatusScheduled, nil)
		createFinanceTestSchedule(t, db, seller.ID, 200, models.ScheduleStatusFailed, nil)

		data, _, err := svc.ExportSettlements(ctx, &ExportSettlementsRequest{Status: models.ScheduleStatusFailed})
		require.NoError(t, err)

		records := parseExportCSV(t, data)
		require.Len(t, records, 2)
		assert.Equal(t, "200.00", records[1][5])
	})

	t.Run("空结果只导出表头", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		svc := newExportTestService(db)

		data, _, err := svc.ExportSettlements(ctx, &ExportSettlementsRequest{})
		require.NoError(t, err)

		records := parseExportCSV(t, data)
		require.Len(t, records, 1)
	})
}

func TestExportService_ExportWithdrawals(t *testing.T) {
	ctx := context.Background()

	t.Run("导出提现记录", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		svc := newExportTestService(db)

		reason := "资料不全"
		require.NoError(t, db.Create(&models.WithdrawalRequest{
			WithdrawalNo: "WD-EXP-1", PartnerID: 1, Amount: 250, BalanceAtRequest: 600,
			BankAccountName: "王五", BankAccountNo: "6222000055556666", BankName: "测试银行",
			Status: models.WithdrawalStatusRejected, RejectionReason: &reason,
		}).Error)

		data, filename, err := svc.ExportWithdrawals(ctx, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "withdrawals_"))

		records := parseExportCSV(t, data)
		require.Len(t, records, 2)
		assert.Equal(t, "WD-EXP-1", records[1][0])
		assert.Equal(t, "250.00", records[1][3])
		assert.Equal(t, "资料不全", records[1][6])
	})
}

func TestExportService_ExportCODCollections(t *testing.T) {
	ctx := context.Background()

	t.Run("导出代收记录", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		svc := newExportTestService(db)

		require.NoError(t, db.Create(&models.CODCollection{
			OrderID: 10, SellerID: 1, PartnerID: 2,
			CodAmount: 1000, CollectedAmount: 1000,
			ShippingCharge: 150, PlatformFee: 50, CodHandlingFee: 20, NetSettlement: 780,
			RemittanceStatus: models.RemittanceStatusCollected, CollectedAt: time.Now(),
		}).Error)

		data, filename, err := svc.ExportCODCollections(ctx, nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "cod_collections_"))

		records := parseExportCSV(t, data)
		require.Len(t, records, 2)
		assert.Equal(t, "1000.00", records[1][4])
		assert.Equal(t, "780.00", records[1][8])
		assert.Equal(t, "已收款", records[1][9])
	})
}
