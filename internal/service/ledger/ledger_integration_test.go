//go:build integration

package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// setupPostgresTestDB 启动 Postgres 容器并完成迁移
func setupPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("test_settlement"),
		tcPostgres.WithUsername("test_user"),
		tcPostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf(
		"host=%s port=%s user=test_user password=test_password dbname=test_settlement sslmode=disable",
		host, port.Port(),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.SellerLedgerEntry{},
		&models.PartnerLedgerEntry{},
		&models.SellerStats{},
	))
	return db
}

// TestService_AppendSeller_PostgresConcurrency 在真实 Postgres 上验证账本链的并发安全
func TestService_AppendSeller_PostgresConcurrency(t *testing.T) {
	db := setupPostgresTestDB(t)
	svc := NewService(repository.NewLedgerRepository(db), repository.NewStatsRepository(db))
	ctx := context.Background()

	const (
		sellerID   = int64(1)
		goroutines = 50
		amount     = 10.0
	)

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendSeller(ctx, &SellerAppendRequest{
				SellerID:    sellerID,
				Type:        models.EntryTypeEarning,
				Amount:      amount,
				Description: "并发入账",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	// 序列连续且前后快照衔接
	require.NoError(t, svc.VerifySellerChain(ctx, sellerID))

	balance, err := svc.GetSellerBalance(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, float64(goroutines)*amount, balance.Pending)

	var count int64
	require.NoError(t, db.Model(&models.SellerLedgerEntry{}).
		Where("seller_id = ?", sellerID).Count(&count).Error)
	assert.Equal(t, int64(goroutines), count)
}

// TestService_AppendPartner_PostgresPayoutRace 可提现余额在并发打款下不被透支
func TestService_AppendPartner_PostgresPayoutRace(t *testing.T) {
	db := setupPostgresTestDB(t)
	svc := NewService(repository.NewLedgerRepository(db), repository.NewStatsRepository(db))
	ctx := context.Background()

	const partnerID = int64(1)
	_, err := svc.AppendPartner(ctx, &PartnerAppendRequest{
		PartnerID:   partnerID,
		Type:        models.EntryTypeEarning,
		Amount:      100,
		Description: "配送报酬入账",
	})
	require.NoError(t, err)

	// 两笔 60 元打款并发竞争 100 元余额，恰好一笔成功
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendPartner(ctx, &PartnerAppendRequest{
				PartnerID:   partnerID,
				Type:        models.EntryTypePayout,
				Amount:      60,
				Description: "提现打款",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	balance, err := svc.GetPartnerBalance(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, balance)
}
