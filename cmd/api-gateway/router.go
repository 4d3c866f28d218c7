// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/jwt"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/metrics"
	adminHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/admin"
	authHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/auth"
	codHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/cod"
	partnerHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/partner"
	sellerHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/seller"
	settlementHandler "github.com/chenhao2025/logistics-settlement-backend/internal/handler/settlement"
	"github.com/chenhao2025/logistics-settlement-backend/internal/middleware"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	adminService "github.com/chenhao2025/logistics-settlement-backend/internal/service/admin"
	codService "github.com/chenhao2025/logistics-settlement-backend/internal/service/cod"
	financeService "github.com/chenhao2025/logistics-settlement-backend/internal/service/finance"
	ledgerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	partnerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/partner"
	sellerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
	settlementService "github.com/chenhao2025/logistics-settlement-backend/internal/service/settlement"
	tierService "github.com/chenhao2025/logistics-settlement-backend/internal/service/tier"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/bankpay"
	"github.com/chenhao2025/logistics-settlement-backend/pkg/sms"
)

// routerDeps 路由装配产出的服务句柄，供后台定时任务复用
type routerDeps struct {
	batchService *settlementService.BatchService
	tierService  *tierService.Service
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) *routerDeps {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// 初始化仓储
	sellerRepo := repository.NewSellerRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	codRepo := repository.NewCODRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	tierLogRepo := repository.NewTierLogRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)

	// 初始化外部服务客户端
	var smsClient sms.Sender
	if cfg.SMS.Provider == "aliyun" && cfg.SMS.AccessKeyID != "" {
		client, err := sms.NewClient(&sms.Config{
			AccessKeyID:     cfg.SMS.AccessKeyID,
			AccessKeySecret: cfg.SMS.AccessKeySecret,
			SignName:        cfg.SMS.SignName,
		})
		if err != nil {
			logger.Warn("短信客户端初始化失败，回退到 Mock", zap.Error(err))
			smsClient = sms.NewMockClient(cfg.SMS.SignName)
		} else {
			smsClient = client
		}
	} else {
		smsClient = sms.NewMockClient(cfg.SMS.SignName) // 开发环境使用 Mock，生产环境使用阿里云
	}
	var bankPayClient bankpay.Transferer = &bankpay.MockTransferer{} // 代付通道未接入前走 Mock

	// 初始化服务
	ledgerSvc := ledgerService.NewService(ledgerRepo, statsRepo)
	statsSvc := sellerService.NewStatsService(statsRepo, orderRepo, ledgerRepo, codRepo, sellerRepo)
	schedulerSvc := settlementService.NewSchedulerService(
		orderRepo, sellerRepo, settlementRepo, ledgerSvc, statsSvc, &cfg.Business.Settlement)
	batchSvc := settlementService.NewBatchService(
		settlementRepo, orderRepo, sellerRepo, ledgerSvc, statsSvc, smsClient)
	tierSvc := tierService.NewService(sellerRepo, orderRepo, statsRepo, tierLogRepo)
	earningSvc := partnerService.NewEarningService(partnerRepo, orderRepo, ledgerSvc, &cfg.Business.Partner)
	withdrawSvc := partnerService.NewWithdrawService(
		withdrawalRepo, partnerRepo, ledgerSvc, bankPayClient, smsClient, &cfg.Business.Partner)
	codSvc := codService.NewService(codRepo, orderRepo, statsSvc, &cfg.Business.Settlement)
	authSvc := adminService.NewAuthService(adminRepo, jwtManager)
	overrideSvc := adminService.NewOverrideService(
		overrideRepo, sellerRepo, partnerRepo, settlementRepo, withdrawalRepo, tierLogRepo, statsRepo, ledgerSvc)
	catalogSvc := adminService.NewCatalogService(sellerRepo, partnerRepo, orderRepo)
	dashboardSvc := financeService.NewDashboardService(
		ledgerRepo, settlementRepo, withdrawalRepo, codRepo, orderRepo)
	exportSvc := financeService.NewExportService(settlementRepo, withdrawalRepo, codRepo)

	// 初始化处理器
	authH := authHandler.NewHandler(authSvc, jwtManager)
	sellerH := sellerHandler.NewHandler(statsSvc, ledgerSvc, settlementRepo)
	partnerH := partnerHandler.NewHandler(earningSvc, withdrawSvc, ledgerSvc)
	settlementH := settlementHandler.NewHandler(schedulerSvc, batchSvc, earningSvc, settlementRepo)
	codH := codHandler.NewHandler(codSvc)
	tierH := adminHandler.NewTierHandler(tierSvc, overrideSvc)
	overrideH := adminHandler.NewOverrideHandler(overrideSvc, statsSvc)
	withdrawalH := adminHandler.NewWithdrawalHandler(withdrawSvc)
	financeH := adminHandler.NewFinanceHandler(dashboardSvc, exportSvc)
	catalogH := adminHandler.NewCatalogHandler(catalogSvc)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.CORS(middleware.CORSFromConfig(&cfg.CORS)))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RequestSizeLimiter(1 << 20)) // 结算接口均为小报文，1MB 足够
	r.Use(middleware.AccessLog(logger))
	r.Use(metrics.GetMetrics().Middleware())

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Prometheus 指标
	r.GET("/metrics", metrics.Handler())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口（无需认证，限流保护）
		public := v1.Group("")
		if cfg.RateLimit.Enabled {
			public.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig(redisClient)))
		}
		{
			// 登录接口单独收紧，防止撞库
			public.POST("/auth/admin/login", middleware.IPRateLimit(redisClient, 10, time.Minute), authH.AdminLogin)
			public.POST("/auth/refresh", authH.RefreshToken)
		}

		// 卖家端接口（需要卖家认证）
		sellers := v1.Group("/sellers/me")
		sellers.Use(middleware.SellerAuth(jwtManager))
		{
			sellers.GET("/stats", sellerH.GetStats)
			sellers.GET("/balance", sellerH.GetBalance)
			sellers.GET("/ledger", sellerH.ListLedger)
			sellers.GET("/settlements", sellerH.ListSettlements)
		}

		// 配送员端接口（需要配送员认证）
		partners := v1.Group("")
		partners.Use(middleware.PartnerAuth(jwtManager))
		{
			partners.GET("/partners/me/balance", partnerH.GetBalance)
			partners.GET("/partners/me/ledger", partnerH.ListLedger)
			partners.POST("/partners/me/withdrawals", middleware.ActorRateLimit(redisClient, 5, time.Minute), partnerH.ApplyWithdrawal)
			partners.GET("/partners/me/withdrawals", partnerH.ListWithdrawals)

			// 代收货款上报
			partners.POST("/cod/collections", codH.ReportCollection)
			partners.GET("/cod/orders/:order_id", codH.GetByOrder)
		}

		// 妥投确认触发排期（上游履约系统以管理凭证调用）
		internalAPI := v1.Group("")
		internalAPI.Use(middleware.AdminAuth(jwtManager))
		{
			internalAPI.POST("/settlements/orders/:id/schedule", settlementH.ScheduleOrder)
		}

		// 管理端接口（需要管理员认证）
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(jwtManager))
		{
			// 卖家、配送员与订单录入
			admin.POST("/sellers", catalogH.CreateSeller)
			admin.GET("/sellers", catalogH.ListSellers)
			admin.GET("/sellers/:id", catalogH.GetSeller)
			admin.POST("/partners", catalogH.CreatePartner)
			admin.POST("/orders", catalogH.CreateOrder)
			admin.GET("/orders", catalogH.ListOrders)
			admin.PUT("/orders/:id/status", catalogH.UpdateOrderStatus)

			// 结算排期与批次处理
			admin.POST("/settlements/process-due", settlementH.ProcessDue)
			admin.GET("/settlements", settlementH.List)
			admin.GET("/settlements/:id", settlementH.GetBatch)
			admin.POST("/settlements/:id/process", settlementH.ProcessBatch)
			admin.POST("/settlements/:id/retry", settlementH.RetryFailed)
			admin.POST("/settlements/adjust", overrideH.AdjustSettlement)

			// 档位管理
			admin.POST("/sellers/:id/tier/evaluate", tierH.EvaluateSeller)
			admin.POST("/sellers/:id/tier/override", tierH.OverrideTier)
			admin.GET("/sellers/:id/tier/history", tierH.TierHistory)

			// 账户状态干预
			admin.POST("/sellers/:id/hold", overrideH.HoldSeller)
			admin.POST("/sellers/:id/restrict", overrideH.RestrictSeller)
			admin.POST("/sellers/:id/release", overrideH.ReleaseSeller)
			admin.POST("/sellers/:id/delete", overrideH.DeleteSeller)
			admin.POST("/sellers/:id/stats/recompute", overrideH.RecomputeStats)

			// 提现审批
			admin.GET("/withdrawals", withdrawalH.List)
			admin.GET("/withdrawals/:id", withdrawalH.Get)
			admin.POST("/withdrawals/:id/approve", withdrawalH.Approve)
			admin.POST("/withdrawals/:id/reject", withdrawalH.Reject)
			admin.POST("/withdrawals/:id/hold", overrideH.HoldPayout)
			admin.POST("/withdrawals/:id/release", overrideH.ReleasePayout)

			// 台账更正与干预流水
			admin.POST("/ledger/corrections", overrideH.CorrectLedger)
			admin.GET("/overrides", overrideH.ListOverrides)

			// 代收货款管理
			admin.GET("/cod/collections", codH.List)
			admin.POST("/cod/collections/:id/remit", codH.ConfirmRemittance)

			// 财务报表
			admin.GET("/finance/overview", financeH.Overview)
			admin.GET("/finance/settlements/summary", financeH.SettlementSummary)
			admin.GET("/finance/withdrawals/summary", financeH.WithdrawalSummary)
			admin.GET("/finance/settlements/export", financeH.ExportSettlements)
			admin.GET("/finance/withdrawals/export", financeH.ExportWithdrawals)
			admin.GET("/finance/cod/export", financeH.ExportCODCollections)
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})

	return &routerDeps{
		batchService: batchSvc,
		tierService:  tierSvc,
	}
}
