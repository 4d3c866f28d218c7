// Package seller 提供卖家侧的 HTTP Handler
package seller

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	ledgerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	sellerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
)

// Handler 卖家处理器
type Handler struct {
	statsService   *sellerService.StatsService
	ledgerService  *ledgerService.Service
	settlementRepo *repository.SettlementRepository
}

// NewHandler 创建卖家处理器
func NewHandler(
	statsSvc *sellerService.StatsService,
	ledgerSvc *ledgerService.Service,
	settlementRepo *repository.SettlementRepository,
) *Handler {
	return &Handler{
		statsService:   statsSvc,
		ledgerService:  ledgerSvc,
		settlementRepo: settlementRepo,
	}
}

// GetStats 获取当前卖家的汇总统计
// @Summary 卖家汇总统计
// @Tags 卖家
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.SellerStats}
// @Router /sellers/me/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	sellerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	stats, err := h.statsService.Get(c.Request.Context(), sellerID)
	handler.MustSucceed(c, err, stats)
}

// GetBalance 获取当前卖家余额
// @Summary 卖家余额
// @Tags 卖家
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=ledgerService.SellerBalance}
// @Router /sellers/me/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	sellerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetSellerBalance(c.Request.Context(), sellerID)
	handler.MustSucceed(c, err, balance)
}

// ListLedger 分页获取当前卖家的账本
// @Summary 卖家账本
// @Tags 卖家
// @Produce json
// @Security BearerAuth
// @Param type query string false "条目类型"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /sellers/me/ledger [get]
func (h *Handler) ListLedger(c *gin.Context) {
	sellerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	filter := &repository.LedgerFilter{
		Type:      models.EntryType(c.Query("type")),
		StartDate: startDate,
		EndDate:   endDate,
	}
	p := handler.BindPagination(c)

	entries, total, err := h.ledgerService.ListSellerEntries(c.Request.Context(), sellerID, filter, p)
	handler.MustSucceedPage(c, err, entries, total, p.Page, p.PageSize)
}

// ListSettlements 分页获取当前卖家的结算批次
// @Summary 卖家结算批次
// @Tags 卖家
// @Produce json
// @Security BearerAuth
// @Param status query string false "批次状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /sellers/me/settlements [get]
func (h *Handler) ListSettlements(c *gin.Context) {
	sellerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	filter := &repository.ScheduleFilter{
		SellerID:  &sellerID,
		Status:    c.Query("status"),
		StartDate: startDate,
		EndDate:   endDate,
	}
	p := handler.BindPagination(c)

	schedules, total, err := h.settlementRepo.List(c.Request.Context(), filter, p.GetOffset(), p.GetLimit())
	handler.MustSucceedPage(c, err, schedules, total, p.Page, p.PageSize)
}
