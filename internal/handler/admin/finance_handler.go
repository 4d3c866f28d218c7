package admin

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	financeService "github.com/chenhao2025/logistics-settlement-backend/internal/service/finance"
)

// FinanceHandler 财务处理器
type FinanceHandler struct {
	dashboardService *financeService.DashboardService
	exportService    *financeService.ExportService
}

// NewFinanceHandler 创建财务处理器
func NewFinanceHandler(dashboardSvc *financeService.DashboardService, exportSvc *financeService.ExportService) *FinanceHandler {
	return &FinanceHandler{
		dashboardService: dashboardSvc,
		exportService:    exportSvc,
	}
}

// Overview 财务概览
// @Summary 财务概览
// @Tags 财务
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.FinanceOverview}
// @Router /admin/finance/overview [get]
func (h *FinanceHandler) Overview(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	overview, err := h.dashboardService.Overview(c.Request.Context())
	handler.MustSucceed(c, err, overview)
}

// SettlementSummary 结算批次汇总
// @Summary 结算汇总
// @Tags 财务
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=models.SettlementSummary}
// @Router /admin/finance/settlements/summary [get]
func (h *FinanceHandler) SettlementSummary(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	summary, err := h.dashboardService.SettlementSummary(c.Request.Context(), startDate, endDate)
	handler.MustSucceed(c, err, summary)
}

// WithdrawalSummary 提现汇总
// @Summary 提现汇总
// @Tags 财务
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.WithdrawalSummary}
// @Router /admin/finance/withdrawals/summary [get]
func (h *FinanceHandler) WithdrawalSummary(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	summary, err := h.dashboardService.WithdrawalSummary(c.Request.Context())
	handler.MustSucceed(c, err, summary)
}

// ExportSettlements 导出结算批次 CSV
// @Summary 导出结算批次
// @Tags 财务
// @Produce text/csv
// @Security BearerAuth
// @Param seller_id query int false "卖家ID"
// @Param status query string false "批次状态"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Success 200 {string} string "CSV 文件"
// @Router /admin/finance/settlements/export [get]
func (h *FinanceHandler) ExportSettlements(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseQueryID(c, "seller_id", "卖家")
	if !ok {
		return
	}
	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	data, filename, err := h.exportService.ExportSettlements(c.Request.Context(), &financeService.ExportSettlementsRequest{
		SellerID:  sellerID,
		Status:    c.Query("status"),
		StartDate: startDate,
		EndDate:   endDate,
	})
	if handler.HandleError(c, err) {
		return
	}
	writeCSV(c, data, filename)
}

// ExportWithdrawals 导出提现记录 CSV
// @Summary 导出提现记录
// @Tags 财务
// @Produce text/csv
// @Security BearerAuth
// @Param status query string false "状态"
// @Success 200 {string} string "CSV 文件"
// @Router /admin/finance/withdrawals/export [get]
func (h *FinanceHandler) ExportWithdrawals(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	data, filename, err := h.exportService.ExportWithdrawals(c.Request.Context(), c.Query("status"))
	if handler.HandleError(c, err) {
		return
	}
	writeCSV(c, data, filename)
}

// ExportCODCollections 导出代收货款记录 CSV
// @Summary 导出代收记录
// @Tags 财务
// @Produce text/csv
// @Security BearerAuth
// @Param seller_id query int false "卖家ID"
// @Param remittance_status query string false "回款状态"
// @Success 200 {string} string "CSV 文件"
// @Router /admin/finance/cod/export [get]
func (h *FinanceHandler) ExportCODCollections(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseQueryID(c, "seller_id", "卖家")
	if !ok {
		return
	}
	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	data, filename, err := h.exportService.ExportCODCollections(c.Request.Context(), &repository.CODFilter{
		SellerID:         sellerID,
		RemittanceStatus: c.Query("remittance_status"),
		StartDate:        startDate,
		EndDate:          endDate,
	})
	if handler.HandleError(c, err) {
		return
	}
	writeCSV(c, data, filename)
}

func writeCSV(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "text/csv; charset=utf-8", data)
}
