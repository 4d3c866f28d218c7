// Package partner 提供配送员侧的 HTTP Handler
package partner

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/crypto"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	ledgerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/ledger"
	partnerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/partner"
)

// Handler 配送员处理器
type Handler struct {
	earningService  *partnerService.EarningService
	withdrawService *partnerService.WithdrawService
	ledgerService   *ledgerService.Service
}

// NewHandler 创建配送员处理器
func NewHandler(
	earningSvc *partnerService.EarningService,
	withdrawSvc *partnerService.WithdrawService,
	ledgerSvc *ledgerService.Service,
) *Handler {
	return &Handler{
		earningService:  earningSvc,
		withdrawService: withdrawSvc,
		ledgerService:   ledgerSvc,
	}
}

// GetBalance 获取当前配送员余额
// @Summary 配送员余额
// @Tags 配送员
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /partners/me/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	partnerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	balance, err := h.earningService.GetBalance(c.Request.Context(), partnerID)
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{"partner_id": partnerID, "balance": balance})
}

// ListLedger 分页获取当前配送员的账本
// @Summary 配送员账本
// @Tags 配送员
// @Produce json
// @Security BearerAuth
// @Param type query string false "条目类型"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /partners/me/ledger [get]
func (h *Handler) ListLedger(c *gin.Context) {
	partnerID, ok := handler.RequireActorID(c)
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

	entries, total, err := h.ledgerService.ListPartnerEntries(c.Request.Context(), partnerID, filter, p)
	handler.MustSucceedPage(c, err, entries, total, p.Page, p.PageSize)
}

// ApplyWithdrawal 提交提现申请
// @Summary 提交提现申请
// @Tags 配送员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body partnerService.ApplyRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.WithdrawalRequest}
// @Router /partners/me/withdrawals [post]
func (h *Handler) ApplyWithdrawal(c *gin.Context) {
	partnerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	var req partnerService.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.PartnerID = partnerID

	withdrawal, err := h.withdrawService.Apply(c.Request.Context(), &req)
	handler.MustSucceed(c, err, withdrawal)
}

// ListWithdrawals 分页获取当前配送员的提现记录
// @Summary 配送员提现记录
// @Tags 配送员
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /partners/me/withdrawals [get]
func (h *Handler) ListWithdrawals(c *gin.Context) {
	partnerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	withdrawals, total, err := h.withdrawService.ListByPartner(c.Request.Context(), partnerID, p)
	for _, w := range withdrawals {
		w.BankAccountNo = crypto.MaskBankCard(w.BankAccountNo)
	}
	handler.MustSucceedPage(c, err, withdrawals, total, p.Page, p.PageSize)
}
