package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	partnerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/partner"
)

// WithdrawalHandler 提现审核处理器
type WithdrawalHandler struct {
	withdrawService *partnerService.WithdrawService
}

// NewWithdrawalHandler 创建提现审核处理器
func NewWithdrawalHandler(withdrawSvc *partnerService.WithdrawService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawService: withdrawSvc}
}

// List 分页查询提现申请
// @Summary 提现申请列表
// @Tags 提现审核
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/withdrawals [get]
func (h *WithdrawalHandler) List(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	p := handler.BindPagination(c)
	withdrawals, total, err := h.withdrawService.List(c.Request.Context(), c.Query("status"), p)
	handler.MustSucceedPage(c, err, withdrawals, total, p.Page, p.PageSize)
}

// Get 查询提现申请详情
// @Summary 提现申请详情
// @Tags 提现审核
// @Produce json
// @Security BearerAuth
// @Param id path int true "提现申请ID"
// @Success 200 {object} response.Response{data=models.WithdrawalRequest}
// @Router /admin/withdrawals/{id} [get]
func (h *WithdrawalHandler) Get(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	withdrawalID, ok := handler.ParseID(c, "提现申请")
	if !ok {
		return
	}

	withdrawal, err := h.withdrawService.GetByID(c.Request.Context(), withdrawalID)
	handler.MustSucceed(c, err, withdrawal)
}

// Approve 审批通过并打款
// @Summary 审批通过提现
// @Tags 提现审核
// @Produce json
// @Security BearerAuth
// @Param id path int true "提现申请ID"
// @Success 200 {object} response.Response{data=models.WithdrawalRequest}
// @Router /admin/withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	adminID, withdrawalID, ok := handler.RequireAdminAndParseID(c, "提现申请")
	if !ok {
		return
	}

	withdrawal, err := h.withdrawService.Approve(c.Request.Context(), withdrawalID, adminID)
	handler.MustSucceed(c, err, withdrawal)
}

// RejectRequest 拒绝提现请求体
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject 拒绝提现申请
// @Summary 拒绝提现
// @Tags 提现审核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提现申请ID"
// @Param request body RejectRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.WithdrawalRequest}
// @Router /admin/withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	adminID, withdrawalID, ok := handler.RequireAdminAndParseID(c, "提现申请")
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "必须填写拒绝原因")
		return
	}

	withdrawal, err := h.withdrawService.Reject(c.Request.Context(), withdrawalID, adminID, req.Reason)
	handler.MustSucceed(c, err, withdrawal)
}
