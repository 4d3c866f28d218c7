package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	adminService "github.com/chenhao2025/logistics-settlement-backend/internal/service/admin"
	sellerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/seller"
)

// OverrideHandler 人工干预处理器
type OverrideHandler struct {
	overrideService *adminService.OverrideService
	statsService    *sellerService.StatsService
}

// NewOverrideHandler 创建人工干预处理器
func NewOverrideHandler(overrideSvc *adminService.OverrideService, statsSvc *sellerService.StatsService) *OverrideHandler {
	return &OverrideHandler{
		overrideService: overrideSvc,
		statsService:    statsSvc,
	}
}

// reasonBody 仅携带理由的请求体
type reasonBody struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *OverrideHandler) changeAccountStatus(c *gin.Context, mutate func(*gin.Context, int64, *adminService.AccountStatusRequest) error) {
	adminID, sellerID, ok := handler.RequireAdminAndParseID(c, "卖家")
	if !ok {
		return
	}

	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "必须填写操作理由")
		return
	}

	err := mutate(c, adminID, &adminService.AccountStatusRequest{SellerID: sellerID, Reason: body.Reason})
	handler.MustSucceed(c, err, nil)
}

// HoldSeller 冻结卖家账号
// @Summary 冻结卖家账号
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response
// @Router /admin/sellers/{id}/hold [post]
func (h *OverrideHandler) HoldSeller(c *gin.Context) {
	h.changeAccountStatus(c, func(c *gin.Context, adminID int64, req *adminService.AccountStatusRequest) error {
		return h.overrideService.HoldSellerAccount(c.Request.Context(), adminID, req)
	})
}

// RestrictSeller 限制卖家账号
// @Summary 限制卖家账号
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response
// @Router /admin/sellers/{id}/restrict [post]
func (h *OverrideHandler) RestrictSeller(c *gin.Context) {
	h.changeAccountStatus(c, func(c *gin.Context, adminID int64, req *adminService.AccountStatusRequest) error {
		return h.overrideService.RestrictSellerAccount(c.Request.Context(), adminID, req)
	})
}

// ReleaseSeller 恢复卖家账号
// @Summary 恢复卖家账号
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response
// @Router /admin/sellers/{id}/release [post]
func (h *OverrideHandler) ReleaseSeller(c *gin.Context) {
	h.changeAccountStatus(c, func(c *gin.Context, adminID int64, req *adminService.AccountStatusRequest) error {
		return h.overrideService.ReleaseSellerAccount(c.Request.Context(), adminID, req)
	})
}

// DeleteSeller 注销卖家账号
// @Summary 注销卖家账号
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response
// @Router /admin/sellers/{id}/delete [post]
func (h *OverrideHandler) DeleteSeller(c *gin.Context) {
	h.changeAccountStatus(c, func(c *gin.Context, adminID int64, req *adminService.AccountStatusRequest) error {
		return h.overrideService.DeleteSellerAccount(c.Request.Context(), adminID, req)
	})
}

// AdjustSettlement 调整批次结算日期
// @Summary 调整结算日期
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body adminService.AdjustSettlementRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/settlements/adjust [post]
func (h *OverrideHandler) AdjustSettlement(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req adminService.AdjustSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	err := h.overrideService.AdjustSettlementDate(c.Request.Context(), adminID, &req)
	handler.MustSucceed(c, err, nil)
}

// HoldPayout 冻结提现申请
// @Summary 冻结提现申请
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提现申请ID"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals/{id}/hold [post]
func (h *OverrideHandler) HoldPayout(c *gin.Context) {
	adminID, withdrawalID, ok := handler.RequireAdminAndParseID(c, "提现申请")
	if !ok {
		return
	}

	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "必须填写操作理由")
		return
	}

	err := h.overrideService.HoldPayout(c.Request.Context(), adminID, &adminService.PayoutHoldRequest{
		WithdrawalID: withdrawalID,
		Reason:       body.Reason,
	})
	handler.MustSucceed(c, err, nil)
}

// ReleasePayout 解冻提现申请
// @Summary 解冻提现申请
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提现申请ID"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals/{id}/release [post]
func (h *OverrideHandler) ReleasePayout(c *gin.Context) {
	adminID, withdrawalID, ok := handler.RequireAdminAndParseID(c, "提现申请")
	if !ok {
		return
	}

	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "必须填写操作理由")
		return
	}

	err := h.overrideService.ReleasePayout(c.Request.Context(), adminID, &adminService.PayoutHoldRequest{
		WithdrawalID: withdrawalID,
		Reason:       body.Reason,
	})
	handler.MustSucceed(c, err, nil)
}

// CorrectLedger 人工账本修正
// @Summary 人工账本修正
// @Tags 人工干预
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body adminService.LedgerCorrectionRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/ledger/corrections [post]
func (h *OverrideHandler) CorrectLedger(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req adminService.LedgerCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	err := h.overrideService.CorrectLedger(c.Request.Context(), adminID, &req)
	handler.MustSucceed(c, err, nil)
}

// ListOverrides 分页查询审计记录
// @Summary 人工干预审计记录
// @Tags 人工干预
// @Produce json
// @Security BearerAuth
// @Param admin_id query int false "管理员ID"
// @Param target_type query string false "目标类型"
// @Param action query string false "动作"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/overrides [get]
func (h *OverrideHandler) ListOverrides(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	adminID, ok := handler.ParseQueryID(c, "admin_id", "管理员")
	if !ok {
		return
	}
	targetID, ok := handler.ParseQueryID(c, "target_id", "目标")
	if !ok {
		return
	}

	filter := &repository.OverrideFilter{
		AdminID:    adminID,
		TargetType: c.Query("target_type"),
		TargetID:   targetID,
		Action:     c.Query("action"),
	}
	p := handler.BindPagination(c)

	overrides, total, err := h.overrideService.ListOverrides(c.Request.Context(), filter, p.GetOffset(), p.GetLimit())
	handler.MustSucceedPage(c, err, overrides, total, p.Page, p.PageSize)
}

// RecomputeStats 从账本与订单历史重建卖家统计
// @Summary 重建卖家统计
// @Tags 人工干预
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response{data=models.SellerStats}
// @Router /admin/sellers/{id}/stats/recompute [post]
func (h *OverrideHandler) RecomputeStats(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseID(c, "卖家")
	if !ok {
		return
	}

	stats, err := h.statsService.Recompute(c.Request.Context(), sellerID)
	handler.MustSucceed(c, err, stats)
}
