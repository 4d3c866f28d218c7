// Package cod 提供代收货款相关的 HTTP Handler
package cod

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	codService "github.com/chenhao2025/logistics-settlement-backend/internal/service/cod"
)

// Handler 代收货款处理器
type Handler struct {
	codService *codService.Service
}

// NewHandler 创建代收货款处理器
func NewHandler(codSvc *codService.Service) *Handler {
	return &Handler{codService: codSvc}
}

// ReportCollection 配送员上报代收现金
// @Summary 上报代收货款
// @Tags 代收货款
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body codService.ReportRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.CODCollection}
// @Router /cod/collections [post]
func (h *Handler) ReportCollection(c *gin.Context) {
	partnerID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	var req codService.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.PartnerID = partnerID

	collection, err := h.codService.ReportCollection(c.Request.Context(), &req)
	handler.MustSucceed(c, err, collection)
}

// GetByOrder 查询订单的代收记录
// @Summary 查询订单代收记录
// @Tags 代收货款
// @Produce json
// @Security BearerAuth
// @Param order_id path int true "订单ID"
// @Success 200 {object} response.Response{data=models.CODCollection}
// @Router /cod/orders/{order_id} [get]
func (h *Handler) GetByOrder(c *gin.Context) {
	orderID, ok := handler.ParseParamID(c, "order_id", "订单")
	if !ok {
		return
	}

	collection, err := h.codService.GetByOrder(c.Request.Context(), orderID)
	handler.MustSucceed(c, err, collection)
}

// List 分页查询代收记录（管理端）
// @Summary 代收记录列表
// @Tags 代收货款
// @Produce json
// @Security BearerAuth
// @Param seller_id query int false "卖家ID"
// @Param partner_id query int false "配送员ID"
// @Param remittance_status query string false "回款状态"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/cod/collections [get]
func (h *Handler) List(c *gin.Context) {
	sellerID, ok := handler.ParseQueryID(c, "seller_id", "卖家")
	if !ok {
		return
	}
	partnerID, ok := handler.ParseQueryID(c, "partner_id", "配送员")
	if !ok {
		return
	}
	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	filter := &repository.CODFilter{
		SellerID:         sellerID,
		PartnerID:        partnerID,
		RemittanceStatus: c.Query("remittance_status"),
		StartDate:        startDate,
		EndDate:          endDate,
	}
	p := handler.BindPagination(c)

	collections, total, err := h.codService.List(c.Request.Context(), filter, p)
	handler.MustSucceedPage(c, err, collections, total, p.Page, p.PageSize)
}

// ConfirmRemittance 确认代收货款回款（管理端）
// @Summary 确认代收回款
// @Tags 代收货款
// @Produce json
// @Security BearerAuth
// @Param id path int true "代收记录ID"
// @Success 200 {object} response.Response{data=models.CODCollection}
// @Router /admin/cod/collections/{id}/remit [post]
func (h *Handler) ConfirmRemittance(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	collectionID, ok := handler.ParseID(c, "代收记录")
	if !ok {
		return
	}

	collection, err := h.codService.ConfirmRemittance(c.Request.Context(), collectionID)
	handler.MustSucceed(c, err, collection)
}
