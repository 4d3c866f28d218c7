package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	adminService "github.com/chenhao2025/logistics-settlement-backend/internal/service/admin"
)

// CatalogHandler 基础档案处理器
type CatalogHandler struct {
	catalogService *adminService.CatalogService
}

// NewCatalogHandler 创建基础档案处理器
func NewCatalogHandler(catalogSvc *adminService.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogSvc}
}

// CreateSeller 录入卖家
// @Summary 录入卖家
// @Tags 档案
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body adminService.CreateSellerRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Seller}
// @Router /admin/sellers [post]
func (h *CatalogHandler) CreateSeller(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	var req adminService.CreateSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	seller, err := h.catalogService.CreateSeller(c.Request.Context(), &req)
	handler.MustSucceed(c, err, seller)
}

// GetSeller 查询卖家详情
// @Summary 卖家详情
// @Tags 档案
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response{data=models.Seller}
// @Router /admin/sellers/{id} [get]
func (h *CatalogHandler) GetSeller(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseID(c, "卖家")
	if !ok {
		return
	}

	seller, err := h.catalogService.GetSeller(c.Request.Context(), sellerID)
	handler.MustSucceed(c, err, seller)
}

// ListSellers 分页查询卖家
// @Summary 卖家列表
// @Tags 档案
// @Produce json
// @Security BearerAuth
// @Param tier query string false "等级"
// @Param status query string false "状态"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/sellers [get]
func (h *CatalogHandler) ListSellers(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	filter := &repository.SellerFilter{
		Tier:   c.Query("tier"),
		Status: c.Query("status"),
	}
	p := handler.BindPagination(c)

	sellers, total, err := h.catalogService.ListSellers(c.Request.Context(), filter, p)
	handler.MustSucceedPage(c, err, sellers, total, p.Page, p.PageSize)
}

// CreatePartner 录入配送员
// @Summary 录入配送员
// @Tags 档案
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body adminService.CreatePartnerRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Partner}
// @Router /admin/partners [post]
func (h *CatalogHandler) CreatePartner(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	var req adminService.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	partner, err := h.catalogService.CreatePartner(c.Request.Context(), &req)
	handler.MustSucceed(c, err, partner)
}

// CreateOrder 录入订单
// @Summary 录入订单
// @Tags 档案
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body adminService.CreateOrderRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Order}
// @Router /admin/orders [post]
func (h *CatalogHandler) CreateOrder(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	var req adminService.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	order, err := h.catalogService.CreateOrder(c.Request.Context(), &req)
	handler.MustSucceed(c, err, order)
}

// UpdateOrderStatus 更新订单配送状态
// @Summary 更新订单状态
// @Tags 档案
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body adminService.UpdateOrderStatusRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Order}
// @Router /admin/orders/{id}/status [put]
func (h *CatalogHandler) UpdateOrderStatus(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	orderID, ok := handler.ParseID(c, "订单")
	if !ok {
		return
	}

	var req adminService.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	order, err := h.catalogService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	handler.MustSucceed(c, err, order)
}

// ListOrders 分页查询订单
// @Summary 订单列表
// @Tags 档案
// @Produce json
// @Security BearerAuth
// @Param seller_id query int false "卖家ID"
// @Param status query string false "订单状态"
// @Param settlement_status query string false "结算状态"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/orders [get]
func (h *CatalogHandler) ListOrders(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseQueryID(c, "seller_id", "卖家")
	if !ok {
		return
	}
	partnerID, ok := handler.ParseQueryID(c, "partner_id", "配送员")
	if !ok {
		return
	}

	filter := &repository.OrderFilter{
		SellerID:         sellerID,
		PartnerID:        partnerID,
		Status:           c.Query("status"),
		SettlementStatus: c.Query("settlement_status"),
		PaymentMode:      c.Query("payment_mode"),
	}
	p := handler.BindPagination(c)

	orders, total, err := h.catalogService.ListOrders(c.Request.Context(), filter, p)
	handler.MustSucceedPage(c, err, orders, total, p.Page, p.PageSize)
}
