// Package admin 提供管理端 HTTP Handler
package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	adminService "github.com/chenhao2025/logistics-settlement-backend/internal/service/admin"
	tierService "github.com/chenhao2025/logistics-settlement-backend/internal/service/tier"
)

// TierHandler 等级管理处理器
type TierHandler struct {
	tierService     *tierService.Service
	overrideService *adminService.OverrideService
}

// NewTierHandler 创建等级管理处理器
func NewTierHandler(tierSvc *tierService.Service, overrideSvc *adminService.OverrideService) *TierHandler {
	return &TierHandler{
		tierService:     tierSvc,
		overrideService: overrideSvc,
	}
}

// EvaluateSeller 对单个卖家立即执行等级评估
// @Summary 评估卖家等级
// @Tags 等级
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Success 200 {object} response.Response{data=tierService.EvaluationResult}
// @Router /admin/sellers/{id}/tier/evaluate [post]
func (h *TierHandler) EvaluateSeller(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseID(c, "卖家")
	if !ok {
		return
	}

	result, err := h.tierService.EvaluateSeller(c.Request.Context(), sellerID, time.Now(), models.TierTriggerAdmin)
	handler.MustSucceed(c, err, result)
}

// OverrideTierRequest 等级改写请求体
type OverrideTierRequest struct {
	NewTier string `json:"new_tier" binding:"required,oneof=bronze silver gold"`
	Reason  string `json:"reason" binding:"required"`
}

// OverrideTier 管理员直接改写卖家等级
// @Summary 改写卖家等级
// @Tags 等级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Param request body OverrideTierRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/sellers/{id}/tier/override [post]
func (h *TierHandler) OverrideTier(c *gin.Context) {
	adminID, sellerID, ok := handler.RequireAdminAndParseID(c, "卖家")
	if !ok {
		return
	}

	var req OverrideTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	err := h.overrideService.OverrideTier(c.Request.Context(), adminID, &adminService.OverrideTierRequest{
		SellerID: sellerID,
		NewTier:  req.NewTier,
		Reason:   req.Reason,
	})
	handler.MustSucceed(c, err, nil)
}

// TierHistory 分页查询卖家的等级评估历史
// @Summary 卖家等级历史
// @Tags 等级
// @Produce json
// @Security BearerAuth
// @Param id path int true "卖家ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/sellers/{id}/tier/history [get]
func (h *TierHandler) TierHistory(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseID(c, "卖家")
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	logs, total, err := h.tierService.History(c.Request.Context(), sellerID, p)
	handler.MustSucceedPage(c, err, logs, total, p.Page, p.PageSize)
}
