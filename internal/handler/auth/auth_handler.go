// Package auth 提供认证相关的 HTTP Handler
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/jwt"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	adminService "github.com/chenhao2025/logistics-settlement-backend/internal/service/admin"
)

// Handler 认证处理器
type Handler struct {
	authService *adminService.AuthService
	jwtManager  *jwt.Manager
}

// NewHandler 创建认证处理器
func NewHandler(authSvc *adminService.AuthService, jwtManager *jwt.Manager) *Handler {
	return &Handler{
		authService: authSvc,
		jwtManager:  jwtManager,
	}
}

// AdminLogin 管理员登录
// @Summary 管理员登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body adminService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=adminService.LoginResponse}
// @Router /auth/admin/login [post]
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "请求参数"
// @Success 200 {object} response.Response{data=jwt.TokenPair}
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, err := h.jwtManager.Refresh(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "刷新令牌无效或已过期")
		return
	}
	response.Success(c, pair)
}
