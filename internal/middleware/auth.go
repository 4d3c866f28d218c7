// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/jwt"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
)

// AuthConfig 认证配置
type AuthConfig struct {
	JWTManager *jwt.Manager
	ActorType  string // 期望的会话主体类型
}

// 上下文键
const (
	ContextKeyActorID   = "actor_id"
	ContextKeyActorType = "actor_type"
	ContextKeyRole      = "role"
	ContextKeyClaims    = "claims"
)

// Auth 认证中间件
func Auth(config *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := config.JWTManager.Parse(token)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				response.Unauthorized(c, "登录已过期，请重新登录")
			} else {
				response.Unauthorized(c, "无效的令牌")
			}
			c.Abort()
			return
		}

		// 验证会话主体类型
		if config.ActorType != "" && claims.ActorType != config.ActorType {
			response.Forbidden(c, "无权访问")
			c.Abort()
			return
		}

		// 设置上下文
		c.Set(ContextKeyActorID, claims.ActorID)
		c.Set(ContextKeyActorType, claims.ActorType)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			claims, err := jwtManager.Parse(token)
			if err == nil {
				c.Set(ContextKeyActorID, claims.ActorID)
				c.Set(ContextKeyActorType, claims.ActorType)
				c.Set(ContextKeyRole, claims.Role)
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// SellerAuth 卖家认证中间件
func SellerAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return Auth(&AuthConfig{
		JWTManager: jwtManager,
		ActorType:  jwt.ActorSeller,
	})
}

// PartnerAuth 配送员认证中间件
func PartnerAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return Auth(&AuthConfig{
		JWTManager: jwtManager,
		ActorType:  jwt.ActorPartner,
	})
}

// AdminAuth 管理员认证中间件
func AdminAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return Auth(&AuthConfig{
		JWTManager: jwtManager,
		ActorType:  jwt.ActorAdmin,
	})
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	// 优先从 Authorization 头获取
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 其次从查询参数获取
	token := c.Query("token")
	if token != "" {
		return token
	}

	// 最后从 Cookie 获取
	token, _ = c.Cookie("token")
	return token
}

// GetActorID 从上下文获取会话主体 ID
func GetActorID(c *gin.Context) int64 {
	actorID, exists := c.Get(ContextKeyActorID)
	if !exists {
		return 0
	}
	return actorID.(int64)
}

// GetAdminID 从上下文获取管理员 ID（非管理员会话返回 0）
func GetAdminID(c *gin.Context) int64 {
	if GetActorType(c) != jwt.ActorAdmin {
		return 0
	}
	return GetActorID(c)
}

// GetActorType 从上下文获取会话主体类型
func GetActorType(c *gin.Context) string {
	actorType, exists := c.Get(ContextKeyActorType)
	if !exists {
		return ""
	}
	return actorType.(string)
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	return role.(string)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	return claims.(*jwt.Claims)
}

// IsLoggedIn 判断是否已登录
func IsLoggedIn(c *gin.Context) bool {
	_, exists := c.Get(ContextKeyActorID)
	return exists
}
