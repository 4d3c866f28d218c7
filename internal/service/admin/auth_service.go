// Package admin 提供管理端服务
package admin

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/crypto"
	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/jwt"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// AuthService 管理员认证服务
type AuthService struct {
	adminRepo  *repository.AdminRepository
	jwtManager *jwt.Manager
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo *repository.AdminRepository, jwtManager *jwt.Manager) *AuthService {
	return &AuthService{
		adminRepo:  adminRepo,
		jwtManager: jwtManager,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Admin *models.Admin  `json:"admin"`
	Token *jwt.TokenPair `json:"token"`
}

// Login 管理员登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	adminRecord, err := s.adminRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPasswordError.WithMessage("用户名或密码错误")
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if adminRecord.Status != models.AdminStatusActive {
		return nil, apperrors.ErrAccountDisabled
	}
	if !crypto.VerifyPassword(req.Password, adminRecord.PasswordHash) {
		return nil, apperrors.ErrPasswordError.WithMessage("用户名或密码错误")
	}

	token, err := s.jwtManager.IssuePair(adminRecord.ID, jwt.ActorAdmin, adminRecord.Role)
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, adminRecord.ID, time.Now()); err != nil {
		logger.Warn("更新管理员登录时间失败", logger.AdminID(adminRecord.ID))
	}

	logger.Info("管理员登录", logger.AdminID(adminRecord.ID))
	return &LoginResponse{Admin: adminRecord, Token: token}, nil
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=super finance ops"`
}

// CreateAdmin 创建管理员账号
func (s *AuthService) CreateAdmin(ctx context.Context, req *CreateAdminRequest) (*models.Admin, error) {
	if _, err := s.adminRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperrors.ErrAlreadyExists.WithMessage("用户名已存在")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}

	adminRecord := &models.Admin{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		Status:       models.AdminStatusActive,
	}
	if err := s.adminRepo.Create(ctx, adminRecord); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return adminRecord, nil
}

// GetByID 获取管理员
func (s *AuthService) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	adminRecord, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAdminNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return adminRecord, nil
}
