package admin

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/utils"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// CatalogService 基础档案服务
// 卖家、配送员与订单由上游系统产生，这里提供录入与查询入口供结算子系统消费。
type CatalogService struct {
	sellerRepo  *repository.SellerRepository
	partnerRepo *repository.PartnerRepository
	orderRepo   *repository.OrderRepository
}

// NewCatalogService 创建基础档案服务
func NewCatalogService(
	sellerRepo *repository.SellerRepository,
	partnerRepo *repository.PartnerRepository,
	orderRepo *repository.OrderRepository,
) *CatalogService {
	return &CatalogService{
		sellerRepo:  sellerRepo,
		partnerRepo: partnerRepo,
		orderRepo:   orderRepo,
	}
}

// CreateSellerRequest 创建卖家请求
type CreateSellerRequest struct {
	Name       string   `json:"name" binding:"required"`
	Phone      *string  `json:"phone"`
	Email      *string  `json:"email"`
	FeePercent *float64 `json:"fee_percent"`
}

// CreateSeller 录入卖家，初始等级为青铜
func (s *CatalogService) CreateSeller(ctx context.Context, req *CreateSellerRequest) (*models.Seller, error) {
	if req.Phone != nil {
		if _, err := s.sellerRepo.GetByPhone(ctx, *req.Phone); err == nil {
			return nil, apperrors.ErrAlreadyExists.WithMessage("手机号已被注册")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDatabaseError.WithError(err)
		}
	}
	if req.FeePercent != nil && (*req.FeePercent < 0 || *req.FeePercent > 100) {
		return nil, apperrors.ErrInvalidParams.WithMessage("佣金比例必须在 0-100 之间")
	}

	seller := &models.Seller{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Tier:       models.SellerTierBronze,
		FeePercent: req.FeePercent,
		Status:     models.SellerStatusActive,
	}
	if err := s.sellerRepo.Create(ctx, seller); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return seller, nil
}

// GetSeller 获取卖家
func (s *CatalogService) GetSeller(ctx context.Context, id int64) (*models.Seller, error) {
	seller, err := s.sellerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSellerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return seller, nil
}

// ListSellers 分页查询卖家
func (s *CatalogService) ListSellers(ctx context.Context, filter *repository.SellerFilter, p utils.Pagination) ([]*models.Seller, int64, error) {
	sellers, total, err := s.sellerRepo.List(ctx, filter, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return sellers, total, nil
}

// CreatePartnerRequest 创建配送员请求
type CreatePartnerRequest struct {
	Name      string   `json:"name" binding:"required"`
	Phone     *string  `json:"phone"`
	RatePerKm *float64 `json:"rate_per_km"`
}

// CreatePartner 录入配送员
func (s *CatalogService) CreatePartner(ctx context.Context, req *CreatePartnerRequest) (*models.Partner, error) {
	if req.Phone != nil {
		if _, err := s.partnerRepo.GetByPhone(ctx, *req.Phone); err == nil {
			return nil, apperrors.ErrAlreadyExists.WithMessage("手机号已被注册")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDatabaseError.WithError(err)
		}
	}
	if req.RatePerKm != nil && *req.RatePerKm <= 0 {
		return nil, apperrors.ErrInvalidParams.WithMessage("每公里报酬必须大于零")
	}

	partner := &models.Partner{
		Name:      req.Name,
		Phone:     req.Phone,
		RatePerKm: req.RatePerKm,
		Status:    models.PartnerStatusActive,
	}
	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return partner, nil
}

// CreateOrderRequest 录入订单请求
type CreateOrderRequest struct {
	SellerID     int64   `json:"seller_id" binding:"required"`
	PartnerID    *int64  `json:"partner_id"`
	TotalValue   float64 `json:"total_value" binding:"required,gt=0"`
	ShippingCost float64 `json:"shipping_cost" binding:"gte=0"`
	PaymentMode  string  `json:"payment_mode" binding:"required,oneof=prepaid cod"`
	CodAmount    float64 `json:"cod_amount" binding:"gte=0"`
	DistanceKm   float64 `json:"distance_km" binding:"gte=0"`
}

// CreateOrder 录入订单，初始状态 created、未排期
func (s *CatalogService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if _, err := s.sellerRepo.GetByID(ctx, req.SellerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSellerNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if req.PartnerID != nil {
		if _, err := s.partnerRepo.GetByID(ctx, *req.PartnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrPartnerNotFound
			}
			return nil, apperrors.ErrDatabaseError.WithError(err)
		}
	}
	if req.PaymentMode == models.PaymentModeCod && req.CodAmount <= 0 {
		return nil, apperrors.ErrInvalidParams.WithMessage("货到付款订单必须填写应收金额")
	}

	order := &models.Order{
		OrderNo:          utils.GenerateOrderNo("ORD"),
		SellerID:         req.SellerID,
		PartnerID:        req.PartnerID,
		TotalValue:       utils.Round2(req.TotalValue),
		ShippingCost:     utils.Round2(req.ShippingCost),
		PaymentMode:      req.PaymentMode,
		CodAmount:        utils.Round2(req.CodAmount),
		DistanceKm:       req.DistanceKm,
		Status:           models.OrderStatusCreated,
		SettlementStatus: models.SettlementStatusUnscheduled,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return order, nil
}

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=created in_transit delivered rto cancelled"`
}

// UpdateOrderStatus 更新订单配送状态
// 妥投状态请改用结算排期接口，这里只承接非妥投的状态推进。
func (s *CatalogService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	if order.SettlementStatus != models.SettlementStatusUnscheduled {
		return nil, apperrors.ErrOrderAlreadyScheduled
	}

	order.Status = status
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, apperrors.ErrDatabaseError.WithError(err)
	}
	return order, nil
}

// ListOrders 分页查询订单
func (s *CatalogService) ListOrders(ctx context.Context, filter *repository.OrderFilter, p utils.Pagination) ([]*models.Order, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, filter, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, apperrors.ErrDatabaseError.WithError(err)
	}
	return orders, total, nil
}
