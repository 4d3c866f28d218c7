// Package settlement 提供结算相关的 HTTP Handler
package settlement

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/handler"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/logger"
	"github.com/chenhao2025/logistics-settlement-backend/internal/common/response"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
	partnerService "github.com/chenhao2025/logistics-settlement-backend/internal/service/partner"
	settlementService "github.com/chenhao2025/logistics-settlement-backend/internal/service/settlement"
)

// Handler 结算处理器
type Handler struct {
	schedulerService *settlementService.SchedulerService
	batchService     *settlementService.BatchService
	earningService   *partnerService.EarningService
	settlementRepo   *repository.SettlementRepository
}

// NewHandler 创建结算处理器
func NewHandler(
	schedulerSvc *settlementService.SchedulerService,
	batchSvc *settlementService.BatchService,
	earningSvc *partnerService.EarningService,
	settlementRepo *repository.SettlementRepository,
) *Handler {
	return &Handler{
		schedulerService: schedulerSvc,
		batchService:     batchSvc,
		earningService:   earningSvc,
		settlementRepo:   settlementRepo,
	}
}

// ScheduleOrderRequest 订单妥投确认请求
type ScheduleOrderRequest struct {
	DeliveredAt *time.Time `json:"delivered_at"`
}

// ScheduleOrder 订单妥投后触发结算排期
// 同时为承运配送员入账配送报酬；配送员入账失败不影响卖家排期。
// @Summary 触发订单结算排期
// @Tags 结算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body ScheduleOrderRequest false "请求参数"
// @Success 200 {object} response.Response{data=settlementService.ScheduleResult}
// @Router /settlements/orders/{id}/schedule [post]
func (h *Handler) ScheduleOrder(c *gin.Context) {
	orderID, ok := handler.ParseID(c, "订单")
	if !ok {
		return
	}

	var req ScheduleOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}
	deliveredAt := time.Now()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}

	result, err := h.schedulerService.ScheduleOnDelivery(c.Request.Context(), orderID, deliveredAt)
	if handler.HandleError(c, err) {
		return
	}

	if result.Order.PartnerID != nil {
		if _, err := h.earningService.RecordDeliveryEarning(c.Request.Context(), *result.Order.PartnerID, orderID); err != nil {
			logger.Warn("配送员报酬入账失败",
				logger.PartnerID(*result.Order.PartnerID),
				logger.OrderNo(result.Order.OrderNo))
		}
	}

	response.Success(c, result)
}

// ProcessDue 立即扫描并处理到期批次（管理端）
// @Summary 处理到期结算批次
// @Tags 结算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.BatchRunSummary}
// @Router /admin/settlements/process-due [post]
func (h *Handler) ProcessDue(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	summary, err := h.batchService.ProcessDue(c.Request.Context(), time.Now())
	handler.MustSucceed(c, err, summary)
}

// ProcessBatch 手动处理单个批次（管理端）
// @Summary 处理单个结算批次
// @Tags 结算
// @Produce json
// @Security BearerAuth
// @Param id path int true "批次ID"
// @Success 200 {object} response.Response{data=models.BatchResult}
// @Router /admin/settlements/{id}/process [post]
func (h *Handler) ProcessBatch(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	batchID, ok := handler.ParseID(c, "结算批次")
	if !ok {
		return
	}

	result, err := h.batchService.ProcessBatch(c.Request.Context(), batchID)
	handler.MustSucceed(c, err, result)
}

// RetryFailedRequest 失败批次重试请求
type RetryFailedRequest struct {
	SettlementDate *time.Time `json:"settlement_date"`
}

// RetryFailed 将失败批次重新排期（管理端）
// @Summary 重试失败批次
// @Tags 结算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "批次ID"
// @Param request body RetryFailedRequest false "请求参数"
// @Success 200 {object} response.Response{data=models.SettlementSchedule}
// @Router /admin/settlements/{id}/retry [post]
func (h *Handler) RetryFailed(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	batchID, ok := handler.ParseID(c, "结算批次")
	if !ok {
		return
	}

	var req RetryFailedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}
	settlementDate := time.Now()
	if req.SettlementDate != nil {
		settlementDate = *req.SettlementDate
	}

	schedule, err := h.batchService.RetryFailed(c.Request.Context(), batchID, settlementDate)
	handler.MustSucceed(c, err, schedule)
}

// List 分页查询结算批次（管理端）
// @Summary 结算批次列表
// @Tags 结算
// @Produce json
// @Security BearerAuth
// @Param seller_id query int false "卖家ID"
// @Param status query string false "批次状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/settlements [get]
func (h *Handler) List(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	sellerID, ok := handler.ParseQueryID(c, "seller_id", "卖家")
	if !ok {
		return
	}
	startDate, endDate, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}

	filter := &repository.ScheduleFilter{
		SellerID:  sellerID,
		Status:    c.Query("status"),
		StartDate: startDate,
		EndDate:   endDate,
	}
	p := handler.BindPagination(c)

	schedules, total, err := h.settlementRepo.List(c.Request.Context(), filter, p.GetOffset(), p.GetLimit())
	handler.MustSucceedPage(c, err, schedules, total, p.Page, p.PageSize)
}

// GetBatch 查询批次详情（管理端）
// @Summary 结算批次详情
// @Tags 结算
// @Produce json
// @Security BearerAuth
// @Param id path int true "批次ID"
// @Success 200 {object} response.Response{data=models.SettlementSchedule}
// @Router /admin/settlements/{id} [get]
func (h *Handler) GetBatch(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}
	batchID, ok := handler.ParseID(c, "结算批次")
	if !ok {
		return
	}

	schedule, err := h.settlementRepo.GetByID(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handler.HandleError(c, apperrors.ErrScheduleNotFound)
			return
		}
		handler.HandleError(c, apperrors.ErrDatabaseError.WithError(err))
		return
	}
	response.Success(c, schedule)
}
