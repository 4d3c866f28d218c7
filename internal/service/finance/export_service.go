package finance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	apperrors "github.com/chenhao2025/logistics-settlement-backend/internal/common/errors"
	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
	"github.com/chenhao2025/logistics-settlement-backend/internal/repository"
)

// ExportService 报表导出服务
type ExportService struct {
	settlementRepo *repository.SettlementRepository
	withdrawalRepo *repository.WithdrawalRepository
	codRepo        *repository.CODRepository
}

// NewExportService 创建报表导出服务
func NewExportService(
	settlementRepo *repository.SettlementRepository,
	withdrawalRepo *repository.WithdrawalRepository,
	codRepo *repository.CODRepository,
) *ExportService {
	return &ExportService{
		settlementRepo: settlementRepo,
		withdrawalRepo: withdrawalRepo,
		codRepo:        codRepo,
	}
}

// ExportSettlementsRequest 导出结算批次请求
type ExportSettlementsRequest struct {
	SellerID  *int64     `form:"seller_id"`
	Status    string     `form:"status"`
	StartDate *time.Time `form:"start_date"`
	EndDate   *time.Time `form:"end_date"`
}

// ExportSettlements 导出结算批次为 CSV
func (s *ExportService) ExportSettlements(ctx context.Context, req *ExportSettlementsRequest) ([]byte, string, error) {
	filter := &repository.ScheduleFilter{
		SellerID:  req.SellerID,
		Status:    req.Status,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	schedules, err := s.settlementRepo.ListForExport(ctx, filter)
	if err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(buf)
	headers := []string{
		"批次号", "卖家ID", "卖家名称", "等级", "订单数", "总金额", "结算日期", "状态", "处理时间", "创建时间",
	}
	if err := writer.Write(headers); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	for _, schedule := range schedules {
		sellerName := ""
		if schedule.Seller != nil {
			sellerName = schedule.Seller.Name
		}
		processedAt := ""
		if schedule.ProcessedAt != nil {
			processedAt = schedule.ProcessedAt.Format("2006-01-02 15:04:05")
		}

		row := []string{
			schedule.BatchNo,
			fmt.Sprintf("%d", schedule.SellerID),
			sellerName,
			getTierName(schedule.Tier),
			fmt.Sprintf("%d", schedule.OrderCount),
			fmt.Sprintf("%.2f", schedule.TotalAmount),
			schedule.SettlementDate.Format("2006-01-02"),
			getScheduleStatusName(schedule.Status),
			processedAt,
			schedule.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", apperrors.ErrExportFailed.WithError(err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	filename := fmt.Sprintf("settlements_%s.csv", time.Now().Format("20060102150405"))
	return buf.Bytes(), filename, nil
}

// ExportWithdrawals 导出提现记录为 CSV
func (s *ExportService) ExportWithdrawals(ctx context.Context, status string) ([]byte, string, error) {
	withdrawals, _, err := s.withdrawalRepo.List(ctx, status, 0, 10000)
	if err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(buf)
	headers := []string{
		"提现单号", "配送员ID", "配送员姓名", "金额", "申请时余额", "状态", "拒绝原因", "打款流水号", "打款时间", "申请时间",
	}
	if err := writer.Write(headers); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	for _, withdrawal := range withdrawals {
		partnerName := ""
		if withdrawal.Partner != nil {
			partnerName = withdrawal.Partner.Name
		}
		rejection := ""
		if withdrawal.RejectionReason != nil {
			rejection = *withdrawal.RejectionReason
		}
		txRef := ""
		if withdrawal.TransactionRef != nil {
			txRef = *withdrawal.TransactionRef
		}
		paidAt := ""
		if withdrawal.PaidAt != nil {
			paidAt = withdrawal.PaidAt.Format("2006-01-02 15:04:05")
		}

		row := []string{
			withdrawal.WithdrawalNo,
			fmt.Sprintf("%d", withdrawal.PartnerID),
			partnerName,
			fmt.Sprintf("%.2f", withdrawal.Amount),
			fmt.Sprintf("%.2f", withdrawal.BalanceAtRequest),
			getWithdrawalStatusName(withdrawal.Status),
			rejection,
			txRef,
			paidAt,
			withdrawal.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", apperrors.ErrExportFailed.WithError(err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	filename := fmt.Sprintf("withdrawals_%s.csv", time.Now().Format("20060102150405"))
	return buf.Bytes(), filename, nil
}

// ExportCODCollections 导出代收货款记录为 CSV
func (s *ExportService) ExportCODCollections(ctx context.Context, filter *repository.CODFilter) ([]byte, string, error) {
	collections, _, err := s.codRepo.List(ctx, filter, 0, 10000)
	if err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(buf)
	headers := []string{
		"订单ID", "卖家ID", "配送员ID", "应收金额", "实收金额", "运费", "平台佣金", "代收手续费", "净结算额", "回款状态", "收款时间",
	}
	if err := writer.Write(headers); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	for _, collection := range collections {
		statusName := "已收款"
		if collection.RemittanceStatus == models.RemittanceStatusRemitted {
			statusName = "已回款"
		}
		row := []string{
			fmt.Sprintf("%d", collection.OrderID),
			fmt.Sprintf("%d", collection.SellerID),
			fmt.Sprintf("%d", collection.PartnerID),
			fmt.Sprintf("%.2f", collection.CodAmount),
			fmt.Sprintf("%.2f", collection.CollectedAmount),
			fmt.Sprintf("%.2f", collection.ShippingCharge),
			fmt.Sprintf("%.2f", collection.PlatformFee),
			fmt.Sprintf("%.2f", collection.CodHandlingFee),
			fmt.Sprintf("%.2f", collection.NetSettlement),
			statusName,
			collection.CollectedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", apperrors.ErrExportFailed.WithError(err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", apperrors.ErrExportFailed.WithError(err)
	}

	filename := fmt.Sprintf("cod_collections_%s.csv", time.Now().Format("20060102150405"))
	return buf.Bytes(), filename, nil
}

func getTierName(tier string) string {
	switch tier {
	case models.SellerTierGold:
		return "黄金"
	case models.SellerTierSilver:
		return "白银"
	case models.SellerTierBronze:
		return "青铜"
	default:
		return tier
	}
}

func getScheduleStatusName(status string) string {
	switch status {
	case models.ScheduleStatusScheduled:
		return "待结算"
	case models.ScheduleStatusProcessing:
		return "结算中"
	case models.ScheduleStatusCompleted:
		return "已完成"
	case models.ScheduleStatusFailed:
		return "失败"
	default:
		return status
	}
}

func getWithdrawalStatusName(status string) string {
	switch status {
	case models.WithdrawalStatusPending:
		return "待审核"
	case models.WithdrawalStatusProcessing:
		return "打款中"
	case models.WithdrawalStatusCompleted:
		return "已完成"
	case models.WithdrawalStatusRejected:
		return "已拒绝"
	default:
		return status
	}
}
