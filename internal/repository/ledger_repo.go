// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chenhao2025/logistics-settlement-backend/internal/models"
)

// LedgerRepository 账本仓储
// 账本表只追加：仓储层不提供任何更新或删除方法。
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本仓储
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateSellerEntry 追加卖家账本条目
// (seller_id, sequence) 上的唯一索引保证并发追加互斥，冲突时返回 gorm.ErrDuplicatedKey
func (r *LedgerRepository) CreateSellerEntry(ctx context.Context, entry *models.SellerLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetLastSellerEntry 获取卖家最新账本条目（余额链尾）
func (r *LedgerRepository) GetLastSellerEntry(ctx context.Context, sellerID int64) (*models.SellerLedgerEntry, error) {
	var entry models.SellerLedgerEntry
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("sequence DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LedgerFilter 账本查询过滤条件
type LedgerFilter struct {
	Type      models.EntryType
	OrderID   *int64
	BatchID   *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// ListSellerEntries 获取卖家账本条目列表（按序号倒序）
func (r *LedgerRepository) ListSellerEntries(ctx context.Context, sellerID int64, filter *LedgerFilter, offset, limit int) ([]*models.SellerLedgerEntry, int64, error) {
	var entries []*models.SellerLedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SellerLedgerEntry{}).Where("seller_id = ?", sellerID)
	query = applyLedgerFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sequence DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAllSellerEntries 按序号升序取出卖家全部条目（重算/校验使用）
func (r *LedgerRepository) ListAllSellerEntries(ctx context.Context, sellerID int64) ([]*models.SellerLedgerEntry, error) {
	var entries []*models.SellerLedgerEntry
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

// SumSellerByType 统计卖家某类条目的金额合计
func (r *LedgerRepository) SumSellerByType(ctx context.Context, sellerID int64, entryType models.EntryType) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.SellerLedgerEntry{}).
		Where("seller_id = ? AND type = ?", sellerID, entryType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// CountSellerByBatch 统计卖家账本中某批次下某类型条目的数量
func (r *LedgerRepository) CountSellerByBatch(ctx context.Context, sellerID int64, entryType models.EntryType, batchID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SellerLedgerEntry{}).
		Where("seller_id = ? AND type = ? AND batch_id = ?", sellerID, entryType, batchID).
		Count(&count).Error
	return count, err
}

// SumAllSellersByType 统计全部卖家某类条目的金额合计（财务概览使用）
func (r *LedgerRepository) SumAllSellersByType(ctx context.Context, entryType models.EntryType) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.SellerLedgerEntry{}).
		Where("type = ?", entryType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// CreatePartnerEntry 追加配送员账本条目
func (r *LedgerRepository) CreatePartnerEntry(ctx context.Context, entry *models.PartnerLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetLastPartnerEntry 获取配送员最新账本条目
func (r *LedgerRepository) GetLastPartnerEntry(ctx context.Context, partnerID int64) (*models.PartnerLedgerEntry, error) {
	var entry models.PartnerLedgerEntry
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("sequence DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListPartnerEntries 获取配送员账本条目列表（按序号倒序）
func (r *LedgerRepository) ListPartnerEntries(ctx context.Context, partnerID int64, filter *LedgerFilter, offset, limit int) ([]*models.PartnerLedgerEntry, int64, error) {
	var entries []*models.PartnerLedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PartnerLedgerEntry{}).Where("partner_id = ?", partnerID)
	query = applyLedgerFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("sequence DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAllPartnerEntries 按序号升序取出配送员全部条目
func (r *LedgerRepository) ListAllPartnerEntries(ctx context.Context, partnerID int64) ([]*models.PartnerLedgerEntry, error) {
	var entries []*models.PartnerLedgerEntry
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

func applyLedgerFilter(query *gorm.DB, filter *LedgerFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}
	return query
}
