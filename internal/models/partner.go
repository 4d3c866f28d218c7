package models

import (
	"time"
)

// PartnerStatus 配送员状态
const (
	PartnerStatusActive   = "active"   // 正常
	PartnerStatusHold     = "hold"     // 冻结（暂停提现）
	PartnerStatusDisabled = "disabled" // 禁用
)

// Partner 配送员模型
type Partner struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Phone     *string   `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	RatePerKm *float64  `gorm:"type:decimal(8,2)" json:"rate_per_km,omitempty"`
	Status    string    `gorm:"type:varchar(15);not null;default:'active';index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Partner) TableName() string {
	return "partners"
}
