package model

import (
	"errors"
	"time"
)

// BillingRateModel 计费费率数据模型
// 按 (user, project, effective_from) 维护小时费率
// project_id 为空表示用户默认费率,项目专属费率优先生效
type BillingRateModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)"`
	UserID        string    `gorm:"type:varchar(64);not null;index:idx_rates_user_project"`
	ProjectID     *string   `gorm:"type:varchar(64);index:idx_rates_user_project"`
	HourlyRate    float64   `gorm:"type:decimal(10,2);not null"`
	Currency      string    `gorm:"type:varchar(8);not null;default:'USD'"`
	EffectiveFrom time.Time `gorm:"type:date;not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName 指定表名
func (BillingRateModel) TableName() string {
	return "billing_rates"
}

// Validate 验证费率模型
func (rm *BillingRateModel) Validate() error {
	if rm.ID == "" {
		return errors.New("rate ID is required")
	}
	if rm.UserID == "" {
		return errors.New("user ID is required")
	}
	if rm.HourlyRate < 0 {
		return errors.New("hourly rate must not be negative")
	}
	if rm.EffectiveFrom.IsZero() {
		return errors.New("effective from date is required")
	}
	return nil
}
