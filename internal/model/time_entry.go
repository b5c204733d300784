package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// TimeEntryModel 工时条目数据模型
// 删除采用软删除(deleted_at),保留审计历史;孤儿清理才会物理删除
type TimeEntryModel struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)"`
	TimesheetID string         `gorm:"type:varchar(64);not null;index"`
	ProjectID   *string        `gorm:"type:varchar(64);index"` // 可为空,表示非项目工时
	TaskID      string         `gorm:"type:varchar(64);index"`
	EntryDate   time.Time      `gorm:"type:date;not null;index"`
	Hours       float64        `gorm:"type:decimal(4,2);not null"`
	IsBillable  bool           `gorm:"not null;default:false"`
	Description string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名
func (TimeEntryModel) TableName() string {
	return "time_entries"
}

// Validate 验证工时条目模型
func (em *TimeEntryModel) Validate() error {
	if em.ID == "" {
		return errors.New("entry ID is required")
	}
	if em.TimesheetID == "" {
		return errors.New("timesheet ID is required")
	}
	if em.EntryDate.IsZero() {
		return errors.New("entry date is required")
	}
	if em.Hours <= 0 || em.Hours > 24 {
		return errors.New("entry hours must be greater than 0 and at most 24")
	}
	return nil
}

// ProjectKey 返回条目归属的审批分组键(非项目条目归入占位分组)
func (em *TimeEntryModel) ProjectKey() string {
	if em.ProjectID == nil {
		return NonProjectKey
	}
	return *em.ProjectID
}
