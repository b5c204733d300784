package model

import (
	"errors"
	"time"
)

// TimesheetStatus 周报工时单聚合状态
type TimesheetStatus string

const (
	TimesheetDraft             TimesheetStatus = "draft"
	TimesheetSubmitted         TimesheetStatus = "submitted"
	TimesheetManagementPending TimesheetStatus = "management_pending"
	TimesheetApproved          TimesheetStatus = "approved"
	TimesheetRejected          TimesheetStatus = "rejected"
)

// Valid 判断聚合状态是否合法
func (s TimesheetStatus) Valid() bool {
	switch s {
	case TimesheetDraft, TimesheetSubmitted, TimesheetManagementPending,
		TimesheetApproved, TimesheetRejected:
		return true
	}
	return false
}

// Editable 判断工时单在该状态下是否允许编辑条目和重新提交
func (s TimesheetStatus) Editable() bool {
	return s == TimesheetDraft || s == TimesheetRejected
}

// Terminal 判断是否为不可变终态(approved/frozen)
func (s TimesheetStatus) Terminal() bool {
	return s == TimesheetApproved
}

// TimesheetModel 周报工时单数据模型
// 每个用户每周一张,week_start_date 必须为周一
// 聚合状态只能由状态机从审批记录推导写入,禁止外部直接修改
type TimesheetModel struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)"`
	UserID        string          `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_timesheets_user_week"`
	WeekStartDate time.Time       `gorm:"type:date;not null;uniqueIndex:idx_timesheets_user_week"`
	WeekEndDate   time.Time       `gorm:"type:date;not null"`
	Status        TimesheetStatus `gorm:"type:varchar(32);not null;index;default:'draft'"`
	TotalHours    float64         `gorm:"type:decimal(6,2);not null;default:0"`
	IsFrozen      bool            `gorm:"not null;default:false"`
	SubmittedAt   *time.Time      `gorm:"index"`
	FrozenAt      *time.Time      ``
	Version       int             `gorm:"not null;default:1"` // 乐观锁版本号,聚合状态重算的临界区依赖它
	CreatedAt     time.Time       `gorm:"not null;index"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName 指定表名
func (TimesheetModel) TableName() string {
	return "timesheets"
}

// Validate 验证工时单模型
func (tm *TimesheetModel) Validate() error {
	if tm.ID == "" {
		return errors.New("timesheet ID is required")
	}
	if tm.UserID == "" {
		return errors.New("user ID is required")
	}
	if tm.WeekStartDate.IsZero() {
		return errors.New("week start date is required")
	}
	if tm.WeekStartDate.Weekday() != time.Monday {
		return errors.New("week start date must be a Monday")
	}
	if !tm.WeekEndDate.Equal(tm.WeekStartDate.AddDate(0, 0, 6)) {
		return errors.New("week end date must be six days after week start date")
	}
	if !tm.Status.Valid() {
		return errors.New("timesheet status is invalid")
	}
	return nil
}

// ContainsDate 判断日期是否落在工时单所属周内
func (tm *TimesheetModel) ContainsDate(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(tm.WeekStartDate.Year(), tm.WeekStartDate.Month(), tm.WeekStartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	return !day.Before(start) && !day.After(end)
}

// DeriveTimesheetStatus 从审批记录推导已提交工时单的聚合状态
// 这是状态机的唯一推导来源,审批引擎和修复程序共用同一判定:
//   - 任一项目的 Lead/Manager 子状态为 rejected => rejected
//   - Lead/Manager 全部满足后,任一 Management 子状态为 rejected => rejected
//   - Lead/Manager 全部满足且 Management 全部满足 => approved
//   - Lead/Manager 全部满足但 Management 尚有 pending => management_pending
//   - 其余情况保持 submitted
func DeriveTimesheetStatus(approvals []*TimesheetProjectApprovalModel) TimesheetStatus {
	if len(approvals) == 0 {
		return TimesheetSubmitted
	}

	reviewComplete := true
	for _, a := range approvals {
		if a.LeadStatus == ApprovalRejected || a.ManagerStatus == ApprovalRejected {
			return TimesheetRejected
		}
		if !a.LeadStatus.Satisfied() || !a.ManagerStatus.Satisfied() {
			reviewComplete = false
		}
	}
	if !reviewComplete {
		return TimesheetSubmitted
	}

	managementComplete := true
	for _, a := range approvals {
		if a.ManagementStatus == ApprovalRejected {
			return TimesheetRejected
		}
		if !a.ManagementStatus.Satisfied() {
			managementComplete = false
		}
	}
	if managementComplete {
		return TimesheetApproved
	}
	return TimesheetManagementPending
}
