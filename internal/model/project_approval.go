package model

import (
	"errors"
	"time"
)

// ApprovalStatus 单层子审批状态
// pending 只能迁移到 approved 或 rejected,not_required 等价于已满足
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

// Valid 判断子状态是否合法
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalNotRequired, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Satisfied 判断子状态在聚合推导中是否视为已满足
func (s ApprovalStatus) Satisfied() bool {
	return s == ApprovalApproved || s == ApprovalNotRequired
}

// Decided 判断子状态是否已到达终态(不允许再次迁移)
func (s ApprovalStatus) Decided() bool {
	return s != ApprovalPending
}

// ApprovalTier 审批层级
type ApprovalTier string

const (
	TierLead       ApprovalTier = "lead"
	TierManager    ApprovalTier = "manager"
	TierManagement ApprovalTier = "management"
)

// NonProjectKey 非项目工时条目在审批记录中的占位项目键
const NonProjectKey = ""

// TimesheetProjectApprovalModel 工时单项目审批记录数据模型
// 每个 (timesheet, project) 组合一条,三层子审批相互独立
type TimesheetProjectApprovalModel struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	TimesheetID string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_approvals_timesheet_project"`
	ProjectID   string `gorm:"type:varchar(64);index;uniqueIndex:idx_approvals_timesheet_project"` // 空串表示非项目工时

	LeadID        *string        `gorm:"type:varchar(64);index"`
	LeadStatus    ApprovalStatus `gorm:"type:varchar(32);not null;default:'pending'"`
	LeadReason    string         `gorm:"type:text"`
	LeadDecidedAt *time.Time     ``

	ManagerID        string         `gorm:"type:varchar(64);index"`
	ManagerStatus    ApprovalStatus `gorm:"type:varchar(32);not null;default:'pending'"`
	ManagerReason    string         `gorm:"type:text"`
	ManagerDecidedAt *time.Time     ``

	ManagementStatus    ApprovalStatus `gorm:"type:varchar(32);not null;default:'pending'"`
	ManagementReason    string         `gorm:"type:text"`
	ManagementDecidedAt *time.Time     ``

	EntriesCount int       `gorm:"not null;default:0"`
	TotalHours   float64   `gorm:"type:decimal(6,2);not null;default:0"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (TimesheetProjectApprovalModel) TableName() string {
	return "timesheet_project_approvals"
}

// Validate 验证审批记录模型
func (am *TimesheetProjectApprovalModel) Validate() error {
	if am.ID == "" {
		return errors.New("approval ID is required")
	}
	if am.TimesheetID == "" {
		return errors.New("timesheet ID is required")
	}
	if !am.LeadStatus.Valid() || !am.ManagerStatus.Valid() || !am.ManagementStatus.Valid() {
		return errors.New("approval sub-status is invalid")
	}
	return nil
}

// TierStatus 读取指定层级的子状态
func (am *TimesheetProjectApprovalModel) TierStatus(tier ApprovalTier) ApprovalStatus {
	switch tier {
	case TierLead:
		return am.LeadStatus
	case TierManager:
		return am.ManagerStatus
	default:
		return am.ManagementStatus
	}
}

// SetTierDecision 写入指定层级的审批结论和时间戳
func (am *TimesheetProjectApprovalModel) SetTierDecision(tier ApprovalTier, status ApprovalStatus, reason string, at time.Time) {
	switch tier {
	case TierLead:
		am.LeadStatus = status
		am.LeadReason = reason
		am.LeadDecidedAt = &at
	case TierManager:
		am.ManagerStatus = status
		am.ManagerReason = reason
		am.ManagerDecidedAt = &at
	case TierManagement:
		am.ManagementStatus = status
		am.ManagementReason = reason
		am.ManagementDecidedAt = &at
	}
}

// ReviewSatisfied 判断 Lead/Manager 两层是否全部满足
func (am *TimesheetProjectApprovalModel) ReviewSatisfied() bool {
	return am.LeadStatus.Satisfied() && am.ManagerStatus.Satisfied()
}
