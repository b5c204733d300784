package model

import (
	"errors"
	"time"
)

// AuditLogModel 审计事件数据模型
// 每次状态迁移后发出一条 {table, record_id, action, actor_id, old_state, new_state}
// 事件,供外部审计与通知分发消费;本服务只保证发出,不保证投递
type AuditLogModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	RecordTable string    `gorm:"column:record_table;type:varchar(64);not null;index"` // timesheets/time_entries/timesheet_project_approvals
	RecordID    string    `gorm:"type:varchar(64);not null;index"`
	Action      string    `gorm:"type:varchar(64);not null;index"` // submit/lead_decide/manager_decide/management_decide/add_entries/remove_entry/repair
	ActorID     string    `gorm:"type:varchar(64);not null;index"`
	OldState    string    `gorm:"type:varchar(32)"`
	NewState    string    `gorm:"type:varchar(32)"`
	RequestID   string    `gorm:"type:varchar(64);index"`
	Details     []byte    `gorm:"type:jsonb"` // 补充细节(JSON)
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 验证审计事件模型
func (alm *AuditLogModel) Validate() error {
	if alm.ID == "" {
		return errors.New("audit log ID is required")
	}
	if alm.RecordTable == "" {
		return errors.New("record table is required")
	}
	if alm.RecordID == "" {
		return errors.New("record ID is required")
	}
	if alm.Action == "" {
		return errors.New("action is required")
	}
	if alm.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}
