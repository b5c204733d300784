package repository

import (
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计事件仓储接口
type AuditLogRepository interface {
	Save(log *model.AuditLogModel) error
	FindByRecord(recordTable string, recordID string) ([]*model.AuditLogModel, error)
	FindByActor(actorID string) ([]*model.AuditLogModel, error)
}

// auditLogRepository 审计事件仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计事件仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 保存审计事件
func (r *auditLogRepository) Save(log *model.AuditLogModel) error {
	return r.db.Save(log).Error
}

// FindByRecord 根据记录查找审计事件
func (r *auditLogRepository) FindByRecord(recordTable string, recordID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.Where("record_table = ? AND record_id = ?", recordTable, recordID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// FindByActor 根据操作人查找审计事件
func (r *auditLogRepository) FindByActor(actorID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
