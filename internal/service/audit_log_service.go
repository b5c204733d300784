package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"github.com/mautops/timesheet-gin/internal/utils"
)

// Notifier 迁移事件通知接口
// 由 WebSocket Hub 实现;审计服务发出事件后交由其分发
type Notifier interface {
	PublishEvent(event *model.AuditLogModel)
}

// AuditLogService 审计事件服务
// 每次状态迁移后持久化并对外发出一条结构化事件
type AuditLogService interface {
	RecordTransition(ctx context.Context, table, recordID, action, actorID, oldState, newState string, details interface{}) error
	ListByRecord(table, recordID string) ([]*model.AuditLogModel, error)
}

// auditLogService 审计事件服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
	notifier  Notifier
}

// NewAuditLogService 创建审计事件服务
func NewAuditLogService(auditRepo repository.AuditLogRepository, notifier Notifier) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
		notifier:  notifier,
	}
}

// RecordTransition 记录一次状态迁移事件
func (s *auditLogService) RecordTransition(
	ctx context.Context,
	table, recordID, action, actorID, oldState, newState string,
	details interface{},
) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}

	requestID := utils.RequestIDFromContext(ctx)

	event := &model.AuditLogModel{
		ID:          uuid.New().String(),
		RecordTable: table,
		RecordID:    recordID,
		Action:      action,
		ActorID:     actorID,
		OldState:    oldState,
		NewState:    newState,
		RequestID:   requestID,
		Details:     detailsJSON,
		CreatedAt:   time.Now(),
	}

	if err := s.auditRepo.Save(event); err != nil {
		return err
	}

	// 事件分发尽力而为,失败不影响业务迁移
	if s.notifier != nil {
		s.notifier.PublishEvent(event)
	}
	return nil
}

// ListByRecord 查询某条记录的审计事件
func (s *auditLogService) ListByRecord(table, recordID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByRecord(table, recordID)
}
