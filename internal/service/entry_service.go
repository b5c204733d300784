package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// EntryService 工时条目存储服务
// 负责工时单的建立与条目的增删校验;自身没有状态机,
// 所有审批迁移由 ApprovalService 执行
type EntryService interface {
	GetOrCreateTimesheet(ctx context.Context, userID string, weekStart time.Time) (*model.TimesheetModel, error)
	AddEntries(ctx context.Context, timesheetID string, req *AddEntriesRequest) ([]*model.TimeEntryModel, error)
	RemoveEntry(ctx context.Context, entryID string) error
}

// EntryInput 单条工时条目输入
// @Description 工时条目的请求参数
type EntryInput struct {
	ProjectID   *string `json:"project_id" example:"prj-001"`                      // 项目 ID,为空表示非项目工时
	TaskID      string  `json:"task_id" example:"task-001"`                        // 任务 ID
	Date        string  `json:"date" example:"2024-09-30" binding:"required"`      // 条目日期(YYYY-MM-DD)
	Hours       float64 `json:"hours" example:"8" binding:"required"`              // 工时数
	IsBillable  bool    `json:"is_billable" example:"true"`                        // 是否计费
	Description string  `json:"description" example:"implemented approval engine"` // 工作描述
}

// AddEntriesRequest 批量添加工时条目请求
// @Description 批量添加工时条目的请求参数
type AddEntriesRequest struct {
	Entries []EntryInput `json:"entries" binding:"required"` // 条目列表
}

// entryService 工时条目存储服务实现
type entryService struct {
	db          *gorm.DB
	auditLogSvc AuditLogService
}

// NewEntryService 创建工时条目存储服务
func NewEntryService(db *gorm.DB, auditLogSvc AuditLogService) EntryService {
	return &entryService{
		db:          db,
		auditLogSvc: auditLogSvc,
	}
}

// GetOrCreateTimesheet 获取或创建用户某周的工时单
// 工时单在员工首次记录该周工时时创建,每用户每周唯一
func (s *entryService) GetOrCreateTimesheet(ctx context.Context, userID string, weekStart time.Time) (*model.TimesheetModel, error) {
	if userID == "" {
		return nil, NewValidationError("user_id", "user ID is required")
	}
	weekStart = truncateToDay(weekStart)
	if weekStart.Weekday() != time.Monday {
		return nil, NewValidationError("week_start_date", "week start date must be a Monday")
	}

	var user model.UserModel
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("user", userID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var ts model.TimesheetModel
	err := s.db.Where("user_id = ? AND week_start_date = ?", userID, weekStart).First(&ts).Error
	if err == nil {
		return &ts, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load timesheet: %w", err)
	}

	now := time.Now()
	ts = model.TimesheetModel{
		ID:            uuid.New().String(),
		UserID:        userID,
		WeekStartDate: weekStart,
		WeekEndDate:   weekStart.AddDate(0, 0, 6),
		Status:        model.TimesheetDraft,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ts.Validate(); err != nil {
		return nil, NewValidationError("timesheet", err.Error())
	}
	if err := s.db.Create(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}
	return &ts, nil
}

// AddEntries 批量添加工时条目
// 全部条目校验通过后才写入;任一条目非法则整批拒绝且不产生写入
func (s *entryService) AddEntries(ctx context.Context, timesheetID string, req *AddEntriesRequest) ([]*model.TimeEntryModel, error) {
	if len(req.Entries) == 0 {
		return nil, NewValidationError("entries", "at least one entry is required")
	}

	var ts model.TimesheetModel
	if err := s.db.Where("id = ?", timesheetID).First(&ts).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("timesheet", timesheetID)
		}
		return nil, fmt.Errorf("failed to load timesheet: %w", err)
	}
	if !ts.Status.Editable() {
		return nil, NewInvalidStateTransition(string(ts.Status), "add entries",
			"entries may only be added while the timesheet is draft or rejected")
	}

	// 已有条目的 (project, task, date) 组合,用于重复检测
	var existing []*model.TimeEntryModel
	if err := s.db.Where("timesheet_id = ?", timesheetID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing entries: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[entryDupKey(e.ProjectKey(), e.TaskID, e.EntryDate)] = true
	}

	now := time.Now()
	today := truncateToDay(now)

	entries := make([]*model.TimeEntryModel, 0, len(req.Entries))
	for i, input := range req.Entries {
		date, err := time.Parse("2006-01-02", input.Date)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("entries[%d].date", i), "date must be in YYYY-MM-DD format")
		}
		if input.Hours <= 0 || input.Hours > 24 {
			return nil, NewValidationError(fmt.Sprintf("entries[%d].hours", i), "hours must be greater than 0 and at most 24")
		}
		if !ts.ContainsDate(date) {
			return nil, NewValidationError(fmt.Sprintf("entries[%d].date", i),
				fmt.Sprintf("date %s falls outside timesheet week %s..%s",
					input.Date, ts.WeekStartDate.Format("2006-01-02"), ts.WeekEndDate.Format("2006-01-02")))
		}
		if date.After(today) {
			return nil, NewValidationError(fmt.Sprintf("entries[%d].date", i), "date must not be in the future")
		}

		projectKey := model.NonProjectKey
		if input.ProjectID != nil && *input.ProjectID != "" {
			projectKey = *input.ProjectID
		}
		dupKey := entryDupKey(projectKey, input.TaskID, date)
		if seen[dupKey] {
			return nil, NewValidationError(fmt.Sprintf("entries[%d]", i),
				fmt.Sprintf("duplicate entry for project %q task %q on %s", projectKey, input.TaskID, input.Date))
		}
		seen[dupKey] = true

		projectID := input.ProjectID
		if projectID != nil && *projectID == "" {
			projectID = nil
		}
		entries = append(entries, &model.TimeEntryModel{
			ID:          uuid.New().String(),
			TimesheetID: timesheetID,
			ProjectID:   projectID,
			TaskID:      input.TaskID,
			EntryDate:   date,
			Hours:       input.Hours,
			IsBillable:  input.IsBillable,
			Description: input.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to create entry: %w", err)
			}
		}
		return recomputeTotalHours(tx, &ts)
	})
	if err != nil {
		return nil, err
	}

	if s.auditLogSvc != nil {
		actorID := actorIDFromContext(ctx)
		if actorID != "" {
			_ = s.auditLogSvc.RecordTransition(ctx, ts.TableName(), ts.ID, "add_entries", actorID,
				string(ts.Status), string(ts.Status),
				map[string]interface{}{"entries_added": len(entries), "total_hours": ts.TotalHours})
		}
	}

	return entries, nil
}

// RemoveEntry 软删除工时条目(保留审计历史)
func (s *entryService) RemoveEntry(ctx context.Context, entryID string) error {
	var entry model.TimeEntryModel
	if err := s.db.Where("id = ?", entryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFound("time entry", entryID)
		}
		return fmt.Errorf("failed to load entry: %w", err)
	}

	var ts model.TimesheetModel
	if err := s.db.Where("id = ?", entry.TimesheetID).First(&ts).Error; err != nil {
		return fmt.Errorf("failed to load timesheet: %w", err)
	}
	if !ts.Status.Editable() {
		return NewInvalidStateTransition(string(ts.Status), "remove entry",
			"entries may only be removed while the timesheet is draft or rejected")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entry).Error; err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return recomputeTotalHours(tx, &ts)
	})
	if err != nil {
		return err
	}

	if s.auditLogSvc != nil {
		actorID := actorIDFromContext(ctx)
		if actorID != "" {
			_ = s.auditLogSvc.RecordTransition(ctx, entry.TableName(), entry.ID, "remove_entry", actorID,
				"active", "deleted", nil)
		}
	}
	return nil
}

// recomputeTotalHours 重算工时单总工时并写回
func recomputeTotalHours(tx *gorm.DB, ts *model.TimesheetModel) error {
	var total float64
	if err := tx.Model(&model.TimeEntryModel{}).
		Where("timesheet_id = ?", ts.ID).
		Select("COALESCE(SUM(hours), 0)").
		Scan(&total).Error; err != nil {
		return fmt.Errorf("failed to sum hours: %w", err)
	}
	ts.TotalHours = total
	ts.UpdatedAt = time.Now()
	return tx.Model(&model.TimesheetModel{}).
		Where("id = ?", ts.ID).
		Updates(map[string]interface{}{"total_hours": total, "updated_at": ts.UpdatedAt}).Error
}

// entryDupKey 条目重复检测键 (project, task, date)
func entryDupKey(projectKey, taskID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", projectKey, taskID, date.Format("2006-01-02"))
}

// truncateToDay 截断到日期(UTC)
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// actorIDFromContext 从 context 中获取操作人 ID(由认证中间件设置)
func actorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		return actor.ID
	}
	return ""
}
