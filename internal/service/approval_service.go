package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/metrics"
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

const (
	// minDailyHours / maxDailyHours 提交前置校验:每个工作日的日合计区间
	minDailyHours = 8.0
	maxDailyHours = 10.0

	// maxVersionRetries 乐观锁冲突时聚合状态重算的最大重试次数
	maxVersionRetries = 3
)

// ApprovalService 审批引擎服务
// 唯一允许修改工时单聚合状态的入口,聚合状态由
// model.DeriveTimesheetStatus 从审批记录确定性推导
type ApprovalService interface {
	Submit(ctx context.Context, timesheetID string) (*model.TimesheetModel, error)
	Decide(ctx context.Context, timesheetID, projectID string, tier model.ApprovalTier, req *DecisionRequest) (*model.TimesheetModel, error)
}

// DecisionRequest 审批结论请求
// @Description 单层审批结论的请求参数
type DecisionRequest struct {
	Approve bool   `json:"approve" example:"true"`              // true 批准,false 驳回
	Reason  string `json:"reason" example:"hours do not match"` // 结论说明,驳回时必填
}

// approvalService 审批引擎服务实现
type approvalService struct {
	db          *gorm.DB
	auditLogSvc AuditLogService
}

// NewApprovalService 创建审批引擎服务
func NewApprovalService(db *gorm.DB, auditLogSvc AuditLogService) ApprovalService {
	return &approvalService{
		db:          db,
		auditLogSvc: auditLogSvc,
	}
}

// Submit 提交工时单进入审批流
// 按项目分组生成审批记录;重新提交会丢弃上一轮全部审批结论。
// 子审批初始化规则:
//   - 无 Lead 的项目 Lead 层为 not_required
//   - 员工本人是项目主管经理时 Manager 层为 not_required(管理层仍需审批)
//   - 非项目工时仅需管理层审批
func (s *approvalService) Submit(ctx context.Context, timesheetID string) (*model.TimesheetModel, error) {
	ts, err := s.loadTimesheet(timesheetID)
	if err != nil {
		return nil, err
	}
	if !ts.Status.Editable() {
		return nil, NewInvalidStateTransition(string(ts.Status), "submit",
			"only draft or rejected timesheets can be submitted")
	}

	var entries []*model.TimeEntryModel
	if err := s.db.Where("timesheet_id = ?", ts.ID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, NewValidationError("entries", "timesheet has no entries to submit")
	}
	if err := checkDailyTotals(ts, entries); err != nil {
		return nil, err
	}

	// 1. 按项目分组统计
	type group struct {
		entriesCount int
		totalHours   float64
	}
	groups := make(map[string]*group)
	for _, e := range entries {
		key := e.ProjectKey()
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.entriesCount++
		g.totalHours += e.Hours
	}

	// 2. 解析涉及的项目
	projectIDs := make([]string, 0, len(groups))
	for key := range groups {
		if key != model.NonProjectKey {
			projectIDs = append(projectIDs, key)
		}
	}
	projects := make(map[string]*model.ProjectModel, len(projectIDs))
	if len(projectIDs) > 0 {
		var list []*model.ProjectModel
		if err := s.db.Where("id IN ?", projectIDs).Find(&list).Error; err != nil {
			return nil, fmt.Errorf("failed to load projects: %w", err)
		}
		for _, p := range list {
			projects[p.ID] = p
		}
		for _, id := range projectIDs {
			if _, ok := projects[id]; !ok {
				return nil, NewValidationError("project_id", fmt.Sprintf("project %s does not exist", id))
			}
		}
	}

	// 3. 生成新一轮审批记录
	now := time.Now()
	approvals := make([]*model.TimesheetProjectApprovalModel, 0, len(groups))
	for key, g := range groups {
		approval := &model.TimesheetProjectApprovalModel{
			ID:               uuid.New().String(),
			TimesheetID:      ts.ID,
			ProjectID:        key,
			LeadStatus:       model.ApprovalPending,
			ManagerStatus:    model.ApprovalPending,
			ManagementStatus: model.ApprovalPending,
			EntriesCount:     g.entriesCount,
			TotalHours:       g.totalHours,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if key == model.NonProjectKey {
			// 非项目工时没有 Lead/Manager 归属,直接进管理层
			approval.LeadStatus = model.ApprovalNotRequired
			approval.ManagerStatus = model.ApprovalNotRequired
		} else {
			project := projects[key]
			if project.HasLead() {
				approval.LeadID = project.LeadID
			} else {
				approval.LeadStatus = model.ApprovalNotRequired
			}
			approval.ManagerID = project.PrimaryManagerID
			if project.PrimaryManagerID == ts.UserID {
				// 员工本人即主管经理,跳过 Manager 层,由管理层兜底审批
				approval.ManagerStatus = model.ApprovalNotRequired
			}
		}
		approvals = append(approvals, approval)
	}

	// 全部记录在创建时就已满足 Lead/Manager 两层时(纯非项目工时、
	// 无 Lead 的自管项目)直接进入管理层待审,否则停在 submitted
	newStatus := model.DeriveTimesheetStatus(approvals)

	oldStatus := ts.Status
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timesheet_id = ?", ts.ID).
			Delete(&model.TimesheetProjectApprovalModel{}).Error; err != nil {
			return fmt.Errorf("failed to reset previous approvals: %w", err)
		}
		for _, approval := range approvals {
			if err := tx.Create(approval).Error; err != nil {
				return fmt.Errorf("failed to create approval record: %w", err)
			}
		}
		return s.updateTimesheetVersioned(tx, ts, func(t *model.TimesheetModel) {
			t.Status = newStatus
			t.SubmittedAt = &now
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTimesheetSubmitted()
	s.recordTransition(ctx, ts, "submit", string(oldStatus), string(ts.Status),
		map[string]interface{}{"projects": len(approvals), "total_hours": ts.TotalHours})
	return ts, nil
}

// Decide 写入一层审批结论并重算聚合状态
// 乐观锁冲突时在限定次数内整体重试,确保并发审批不会丢失迁移
func (s *approvalService) Decide(ctx context.Context, timesheetID, projectID string, tier model.ApprovalTier, req *DecisionRequest) (*model.TimesheetModel, error) {
	if !req.Approve && req.Reason == "" {
		return nil, NewValidationError("reason", "a reason is required when rejecting")
	}

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, NewValidationError("actor", "decision requires an authenticated actor")
	}

	status := model.ApprovalApproved
	decision := "approve"
	if !req.Approve {
		status = model.ApprovalRejected
		decision = "reject"
	}

	var conflict error
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		ts, err := s.loadTimesheet(timesheetID)
		if err != nil {
			return nil, err
		}
		oldStatus := ts.Status

		err = s.db.Transaction(func(tx *gorm.DB) error {
			var approval model.TimesheetProjectApprovalModel
			if err := tx.Where("timesheet_id = ? AND project_id = ?", timesheetID, projectID).
				First(&approval).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NewNotFound("approval record", fmt.Sprintf("%s/%s", timesheetID, projectID))
				}
				return fmt.Errorf("failed to load approval record: %w", err)
			}
			if err := s.checkDecision(ts, &approval, tier, actor); err != nil {
				return err
			}

			now := time.Now()
			approval.SetTierDecision(tier, status, req.Reason, now)
			approval.UpdatedAt = now
			if err := tx.Save(&approval).Error; err != nil {
				return fmt.Errorf("failed to save approval record: %w", err)
			}

			var all []*model.TimesheetProjectApprovalModel
			if err := tx.Where("timesheet_id = ?", timesheetID).Find(&all).Error; err != nil {
				return fmt.Errorf("failed to load approval records: %w", err)
			}
			newStatus := model.DeriveTimesheetStatus(all)

			// 冻结即完全批准:全部审批记录的管理层子状态强制为 approved,
			// 覆盖 not_required 等历史值,与冻结在同一事务内完成
			if newStatus == model.TimesheetApproved {
				for _, record := range all {
					if record.ManagementStatus == model.ApprovalApproved && record.ManagementDecidedAt != nil {
						continue
					}
					record.ManagementStatus = model.ApprovalApproved
					if record.ManagementDecidedAt == nil {
						record.ManagementDecidedAt = &now
					}
					record.UpdatedAt = now
					if err := tx.Save(record).Error; err != nil {
						return fmt.Errorf("failed to force management approval: %w", err)
					}
				}
			}

			return s.updateTimesheetVersioned(tx, ts, func(t *model.TimesheetModel) {
				t.Status = newStatus
				if newStatus == model.TimesheetApproved && !t.IsFrozen {
					t.IsFrozen = true
					t.FrozenAt = &now
				}
			})
		})
		if errors.Is(err, ErrVersionConflict) {
			conflict = err
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.RecordApprovalDecision(string(tier), decision)
		s.recordTransition(ctx, ts, fmt.Sprintf("%s_%s", tier, decision), string(oldStatus), string(ts.Status),
			map[string]interface{}{"project_id": projectID, "reason": req.Reason})
		return ts, nil
	}
	return nil, conflict
}

// checkDecision 校验一次审批结论的角色、归属和时序约束
func (s *approvalService) checkDecision(ts *model.TimesheetModel, approval *model.TimesheetProjectApprovalModel, tier model.ApprovalTier, actor auth.Actor) error {
	if ts.IsFrozen || ts.Status == model.TimesheetApproved {
		return NewInvalidStateTransition(string(ts.Status), "decide",
			"approved timesheets are frozen and accept no further decisions")
	}

	switch tier {
	case model.TierLead, model.TierManager:
		if ts.Status != model.TimesheetSubmitted {
			return NewInvalidStateTransition(string(ts.Status), "decide",
				"lead and manager decisions are only accepted while the timesheet is submitted")
		}
	case model.TierManagement:
		if ts.Status != model.TimesheetManagementPending {
			return NewInvalidStateTransition(string(ts.Status), "decide",
				"management decisions are only accepted after lead and manager review completes")
		}
		if !approval.ReviewSatisfied() {
			return NewInvalidStateTransition(string(ts.Status), "decide",
				"lead and manager review is not complete for this project")
		}
	default:
		return NewValidationError("tier", fmt.Sprintf("unknown approval tier %q", tier))
	}

	current := approval.TierStatus(tier)
	if current == model.ApprovalNotRequired {
		return NewInvalidStateTransition(string(current), "decide",
			"this tier is not required for the project")
	}
	if current.Decided() {
		return NewInvalidStateTransition(string(current), "decide",
			"this tier has already been decided")
	}

	if actor.Role.IsAdmin() {
		return nil
	}
	switch tier {
	case model.TierLead:
		if !actor.Role.CanDecideLead() {
			return NewValidationError("actor", "role cannot decide lead approvals")
		}
		if approval.LeadID != nil && *approval.LeadID != actor.ID {
			return NewValidationError("actor", "only the assigned project lead can decide this approval")
		}
	case model.TierManager:
		if !actor.Role.CanDecideManager() {
			return NewValidationError("actor", "role cannot decide manager approvals")
		}
		if approval.ManagerID != "" && approval.ManagerID != actor.ID {
			return NewValidationError("actor", "only the project's primary manager can decide this approval")
		}
	case model.TierManagement:
		if !actor.Role.CanDecideManagement() {
			return NewValidationError("actor", "role cannot decide management approvals")
		}
	}
	return nil
}

// updateTimesheetVersioned 乐观锁条件更新工时单
// 命中零行说明版本已被并发修改,返回 ErrVersionConflict 由调用方重试
func (s *approvalService) updateTimesheetVersioned(tx *gorm.DB, ts *model.TimesheetModel, mutate func(*model.TimesheetModel)) error {
	oldVersion := ts.Version
	mutate(ts)
	ts.Version = oldVersion + 1
	ts.UpdatedAt = time.Now()

	result := tx.Model(&model.TimesheetModel{}).
		Where("id = ? AND version = ?", ts.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":       ts.Status,
			"is_frozen":    ts.IsFrozen,
			"submitted_at": ts.SubmittedAt,
			"frozen_at":    ts.FrozenAt,
			"version":      ts.Version,
			"updated_at":   ts.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update timesheet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// loadTimesheet 加载工时单
func (s *approvalService) loadTimesheet(id string) (*model.TimesheetModel, error) {
	var ts model.TimesheetModel
	if err := s.db.Where("id = ?", id).First(&ts).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("timesheet", id)
		}
		return nil, fmt.Errorf("failed to load timesheet: %w", err)
	}
	return &ts, nil
}

// checkDailyTotals 提交前置校验:周一到周五每天都有记录且日合计落在允许区间
func checkDailyTotals(ts *model.TimesheetModel, entries []*model.TimeEntryModel) error {
	daily := make(map[string]float64)
	for _, e := range entries {
		daily[e.EntryDate.Format("2006-01-02")] += e.Hours
	}
	for offset := 0; offset < 5; offset++ {
		day := ts.WeekStartDate.AddDate(0, 0, offset)
		key := day.Format("2006-01-02")
		total, ok := daily[key]
		if !ok {
			return NewValidationError("entries",
				fmt.Sprintf("no entries recorded for %s; every weekday needs entries before submission", key))
		}
		if total < minDailyHours || total > maxDailyHours {
			return NewValidationError("entries",
				fmt.Sprintf("daily total %.2f hours on %s is outside the allowed range %.0f..%.0f",
					total, key, minDailyHours, maxDailyHours))
		}
	}
	return nil
}

// recordTransition 记录迁移审计事件(尽力而为,不影响主流程)
func (s *approvalService) recordTransition(ctx context.Context, ts *model.TimesheetModel, action, oldState, newState string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	actorID := actorIDFromContext(ctx)
	if actorID == "" {
		actorID = "system"
	}
	_ = s.auditLogSvc.RecordTransition(ctx, ts.TableName(), ts.ID, action, actorID, oldState, newState, details)
}
