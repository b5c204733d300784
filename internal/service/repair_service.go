package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/metrics"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// repairChunkSize 修复程序分批扫描的批大小,限制内存和锁持有时间
const repairChunkSize = 200

// RepairResult 单个修复程序的执行结果
// @Description 修复程序的检查与修正计数
type RepairResult struct {
	Procedure string `json:"procedure"` // 程序名称
	Inspected int    `json:"inspected"` // 检查记录数
	Fixed     int    `json:"fixed"`     // 修正记录数
}

// RepairService 维护修复服务
// 所有程序幂等:已经一致的记录不会被二次修正,
// 判定谓词与审批引擎使用的完全相同
type RepairService interface {
	OrphanCleanup(ctx context.Context) (*RepairResult, error)
	BackfillMissingApprovals(ctx context.Context) (*RepairResult, error)
	CorrectManagerSelfApproval(ctx context.Context) (*RepairResult, error)
	EnforceFreezeConsistency(ctx context.Context) (*RepairResult, error)
	RunAll(ctx context.Context) ([]*RepairResult, error)
}

// repairService 维护修复服务实现
type repairService struct {
	db          *gorm.DB
	auditLogSvc AuditLogService
	logger      *logrus.Logger
}

// NewRepairService 创建维护修复服务
func NewRepairService(db *gorm.DB, auditLogSvc AuditLogService, logger *logrus.Logger) RepairService {
	if logger == nil {
		logger = logrus.New()
	}
	return &repairService{
		db:          db,
		auditLogSvc: auditLogSvc,
		logger:      logger,
	}
}

// RunAll 按固定顺序执行全部修复程序
// 孤儿清理最先运行,它是其余程序和计费聚合的前置条件
func (s *repairService) RunAll(ctx context.Context) ([]*RepairResult, error) {
	procedures := []func(context.Context) (*RepairResult, error){
		s.OrphanCleanup,
		s.BackfillMissingApprovals,
		s.CorrectManagerSelfApproval,
		s.EnforceFreezeConsistency,
	}
	results := make([]*RepairResult, 0, len(procedures))
	for _, procedure := range procedures {
		result, err := procedure(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// OrphanCleanup 孤儿清理
// 删除属主用户已不存在的工时单及其全部条目和审批记录
func (s *repairService) OrphanCleanup(ctx context.Context) (*RepairResult, error) {
	result := &RepairResult{Procedure: "orphan_cleanup"}

	var batch []*model.TimesheetModel
	err := s.db.Model(&model.TimesheetModel{}).
		FindInBatches(&batch, repairChunkSize, func(tx *gorm.DB, _ int) error {
			userIDs := make([]string, 0, len(batch))
			seen := make(map[string]bool)
			for _, ts := range batch {
				if !seen[ts.UserID] {
					seen[ts.UserID] = true
					userIDs = append(userIDs, ts.UserID)
				}
			}
			var existing []string
			if err := s.db.Model(&model.UserModel{}).
				Where("id IN ?", userIDs).
				Pluck("id", &existing).Error; err != nil {
				return fmt.Errorf("failed to resolve users: %w", err)
			}
			alive := make(map[string]bool, len(existing))
			for _, id := range existing {
				alive[id] = true
			}

			for _, ts := range batch {
				result.Inspected++
				if alive[ts.UserID] {
					continue
				}
				s.reportViolation("orphan_cleanup", "timesheet", ts.ID,
					fmt.Sprintf("timesheet owner %s no longer exists", ts.UserID))
				if err := s.deleteOrphan(ctx, ts); err != nil {
					return err
				}
				result.Fixed++
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	metrics.RecordRepairFixes(result.Procedure, result.Fixed)
	return result, nil
}

// deleteOrphan 级联删除孤儿工时单(条目物理删除,不留软删除残留)
func (s *repairService) deleteOrphan(ctx context.Context, ts *model.TimesheetModel) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("timesheet_id = ?", ts.ID).
			Delete(&model.TimeEntryModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete orphan entries: %w", err)
		}
		if err := tx.Where("timesheet_id = ?", ts.ID).
			Delete(&model.TimesheetProjectApprovalModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete orphan approvals: %w", err)
		}
		if err := tx.Where("id = ?", ts.ID).
			Delete(&model.TimesheetModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete orphan timesheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordFix(ctx, ts.TableName(), ts.ID, "orphan_cleanup", string(ts.Status), "deleted")
	return nil
}

// BackfillMissingApprovals 补建缺失审批记录
// 已提交工时单的每个条目项目都必须有一条审批记录;
// 补建规则与提交时完全一致,补建后重算聚合状态
func (s *repairService) BackfillMissingApprovals(ctx context.Context) (*RepairResult, error) {
	result := &RepairResult{Procedure: "missing_approval_backfill"}

	var batch []*model.TimesheetModel
	err := s.db.Model(&model.TimesheetModel{}).
		Where("status = ?", model.TimesheetSubmitted).
		FindInBatches(&batch, repairChunkSize, func(tx *gorm.DB, _ int) error {
			for _, ts := range batch {
				result.Inspected++
				fixed, err := s.backfillTimesheet(ctx, ts)
				if err != nil {
					return err
				}
				if fixed {
					result.Fixed++
				}
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	metrics.RecordRepairFixes(result.Procedure, result.Fixed)
	return result, nil
}

// backfillTimesheet 为单个工时单补建缺失的审批记录
func (s *repairService) backfillTimesheet(ctx context.Context, ts *model.TimesheetModel) (bool, error) {
	var entries []*model.TimeEntryModel
	if err := s.db.Where("timesheet_id = ?", ts.ID).Find(&entries).Error; err != nil {
		return false, fmt.Errorf("failed to load entries: %w", err)
	}
	if len(entries) == 0 {
		return false, nil
	}

	groups := make(map[string]struct {
		count int
		hours float64
	})
	for _, e := range entries {
		g := groups[e.ProjectKey()]
		g.count++
		g.hours += e.Hours
		groups[e.ProjectKey()] = g
	}

	var approvals []*model.TimesheetProjectApprovalModel
	if err := s.db.Where("timesheet_id = ?", ts.ID).Find(&approvals).Error; err != nil {
		return false, fmt.Errorf("failed to load approvals: %w", err)
	}
	have := make(map[string]bool, len(approvals))
	for _, a := range approvals {
		have[a.ProjectID] = true
	}

	missing := make([]string, 0)
	for key := range groups {
		if !have[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	projects := make(map[string]*model.ProjectModel)
	projectIDs := make([]string, 0, len(missing))
	for _, key := range missing {
		if key != model.NonProjectKey {
			projectIDs = append(projectIDs, key)
		}
	}
	if len(projectIDs) > 0 {
		var list []*model.ProjectModel
		if err := s.db.Where("id IN ?", projectIDs).Find(&list).Error; err != nil {
			return false, fmt.Errorf("failed to load projects: %w", err)
		}
		for _, p := range list {
			projects[p.ID] = p
		}
	}

	now := time.Now()
	created := make([]*model.TimesheetProjectApprovalModel, 0, len(missing))
	for _, key := range missing {
		g := groups[key]
		approval := &model.TimesheetProjectApprovalModel{
			ID:               uuid.New().String(),
			TimesheetID:      ts.ID,
			ProjectID:        key,
			LeadStatus:       model.ApprovalPending,
			ManagerStatus:    model.ApprovalPending,
			ManagementStatus: model.ApprovalPending,
			EntriesCount:     g.count,
			TotalHours:       g.hours,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if key == model.NonProjectKey {
			approval.LeadStatus = model.ApprovalNotRequired
			approval.ManagerStatus = model.ApprovalNotRequired
		} else {
			project, ok := projects[key]
			if !ok {
				// 项目已被删除,留给孤儿处理,不臆造审批人
				s.reportViolation("missing_approval_backfill", "timesheet", ts.ID,
					fmt.Sprintf("entries reference missing project %s", key))
				continue
			}
			if project.HasLead() {
				approval.LeadID = project.LeadID
			} else {
				approval.LeadStatus = model.ApprovalNotRequired
			}
			approval.ManagerID = project.PrimaryManagerID
			if project.PrimaryManagerID == ts.UserID {
				approval.ManagerStatus = model.ApprovalNotRequired
			}
		}
		created = append(created, approval)
	}
	if len(created) == 0 {
		return false, nil
	}

	s.reportViolation("missing_approval_backfill", "timesheet", ts.ID,
		fmt.Sprintf("%d approval record(s) missing for submitted timesheet", len(created)))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, approval := range created {
			if err := tx.Create(approval).Error; err != nil {
				return fmt.Errorf("failed to create approval record: %w", err)
			}
		}
		return s.rederiveStatus(tx, ts)
	})
	if err != nil {
		return false, err
	}
	s.recordFix(ctx, ts.TableName(), ts.ID, "missing_approval_backfill", string(model.TimesheetSubmitted), string(ts.Status))
	return true, nil
}

// CorrectManagerSelfApproval 自审批修正
// 历史缺陷:员工本人是项目主管经理时 manager_status 被错误置为
// pending,应为 not_required;修正后重算聚合状态
func (s *repairService) CorrectManagerSelfApproval(ctx context.Context) (*RepairResult, error) {
	result := &RepairResult{Procedure: "manager_self_approval_correction"}

	var batch []*model.TimesheetProjectApprovalModel
	err := s.db.Model(&model.TimesheetProjectApprovalModel{}).
		Where("manager_status = ? AND project_id <> ''", model.ApprovalPending).
		FindInBatches(&batch, repairChunkSize, func(tx *gorm.DB, _ int) error {
			for _, approval := range batch {
				result.Inspected++
				fixed, err := s.correctSelfApproval(ctx, approval)
				if err != nil {
					return err
				}
				if fixed {
					result.Fixed++
				}
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	metrics.RecordRepairFixes(result.Procedure, result.Fixed)
	return result, nil
}

// correctSelfApproval 修正单条自审批记录
func (s *repairService) correctSelfApproval(ctx context.Context, approval *model.TimesheetProjectApprovalModel) (bool, error) {
	var ts model.TimesheetModel
	if err := s.db.Where("id = ?", approval.TimesheetID).First(&ts).Error; err != nil {
		return false, fmt.Errorf("failed to load timesheet: %w", err)
	}
	var project model.ProjectModel
	if err := s.db.Where("id = ?", approval.ProjectID).First(&project).Error; err != nil {
		return false, nil // 项目缺失属孤儿问题,不在此处处理
	}
	if project.PrimaryManagerID != ts.UserID {
		return false, nil
	}

	s.reportViolation("manager_self_approval_correction", "approval record", approval.ID,
		fmt.Sprintf("self-managed project %s has manager_status pending", approval.ProjectID))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.TimesheetProjectApprovalModel{}).
			Where("id = ? AND manager_status = ?", approval.ID, model.ApprovalPending).
			Updates(map[string]interface{}{
				"manager_status": model.ApprovalNotRequired,
				"updated_at":     now,
			}).Error; err != nil {
			return fmt.Errorf("failed to correct approval record: %w", err)
		}
		return s.rederiveStatus(tx, &ts)
	})
	if err != nil {
		return false, err
	}
	s.recordFix(ctx, approval.TableName(), approval.ID, "manager_self_approval_correction",
		string(model.ApprovalPending), string(model.ApprovalNotRequired))
	return true, nil
}

// EnforceFreezeConsistency 冻结一致性
// approved/frozen 工时单的全部审批记录 management_status 必须为
// approved;缺失的结论时间戳补为当前时间
func (s *repairService) EnforceFreezeConsistency(ctx context.Context) (*RepairResult, error) {
	result := &RepairResult{Procedure: "freeze_consistency"}

	var batch []*model.TimesheetModel
	err := s.db.Model(&model.TimesheetModel{}).
		Where("status = ? OR is_frozen = ?", model.TimesheetApproved, true).
		FindInBatches(&batch, repairChunkSize, func(tx *gorm.DB, _ int) error {
			for _, ts := range batch {
				result.Inspected++
				fixed, err := s.enforceFreeze(ctx, ts)
				if err != nil {
					return err
				}
				if fixed {
					result.Fixed++
				}
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	metrics.RecordRepairFixes(result.Procedure, result.Fixed)
	return result, nil
}

// enforceFreeze 修正单个冻结工时单
func (s *repairService) enforceFreeze(ctx context.Context, ts *model.TimesheetModel) (bool, error) {
	var approvals []*model.TimesheetProjectApprovalModel
	if err := s.db.Where("timesheet_id = ?", ts.ID).Find(&approvals).Error; err != nil {
		return false, fmt.Errorf("failed to load approvals: %w", err)
	}

	now := time.Now()
	fixed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, approval := range approvals {
			changed := false
			if approval.ManagementStatus != model.ApprovalApproved {
				approval.ManagementStatus = model.ApprovalApproved
				changed = true
			}
			if approval.ManagementDecidedAt == nil {
				approval.ManagementDecidedAt = &now
				changed = true
			}
			if !changed {
				continue
			}
			s.reportViolation("freeze_consistency", "approval record", approval.ID,
				"frozen timesheet has an unapproved management sub-status")
			approval.UpdatedAt = now
			if err := tx.Save(approval).Error; err != nil {
				return fmt.Errorf("failed to save approval record: %w", err)
			}
			fixed = true
		}

		if ts.Status != model.TimesheetApproved || !ts.IsFrozen {
			updates := map[string]interface{}{
				"status":     model.TimesheetApproved,
				"is_frozen":  true,
				"version":    ts.Version + 1,
				"updated_at": now,
			}
			if ts.FrozenAt == nil {
				updates["frozen_at"] = &now
			}
			res := tx.Model(&model.TimesheetModel{}).
				Where("id = ? AND version = ?", ts.ID, ts.Version).
				Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to update timesheet: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrVersionConflict
			}
			fixed = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if fixed {
		s.recordFix(ctx, ts.TableName(), ts.ID, "freeze_consistency", string(ts.Status), string(model.TimesheetApproved))
	}
	return fixed, nil
}

// rederiveStatus 用与审批引擎相同的推导重算聚合状态(乐观锁条件更新)
// approved/frozen 为终态,不在此降级,冻结不一致由冻结一致性程序专责处理
func (s *repairService) rederiveStatus(tx *gorm.DB, ts *model.TimesheetModel) error {
	if ts.IsFrozen || ts.Status == model.TimesheetApproved {
		return nil
	}

	var all []*model.TimesheetProjectApprovalModel
	if err := tx.Where("timesheet_id = ?", ts.ID).Find(&all).Error; err != nil {
		return fmt.Errorf("failed to load approvals: %w", err)
	}
	newStatus := model.DeriveTimesheetStatus(all)
	if newStatus == ts.Status {
		return nil
	}

	oldVersion := ts.Version
	ts.Status = newStatus
	ts.Version = oldVersion + 1
	result := tx.Model(&model.TimesheetModel{}).
		Where("id = ? AND version = ?", ts.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"version":    ts.Version,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update timesheet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// reportViolation 记录一次不变量违反
// ConsistencyError 只记录日志并就地修正,从不返回给调用方
func (s *repairService) reportViolation(procedure, record, recordID, message string) {
	violation := &ConsistencyError{Record: record, ID: recordID, Message: message}
	s.logger.WithFields(logrus.Fields{
		"procedure": procedure,
		"record_id": recordID,
	}).Warn(violation.Error())
}

// recordFix 为修正动作写入审计事件
func (s *repairService) recordFix(ctx context.Context, table, recordID, procedure, oldState, newState string) {
	if s.auditLogSvc == nil {
		return
	}
	actorID := actorIDFromContext(ctx)
	if actorID == "" {
		actorID = "system"
	}
	_ = s.auditLogSvc.RecordTransition(ctx, table, recordID, procedure, actorID, oldState, newState, nil)
}
