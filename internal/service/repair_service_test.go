package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRepairService(db *gorm.DB) RepairService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRepairService(db, nil, logger)
}

func seedApproval(t *testing.T, db *gorm.DB, timesheetID, projectID string, lead, manager, management model.ApprovalStatus) *model.TimesheetProjectApprovalModel {
	t.Helper()
	approval := &model.TimesheetProjectApprovalModel{
		ID:               uuid.New().String(),
		TimesheetID:      timesheetID,
		ProjectID:        projectID,
		LeadStatus:       lead,
		ManagerStatus:    manager,
		ManagementStatus: management,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, db.Create(approval).Error)
	return approval
}

func TestOrphanCleanup(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	kept := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetDraft)

	// 属主已不存在的工时单连同条目和审批记录一起清除
	orphan := seedTimesheet(t, db, "ghost", testMonday, model.TimesheetSubmitted)
	seedEntry(t, db, orphan.ID, nil, testMonday, 8, false)
	removed := seedEntry(t, db, orphan.ID, nil, testMonday.AddDate(0, 0, 1), 8, false)
	require.NoError(t, db.Delete(removed).Error)
	seedApproval(t, db, orphan.ID, "", model.ApprovalNotRequired, model.ApprovalNotRequired, model.ApprovalPending)

	result, err := svc.OrphanCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "orphan_cleanup", result.Procedure)
	assert.Equal(t, 2, result.Inspected)
	assert.Equal(t, 1, result.Fixed)

	var count int64
	require.NoError(t, db.Model(&model.TimesheetModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.NoError(t, db.Unscoped().Model(&model.TimeEntryModel{}).
		Where("timesheet_id = ?", orphan.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count, "orphan entries are removed even when soft-deleted")
	require.NoError(t, db.Model(&model.TimesheetProjectApprovalModel{}).
		Where("timesheet_id = ?", orphan.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// 幂等:第二次运行没有可修正的记录
	result, err = svc.OrphanCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fixed)

	stored := reloadTimesheet(t, db, kept.ID)
	assert.Equal(t, model.TimesheetDraft, stored.Status)
}

func TestBackfillMissingApprovals(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", strptr("lead-1"))
	seedProject(t, db, "prj-self", "Self Managed", "emp-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetSubmitted)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 4, true)
	seedEntry(t, db, ts.ID, strptr("prj-self"), testMonday, 2, true)
	seedEntry(t, db, ts.ID, nil, testMonday, 2, false)
	// 只有 prj-a 有审批记录,其余两组缺失
	seedApproval(t, db, ts.ID, "prj-a", model.ApprovalPending, model.ApprovalPending, model.ApprovalPending)

	result, err := svc.BackfillMissingApprovals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "missing_approval_backfill", result.Procedure)
	assert.Equal(t, 1, result.Fixed)

	// 补建规则与提交时一致
	self := loadApproval(t, db, ts.ID, "prj-self")
	assert.Equal(t, model.ApprovalNotRequired, self.LeadStatus)
	assert.Equal(t, model.ApprovalNotRequired, self.ManagerStatus)
	assert.Equal(t, model.ApprovalPending, self.ManagementStatus)
	assert.Equal(t, 1, self.EntriesCount)
	assert.InDelta(t, 2.0, self.TotalHours, 0.001)

	nonProject := loadApproval(t, db, ts.ID, model.NonProjectKey)
	assert.Equal(t, model.ApprovalNotRequired, nonProject.LeadStatus)
	assert.Equal(t, model.ApprovalNotRequired, nonProject.ManagerStatus)

	// prj-a 仍在评审中,聚合状态保持 submitted
	stored := reloadTimesheet(t, db, ts.ID)
	assert.Equal(t, model.TimesheetSubmitted, stored.Status)

	result, err = svc.BackfillMissingApprovals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fixed)
}

func TestBackfillRederivesStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-self", "Self Managed", "emp-1", nil)

	// 唯一缺失的记录补建后两层评审即满足,状态应推进到管理层待审
	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetSubmitted)
	seedEntry(t, db, ts.ID, strptr("prj-self"), testMonday, 8, true)

	result, err := svc.BackfillMissingApprovals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fixed)

	stored := reloadTimesheet(t, db, ts.ID)
	assert.Equal(t, model.TimesheetManagementPending, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestCorrectManagerSelfApproval(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedUser(t, db, "emp-2", "Employee Two", model.RoleEmployee)
	seedProject(t, db, "prj-self", "Self Managed", "emp-1", nil)

	// 历史缺陷数据:自管项目的 manager 层被错误置为 pending
	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetSubmitted)
	seedApproval(t, db, ts.ID, "prj-self", model.ApprovalNotRequired, model.ApprovalPending, model.ApprovalPending)

	// 非自管的同项目记录不受影响
	other := seedTimesheet(t, db, "emp-2", testMonday, model.TimesheetSubmitted)
	untouched := seedApproval(t, db, other.ID, "prj-self", model.ApprovalNotRequired, model.ApprovalPending, model.ApprovalPending)

	result, err := svc.CorrectManagerSelfApproval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manager_self_approval_correction", result.Procedure)
	assert.Equal(t, 2, result.Inspected)
	assert.Equal(t, 1, result.Fixed)

	fixed := loadApproval(t, db, ts.ID, "prj-self")
	assert.Equal(t, model.ApprovalNotRequired, fixed.ManagerStatus)
	stored := reloadTimesheet(t, db, ts.ID)
	assert.Equal(t, model.TimesheetManagementPending, stored.Status)

	still := loadApproval(t, db, other.ID, "prj-self")
	assert.Equal(t, model.ApprovalPending, still.ManagerStatus)
	assert.Equal(t, untouched.ID, still.ID)

	result, err = svc.CorrectManagerSelfApproval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fixed)
}

func TestCorrectManagerSelfApprovalKeepsFrozenSheets(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-self", "Self Managed", "emp-1", nil)

	// 已冻结的工时单也可能带着历史自审批缺陷
	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	now := time.Now()
	require.NoError(t, db.Model(ts).Updates(map[string]interface{}{
		"is_frozen": true,
		"frozen_at": &now,
	}).Error)
	seedApproval(t, db, ts.ID, "prj-self", model.ApprovalNotRequired, model.ApprovalPending, model.ApprovalApproved)

	result, err := svc.CorrectManagerSelfApproval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fixed)

	// 记录被修正,但终态工时单绝不被降级
	fixed := loadApproval(t, db, ts.ID, "prj-self")
	assert.Equal(t, model.ApprovalNotRequired, fixed.ManagerStatus)
	stored := reloadTimesheet(t, db, ts.ID)
	assert.Equal(t, model.TimesheetApproved, stored.Status)
	assert.True(t, stored.IsFrozen)
}

func TestEnforceFreezeConsistency(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)

	// 状态为 approved 但冻结标志和管理层子状态不一致
	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedApproval(t, db, ts.ID, "", model.ApprovalNotRequired, model.ApprovalNotRequired, model.ApprovalPending)

	result, err := svc.EnforceFreezeConsistency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "freeze_consistency", result.Procedure)
	assert.Equal(t, 1, result.Fixed)

	fixed := loadApproval(t, db, ts.ID, "")
	assert.Equal(t, model.ApprovalApproved, fixed.ManagementStatus)
	assert.NotNil(t, fixed.ManagementDecidedAt)

	stored := reloadTimesheet(t, db, ts.ID)
	assert.Equal(t, model.TimesheetApproved, stored.Status)
	assert.True(t, stored.IsFrozen)
	assert.NotNil(t, stored.FrozenAt)

	result, err = svc.EnforceFreezeConsistency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fixed)
}

func TestRunAllExecutesProceduresInOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newRepairService(db)

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "orphan_cleanup", results[0].Procedure)
	assert.Equal(t, "missing_approval_backfill", results[1].Procedure)
	assert.Equal(t, "manager_self_approval_correction", results[2].Procedure)
	assert.Equal(t, "freeze_consistency", results[3].Procedure)
}
