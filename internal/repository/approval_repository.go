package repository

import (
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// ApprovalRepository 项目审批记录仓储接口
type ApprovalRepository interface {
	Save(approval *model.TimesheetProjectApprovalModel) error
	FindByTimesheet(timesheetID string) ([]*model.TimesheetProjectApprovalModel, error)
	FindByTimesheetProject(timesheetID, projectID string) (*model.TimesheetProjectApprovalModel, error)
	FindPendingForTier(tier model.ApprovalTier, approverID string) ([]*model.TimesheetProjectApprovalModel, error)
	CountDecisions() (*DecisionCounts, error)
}

// DecisionCounts 各层级审批结论计数
type DecisionCounts struct {
	LeadApproved       int64
	LeadRejected       int64
	ManagerApproved    int64
	ManagerRejected    int64
	ManagementApproved int64
	ManagementRejected int64
}

// approvalRepository 项目审批记录仓储实现
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository 创建项目审批记录仓储
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// Save 保存审批记录
func (r *approvalRepository) Save(approval *model.TimesheetProjectApprovalModel) error {
	return r.db.Save(approval).Error
}

// FindByTimesheet 查找工时单下全部审批记录
func (r *approvalRepository) FindByTimesheet(timesheetID string) ([]*model.TimesheetProjectApprovalModel, error) {
	var approvals []*model.TimesheetProjectApprovalModel
	err := r.db.Where("timesheet_id = ?", timesheetID).
		Order("created_at ASC").
		Find(&approvals).Error
	return approvals, err
}

// FindByTimesheetProject 根据 (timesheet, project) 组合键查找审批记录
func (r *approvalRepository) FindByTimesheetProject(timesheetID, projectID string) (*model.TimesheetProjectApprovalModel, error) {
	var approval model.TimesheetProjectApprovalModel
	if err := r.db.Where("timesheet_id = ? AND project_id = ?", timesheetID, projectID).
		First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

// FindPendingForTier 查找等待指定审批人处理的记录(审批工作台)
func (r *approvalRepository) FindPendingForTier(tier model.ApprovalTier, approverID string) ([]*model.TimesheetProjectApprovalModel, error) {
	query := r.db.Model(&model.TimesheetProjectApprovalModel{})

	switch tier {
	case model.TierLead:
		query = query.Where("lead_id = ? AND lead_status = ?", approverID, model.ApprovalPending)
	case model.TierManager:
		query = query.Where("manager_id = ? AND manager_status = ?", approverID, model.ApprovalPending)
	case model.TierManagement:
		// Management 层不绑定具体审批人,只看 Lead/Manager 已满足且 Management 待定的记录
		query = query.Where("management_status = ?", model.ApprovalPending).
			Where("lead_status IN ?", []model.ApprovalStatus{model.ApprovalApproved, model.ApprovalNotRequired}).
			Where("manager_status IN ?", []model.ApprovalStatus{model.ApprovalApproved, model.ApprovalNotRequired})
	}

	var approvals []*model.TimesheetProjectApprovalModel
	err := query.Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

// CountDecisions 统计各层级审批结论数量
func (r *approvalRepository) CountDecisions() (*DecisionCounts, error) {
	counts := &DecisionCounts{}

	type tierColumn struct {
		column   string
		approved *int64
		rejected *int64
	}
	columns := []tierColumn{
		{"lead_status", &counts.LeadApproved, &counts.LeadRejected},
		{"manager_status", &counts.ManagerApproved, &counts.ManagerRejected},
		{"management_status", &counts.ManagementApproved, &counts.ManagementRejected},
	}

	for _, tc := range columns {
		if err := r.db.Model(&model.TimesheetProjectApprovalModel{}).
			Where(tc.column+" = ?", model.ApprovalApproved).
			Count(tc.approved).Error; err != nil {
			return nil, err
		}
		if err := r.db.Model(&model.TimesheetProjectApprovalModel{}).
			Where(tc.column+" = ?", model.ApprovalRejected).
			Count(tc.rejected).Error; err != nil {
			return nil, err
		}
	}
	return counts, nil
}
