package service

import (
	"errors"

	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"gorm.io/gorm"
)

// QueryService 查询服务接口
// 工时单列表、详情和待办审批的只读查询
type QueryService interface {
	ListTimesheets(filter *repository.TimesheetFilter) ([]*model.TimesheetModel, int64, error)
	GetTimesheetDetail(timesheetID string) (*TimesheetDetail, error)
	PendingApprovals(tier model.ApprovalTier, approverID string) ([]*PendingApproval, error)
}

// TimesheetDetail 工时单详情
// @Description 工时单及其条目和审批记录
type TimesheetDetail struct {
	Timesheet *model.TimesheetModel                  `json:"timesheet"`
	Entries   []*model.TimeEntryModel                `json:"entries"`
	Approvals []*model.TimesheetProjectApprovalModel `json:"approvals"`
}

// PendingApproval 待办审批项
// @Description 待某审批人处理的 (工时单, 项目) 条目
type PendingApproval struct {
	Approval  *model.TimesheetProjectApprovalModel `json:"approval"`
	Timesheet *model.TimesheetModel                `json:"timesheet"`
	Owner     *model.UserModel                     `json:"owner"`
}

// queryService 查询服务实现
type queryService struct {
	db            *gorm.DB
	timesheetRepo repository.TimesheetRepository
	entryRepo     repository.TimeEntryRepository
	approvalRepo  repository.ApprovalRepository
	userRepo      repository.UserRepository
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{
		db:            db,
		timesheetRepo: repository.NewTimesheetRepository(db),
		entryRepo:     repository.NewTimeEntryRepository(db),
		approvalRepo:  repository.NewApprovalRepository(db),
		userRepo:      repository.NewUserRepository(db),
	}
}

// ListTimesheets 分页列出工时单
func (s *queryService) ListTimesheets(filter *repository.TimesheetFilter) ([]*model.TimesheetModel, int64, error) {
	if filter == nil {
		filter = &repository.TimesheetFilter{}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, NewValidationError("status", "unknown timesheet status")
	}
	return s.timesheetRepo.FindByFilter(filter)
}

// GetTimesheetDetail 获取工时单详情(含条目和审批记录)
func (s *queryService) GetTimesheetDetail(timesheetID string) (*TimesheetDetail, error) {
	ts, err := s.timesheetRepo.FindByID(timesheetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("timesheet", timesheetID)
		}
		return nil, err
	}
	entries, err := s.entryRepo.FindActiveByTimesheet(timesheetID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvalRepo.FindByTimesheet(timesheetID)
	if err != nil {
		return nil, err
	}
	return &TimesheetDetail{
		Timesheet: ts,
		Entries:   entries,
		Approvals: approvals,
	}, nil
}

// PendingApprovals 查询审批人的待办列表
// 管理层待办只包含 Lead/Manager 两层已全部满足的记录
func (s *queryService) PendingApprovals(tier model.ApprovalTier, approverID string) ([]*PendingApproval, error) {
	approvals, err := s.approvalRepo.FindPendingForTier(tier, approverID)
	if err != nil {
		return nil, err
	}
	if len(approvals) == 0 {
		return []*PendingApproval{}, nil
	}

	timesheetIDs := make([]string, 0, len(approvals))
	for _, a := range approvals {
		timesheetIDs = append(timesheetIDs, a.TimesheetID)
	}
	var sheets []*model.TimesheetModel
	if err := s.db.Where("id IN ?", timesheetIDs).Find(&sheets).Error; err != nil {
		return nil, err
	}
	sheetByID := make(map[string]*model.TimesheetModel, len(sheets))
	userIDs := make([]string, 0, len(sheets))
	for _, ts := range sheets {
		sheetByID[ts.ID] = ts
		userIDs = append(userIDs, ts.UserID)
	}
	owners, err := s.userRepo.FindByIDs(userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*PendingApproval, 0, len(approvals))
	for _, a := range approvals {
		ts, ok := sheetByID[a.TimesheetID]
		if !ok {
			continue
		}
		items = append(items, &PendingApproval{
			Approval:  a,
			Timesheet: ts,
			Owner:     owners[ts.UserID],
		})
	}
	return items, nil
}
