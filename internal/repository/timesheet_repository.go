package repository

import (
	"time"

	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// TimesheetRepository 工时单仓储接口
type TimesheetRepository interface {
	Save(ts *model.TimesheetModel) error
	FindByID(id string) (*model.TimesheetModel, error)
	FindByUserWeek(userID string, weekStart time.Time) (*model.TimesheetModel, error)
	FindByFilter(filter *TimesheetFilter) ([]*model.TimesheetModel, int64, error)
	CountByStatus() (map[model.TimesheetStatus]int64, error)
}

// TimesheetFilter 工时单查询过滤器
type TimesheetFilter struct {
	UserID    *string
	Status    *model.TimesheetStatus
	WeekFrom  *time.Time
	WeekTo    *time.Time
	Page      int
	PageSize  int
}

// timesheetRepository 工时单仓储实现
type timesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository 创建工时单仓储
func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &timesheetRepository{db: db}
}

// Save 保存工时单
func (r *timesheetRepository) Save(ts *model.TimesheetModel) error {
	return r.db.Save(ts).Error
}

// FindByID 根据 ID 查找工时单
func (r *timesheetRepository) FindByID(id string) (*model.TimesheetModel, error) {
	var ts model.TimesheetModel
	if err := r.db.Where("id = ?", id).First(&ts).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// FindByUserWeek 根据用户和周起始日查找工时单
func (r *timesheetRepository) FindByUserWeek(userID string, weekStart time.Time) (*model.TimesheetModel, error) {
	var ts model.TimesheetModel
	if err := r.db.Where("user_id = ? AND week_start_date = ?", userID, weekStart).First(&ts).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// FindByFilter 根据过滤器查找工时单(分页)
func (r *timesheetRepository) FindByFilter(filter *TimesheetFilter) ([]*model.TimesheetModel, int64, error) {
	query := r.db.Model(&model.TimesheetModel{})

	if filter != nil {
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.WeekFrom != nil {
			query = query.Where("week_start_date >= ?", *filter.WeekFrom)
		}
		if filter.WeekTo != nil {
			query = query.Where("week_start_date <= ?", *filter.WeekTo)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var sheets []*model.TimesheetModel
	err := query.Order("week_start_date DESC").Find(&sheets).Error
	return sheets, total, err
}

// CountByStatus 统计各聚合状态的工时单数量
func (r *timesheetRepository) CountByStatus() (map[model.TimesheetStatus]int64, error) {
	var results []struct {
		Status model.TimesheetStatus
		Count  int64
	}
	err := r.db.Model(&model.TimesheetModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.TimesheetStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}
