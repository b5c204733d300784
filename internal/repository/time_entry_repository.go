package repository

import (
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/gorm"
)

// TimeEntryRepository 工时条目仓储接口
type TimeEntryRepository interface {
	Save(entry *model.TimeEntryModel) error
	FindByID(id string) (*model.TimeEntryModel, error)
	FindActiveByTimesheet(timesheetID string) ([]*model.TimeEntryModel, error)
	SumHoursByTimesheet(timesheetID string) (float64, error)
	GroupByProject(timesheetID string) ([]*ProjectEntryGroup, error)
}

// ProjectEntryGroup 按项目分组的条目汇总
type ProjectEntryGroup struct {
	ProjectKey   string // 空串表示非项目工时
	EntriesCount int
	TotalHours   float64
}

// timeEntryRepository 工时条目仓储实现
type timeEntryRepository struct {
	db *gorm.DB
}

// NewTimeEntryRepository 创建工时条目仓储
func NewTimeEntryRepository(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepository{db: db}
}

// Save 保存工时条目
func (r *timeEntryRepository) Save(entry *model.TimeEntryModel) error {
	return r.db.Save(entry).Error
}

// FindByID 根据 ID 查找工时条目(不含已软删除)
func (r *timeEntryRepository) FindByID(id string) (*model.TimeEntryModel, error) {
	var entry model.TimeEntryModel
	if err := r.db.Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindActiveByTimesheet 查找工时单下全部未删除条目
func (r *timeEntryRepository) FindActiveByTimesheet(timesheetID string) ([]*model.TimeEntryModel, error) {
	var entries []*model.TimeEntryModel
	err := r.db.Where("timesheet_id = ?", timesheetID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

// SumHoursByTimesheet 汇总工时单下未删除条目的总工时
func (r *timeEntryRepository) SumHoursByTimesheet(timesheetID string) (float64, error) {
	var total float64
	err := r.db.Model(&model.TimeEntryModel{}).
		Where("timesheet_id = ?", timesheetID).
		Select("COALESCE(SUM(hours), 0)").
		Scan(&total).Error
	return total, err
}

// GroupByProject 按项目分组汇总工时单下的未删除条目
func (r *timeEntryRepository) GroupByProject(timesheetID string) ([]*ProjectEntryGroup, error) {
	var results []struct {
		ProjectID *string
		Count     int
		Hours     float64
	}
	err := r.db.Model(&model.TimeEntryModel{}).
		Where("timesheet_id = ?", timesheetID).
		Select("project_id, COUNT(*) as count, COALESCE(SUM(hours), 0) as hours").
		Group("project_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	groups := make([]*ProjectEntryGroup, 0, len(results))
	for _, res := range results {
		key := model.NonProjectKey
		if res.ProjectID != nil {
			key = *res.ProjectID
		}
		groups = append(groups, &ProjectEntryGroup{
			ProjectKey:   key,
			EntriesCount: res.Count,
			TotalHours:   res.Hours,
		})
	}
	return groups, nil
}
