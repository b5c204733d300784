package service

import (
	"fmt"

	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetTimesheetStatisticsByStatus() ([]*TimesheetStatisticsByStatus, error)
	GetTimesheetStatisticsByWeek() ([]*TimesheetStatisticsByWeek, error)
	GetApprovalStatistics() (*ApprovalStatistics, error)
}

// TimesheetStatisticsByStatus 按聚合状态统计
type TimesheetStatisticsByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TimesheetStatisticsByWeek 按周统计
type TimesheetStatisticsByWeek struct {
	WeekStart  string  `json:"week_start"`
	Count      int64   `json:"count"`
	TotalHours float64 `json:"total_hours"`
}

// ApprovalStatistics 审批结论统计
type ApprovalStatistics struct {
	LeadApproved       int64   `json:"lead_approved"`
	LeadRejected       int64   `json:"lead_rejected"`
	ManagerApproved    int64   `json:"manager_approved"`
	ManagerRejected    int64   `json:"manager_rejected"`
	ManagementApproved int64   `json:"management_approved"`
	ManagementRejected int64   `json:"management_rejected"`
	ApprovalRate       float64 `json:"approval_rate"` // 批准结论占全部结论的比例
}

// statisticsService 统计服务实现
type statisticsService struct {
	db           *gorm.DB
	approvalRepo repository.ApprovalRepository
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{
		db:           db,
		approvalRepo: repository.NewApprovalRepository(db),
	}
}

// GetTimesheetStatisticsByStatus 按聚合状态统计工时单数量
func (s *statisticsService) GetTimesheetStatisticsByStatus() ([]*TimesheetStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.TimesheetModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet statistics by status: %w", err)
	}

	stats := make([]*TimesheetStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TimesheetStatisticsByStatus{
			Status: r.Status,
			Count:  r.Count,
		})
	}
	return stats, nil
}

// GetTimesheetStatisticsByWeek 按周统计工时单数量和总工时
func (s *statisticsService) GetTimesheetStatisticsByWeek() ([]*TimesheetStatisticsByWeek, error) {
	var results []struct {
		WeekStart  string
		Count      int64
		TotalHours float64
	}

	err := s.db.Model(&model.TimesheetModel{}).
		Select("week_start_date as week_start, COUNT(*) as count, COALESCE(SUM(total_hours), 0) as total_hours").
		Group("week_start_date").
		Order("week_start_date DESC").
		Limit(26).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet statistics by week: %w", err)
	}

	stats := make([]*TimesheetStatisticsByWeek, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TimesheetStatisticsByWeek{
			WeekStart:  r.WeekStart,
			Count:      r.Count,
			TotalHours: r.TotalHours,
		})
	}
	return stats, nil
}

// GetApprovalStatistics 统计各层审批结论分布
func (s *statisticsService) GetApprovalStatistics() (*ApprovalStatistics, error) {
	counts, err := s.approvalRepo.CountDecisions()
	if err != nil {
		return nil, fmt.Errorf("failed to count approval decisions: %w", err)
	}

	stats := &ApprovalStatistics{
		LeadApproved:       counts.LeadApproved,
		LeadRejected:       counts.LeadRejected,
		ManagerApproved:    counts.ManagerApproved,
		ManagerRejected:    counts.ManagerRejected,
		ManagementApproved: counts.ManagementApproved,
		ManagementRejected: counts.ManagementRejected,
	}
	approved := stats.LeadApproved + stats.ManagerApproved + stats.ManagementApproved
	total := approved + stats.LeadRejected + stats.ManagerRejected + stats.ManagementRejected
	if total > 0 {
		stats.ApprovalRate = float64(approved) / float64(total)
	}
	return stats, nil
}
