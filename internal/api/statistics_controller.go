package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/service"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{
		statisticsService: statisticsService,
	}
}

// ByStatus 按聚合状态统计
// @Summary      工时单状态分布
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/timesheets [get]
// @Security     BearerAuth
func (c *StatisticsController) ByStatus(ctx *gin.Context) {
	stats, err := c.statisticsService.GetTimesheetStatisticsByStatus()
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}
	Success(ctx, stats)
}

// ByWeek 按周统计
// @Summary      工时单按周统计
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/weekly [get]
// @Security     BearerAuth
func (c *StatisticsController) ByWeek(ctx *gin.Context) {
	stats, err := c.statisticsService.GetTimesheetStatisticsByWeek()
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}
	Success(ctx, stats)
}

// Approvals 审批结论统计
// @Summary      审批结论分布
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/approvals [get]
// @Security     BearerAuth
func (c *StatisticsController) Approvals(ctx *gin.Context) {
	stats, err := c.statisticsService.GetApprovalStatistics()
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}
	Success(ctx, stats)
}
