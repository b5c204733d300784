package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/config"
	"github.com/mautops/timesheet-gin/internal/container"
	"github.com/mautops/timesheet-gin/internal/websocket"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, c *container.Container) *gin.Engine {
	router := gin.Default()

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(VersionMiddleware())
	router.Use(SLAMonitorMiddleware(nil))
	if cfg != nil {
		router.Use(CORSMiddleware(cfg.CORS))
		if cfg.RateLimit.Enabled {
			router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// 健康检查
	healthController := NewHealthController(c.DB(), c.Hub())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 实时事件流:WebSocket 与 SSE 推送同一份审计事件
	router.GET("/ws/events", websocket.EventStreamHandler(c.Hub(), c.TokenValidator()))
	router.GET("/sse/events", SSEHandler(c.Hub(), c.TokenValidator()))

	// 控制器
	timesheetController := NewTimesheetController(c.EntryService(), c.ApprovalService(), c.QueryService(), c.AuditLogService())
	approvalController := NewApprovalController(c.ApprovalService(), c.QueryService())
	billingController := NewBillingController(c.BillingService())
	repairController := NewRepairController(c.RepairService())
	statisticsController := NewStatisticsController(c.StatisticsService())

	// API v1 路由组,全部要求操作人身份
	v1 := router.Group("/api/v1")
	v1.Use(auth.ActorMiddleware(c.TokenValidator()))
	{
		// 工时单管理
		timesheets := v1.Group("/timesheets")
		{
			timesheets.POST("", timesheetController.Create)
			timesheets.GET("", timesheetController.List)
			timesheets.GET("/:id", timesheetController.Get)
			timesheets.POST("/:id/entries", timesheetController.AddEntries)
			timesheets.POST("/:id/submit", timesheetController.Submit)
			timesheets.GET("/:id/history", timesheetController.History)
			timesheets.POST("/:id/approvals/:tier", approvalController.Decide)
		}

		// 条目删除
		v1.DELETE("/entries/:id", timesheetController.RemoveEntry)

		// 待办审批
		v1.GET("/approvals/pending", approvalController.Pending)

		// 计费聚合
		v1.GET("/billing/aggregate", billingController.Aggregate)

		// 统计
		statistics := v1.Group("/statistics")
		{
			statistics.GET("/timesheets", statisticsController.ByStatus)
			statistics.GET("/weekly", statisticsController.ByWeek)
			statistics.GET("/approvals", statisticsController.Approvals)
		}

		// 维护修复,仅限管理员
		admin := v1.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.POST("/repair/run", repairController.RunAll)
			admin.POST("/repair/:procedure", repairController.RunOne)
		}
	}

	return router
}
