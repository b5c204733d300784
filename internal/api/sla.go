package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SLAConfig 各类操作的响应时间上限
type SLAConfig struct {
	TimesheetWriteMaxTime   time.Duration // 工时单创建/条目写入
	ApprovalDecisionMaxTime time.Duration // 提交与审批结论(含状态重算)
	QueryMaxTime            time.Duration // 列表与详情查询
	BillingMaxTime          time.Duration // 计费聚合
}

// DefaultSLAConfig 返回默认 SLA 配置
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		TimesheetWriteMaxTime:   1 * time.Second,
		ApprovalDecisionMaxTime: 2 * time.Second,
		QueryMaxTime:            500 * time.Millisecond,
		BillingMaxTime:          5 * time.Second,
	}
}

// classifyOperation 按请求路径和方法归类操作
func classifyOperation(c *gin.Context) string {
	method := c.Request.Method
	path := c.Request.URL.Path

	switch {
	case strings.Contains(path, "/approvals/") || strings.HasSuffix(path, "/submit"):
		return "approval_decision"
	case strings.Contains(path, "/billing/"):
		return "billing_aggregation"
	case method == "POST" || method == "DELETE":
		return "timesheet_write"
	case method == "GET" && strings.HasPrefix(path, "/api/"):
		return "query"
	}
	return "unclassified"
}

// slaBudget 返回操作的响应时间上限,0 表示不检查
func (cfg *SLAConfig) slaBudget(operation string) time.Duration {
	switch operation {
	case "timesheet_write":
		return cfg.TimesheetWriteMaxTime
	case "approval_decision":
		return cfg.ApprovalDecisionMaxTime
	case "query":
		return cfg.QueryMaxTime
	case "billing_aggregation":
		return cfg.BillingMaxTime
	}
	return 0
}

// WithinSLA 判断一次操作是否在响应时间上限内
func WithinSLA(operation string, duration time.Duration, cfg *SLAConfig) bool {
	budget := cfg.slaBudget(operation)
	return budget == 0 || duration <= budget
}

// SLAMonitorMiddleware SLA 监控中间件
// 超限请求带上 X-SLA-* 响应头,供网关侧采样告警
func SLAMonitorMiddleware(cfg *SLAConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultSLAConfig()
	}

	return func(c *gin.Context) {
		start := time.Now()
		operation := classifyOperation(c)

		c.Next()

		duration := time.Since(start)
		if !WithinSLA(operation, duration, cfg) {
			c.Header("X-SLA-Violation", "true")
			c.Header("X-SLA-Operation", operation)
			c.Header("X-SLA-Duration", duration.String())
			c.Header("X-SLA-Expected", cfg.slaBudget(operation).String())
		}
	}
}
