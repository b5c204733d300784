package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 工时单提交数
	timesheetsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timesheets_submitted_total",
			Help: "Total number of timesheet submissions",
		},
	)

	// 审批结论数(按层级和结论)
	approvalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions",
		},
		[]string{"tier", "decision"}, // lead/manager/management, approve/reject
	)

	// 修复程序修正记录数(按程序)
	repairFixesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_fixes_total",
			Help: "Total number of records fixed by repair procedures",
		},
		[]string{"procedure"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 工时单聚合状态分布
	timesheetsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timesheets_by_status",
			Help: "Number of timesheets by aggregate status",
		},
		[]string{"status"},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(timesheetsSubmittedTotal)
	prometheus.MustRegister(approvalDecisionsTotal)
	prometheus.MustRegister(repairFixesTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(timesheetsByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTimesheetSubmitted 记录工时单提交
func RecordTimesheetSubmitted() {
	timesheetsSubmittedTotal.Inc()
}

// RecordApprovalDecision 记录审批结论
func RecordApprovalDecision(tier string, decision string) {
	approvalDecisionsTotal.WithLabelValues(tier, decision).Inc()
}

// RecordRepairFixes 记录修复程序修正的记录数
func RecordRepairFixes(procedure string, count int) {
	if count > 0 {
		repairFixesTotal.WithLabelValues(procedure).Add(float64(count))
	}
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateTimesheetsByStatus 更新工时单状态分布指标
func UpdateTimesheetsByStatus(status string, count float64) {
	timesheetsByStatus.WithLabelValues(status).Set(count)
}
