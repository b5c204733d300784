package container

import (
	"fmt"
	"time"

	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/config"
	"github.com/mautops/timesheet-gin/internal/database"
	"github.com/mautops/timesheet-gin/internal/repository"
	"github.com/mautops/timesheet-gin/internal/service"
	"github.com/mautops/timesheet-gin/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库连接、事件中心和全部领域服务
type Container struct {
	db                *gorm.DB
	hub               *websocket.Hub
	tokenValidator    *auth.TokenValidator
	logger            *logrus.Logger
	auditLogService   service.AuditLogService
	entryService      service.EntryService
	approvalService   service.ApprovalService
	billingService    service.BillingService
	repairService     service.RepairService
	queryService      service.QueryService
	statisticsService service.StatisticsService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 初始化数据库(带重试,指数退避)
	var db *gorm.DB
	var err error
	if config.IsProduction(cfg) {
		db, err = database.ConnectProduction(cfg.Database)
	} else {
		db, err = database.ConnectWithRetry(cfg.Database, 3, time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(cfg, db, logger), nil
}

// NewContainerWithDB 用现有数据库连接组装容器(测试用)
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) *Container {
	if logger == nil {
		logger = logrus.New()
	}

	// 2. 事件中心:审计事件经它广播到 WebSocket/SSE 订阅方
	hub := websocket.NewHub()
	go hub.Run()

	// 3. Token 验证器,issuer 未配置时走请求头直传身份(开发环境)
	var validator *auth.TokenValidator
	if cfg != nil && cfg.Auth.Issuer != "" {
		validator = auth.NewTokenValidator(cfg.Auth.Issuer)
	}

	// 4. 领域服务
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db), hub)
	entryService := service.NewEntryService(db, auditLogService)
	approvalService := service.NewApprovalService(db, auditLogService)
	billingService := service.NewBillingService(db, repository.NewBillingRateRepository(db))
	repairService := service.NewRepairService(db, auditLogService, logger)
	queryService := service.NewQueryService(db)
	statisticsService := service.NewStatisticsService(db)

	return &Container{
		db:                db,
		hub:               hub,
		tokenValidator:    validator,
		logger:            logger,
		auditLogService:   auditLogService,
		entryService:      entryService,
		approvalService:   approvalService,
		billingService:    billingService,
		repairService:     repairService,
		queryService:      queryService,
		statisticsService: statisticsService,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取事件中心
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 Token 验证器(未配置时为 nil)
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// AuditLogService 获取审计事件服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// EntryService 获取工时条目服务
func (c *Container) EntryService() service.EntryService {
	return c.entryService
}

// ApprovalService 获取审批引擎服务
func (c *Container) ApprovalService() service.ApprovalService {
	return c.approvalService
}

// BillingService 获取计费聚合服务
func (c *Container) BillingService() service.BillingService {
	return c.billingService
}

// RepairService 获取维护修复服务
func (c *Container) RepairService() service.RepairService {
	return c.repairService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
