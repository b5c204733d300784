package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/timesheet-gin/internal/config"
	"github.com/mautops/timesheet-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟（生产环境缩短空闲时间）
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetPoolConfig())
}

// ConnectProduction 连接数据库（生产环境连接池参数）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, GetProductionPoolConfig())
}

// connect 建立连接并应用连接池参数,配置值优先于默认值
func connect(cfg config.DatabaseConfig, defaults *PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(BuildDSN(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = defaults.MaxIdleConns
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = defaults.MaxOpenConns
	}
	if pool.ConnMaxLifetime == 0 {
		pool.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if pool.ConnMaxIdleTime == 0 {
		pool.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,审计表需要手动建表（TEXT 替代 jsonb）
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := db.AutoMigrate(
			&model.UserModel{},
			&model.ProjectModel{},
			&model.TimesheetModel{},
			&model.TimeEntryModel{},
			&model.TimesheetProjectApprovalModel{},
			&model.BillingRateModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
		if err := createSQLiteAuditTable(db); err != nil {
			return fmt.Errorf("failed to create SQLite audit table: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.UserModel{},
			&model.ProjectModel{},
			&model.TimesheetModel{},
			&model.TimeEntryModel{},
			&model.TimesheetProjectApprovalModel{},
			&model.BillingRateModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteAuditTable 为 SQLite 手动创建审计表
func createSQLiteAuditTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			record_table VARCHAR(64) NOT NULL,
			record_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			old_state VARCHAR(32),
			new_state VARCHAR(32),
			request_id VARCHAR(64),
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error
}

// CreateIndexes 创建数据库索引
// 唯一索引由模型标签维护,这里补充查询热点的复合索引
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		ddl  string
	}{
		{"idx_timesheets_user_status", "CREATE INDEX IF NOT EXISTS idx_timesheets_user_status ON timesheets(user_id, status)"},
		{"idx_timesheets_status_week", "CREATE INDEX IF NOT EXISTS idx_timesheets_status_week ON timesheets(status, week_start_date)"},
		{"idx_entries_timesheet_date", "CREATE INDEX IF NOT EXISTS idx_entries_timesheet_date ON time_entries(timesheet_id, entry_date)"},
		{"idx_entries_project_date", "CREATE INDEX IF NOT EXISTS idx_entries_project_date ON time_entries(project_id, entry_date)"},
		{"idx_approvals_lead_status", "CREATE INDEX IF NOT EXISTS idx_approvals_lead_status ON timesheet_project_approvals(lead_id, lead_status)"},
		{"idx_approvals_manager_status", "CREATE INDEX IF NOT EXISTS idx_approvals_manager_status ON timesheet_project_approvals(manager_id, manager_status)"},
		{"idx_approvals_management_status", "CREATE INDEX IF NOT EXISTS idx_approvals_management_status ON timesheet_project_approvals(management_status)"},
		{"idx_rates_user_project", "CREATE INDEX IF NOT EXISTS idx_rates_user_project ON billing_rates(user_id, project_id, effective_from)"},
		{"idx_audit_record", "CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_logs(record_table, record_id)"},
		{"idx_audit_actor", "CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_logs(actor_id)"},
		{"idx_audit_created_at", "CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)"},
	}
	for _, idx := range indexes {
		if err := db.Exec(idx.ddl).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}

	// PostgreSQL 特定的 GIN 索引
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_details_gin ON audit_logs USING GIN (details)").Error; err != nil {
			return fmt.Errorf("failed to create idx_audit_details_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return Connect(cfg)
}
