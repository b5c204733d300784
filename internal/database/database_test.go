package database

import (
	"testing"

	"github.com/mautops/timesheet-gin/internal/config"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "timesheet",
		SSLMode:  "disable",
	})
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=timesheet")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestPoolConfigs(t *testing.T) {
	dev := GetPoolConfig()
	prod := GetProductionPoolConfig()
	assert.Greater(t, prod.MaxOpenConns, dev.MaxOpenConns)
	assert.Greater(t, prod.MaxIdleConns, dev.MaxIdleConns)
}

func TestMigrateSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	// 全部表都可用,审计表由手动建表语句提供
	for _, m := range []interface{}{
		&model.UserModel{},
		&model.ProjectModel{},
		&model.TimesheetModel{},
		&model.TimeEntryModel{},
		&model.TimesheetProjectApprovalModel{},
		&model.BillingRateModel{},
		&model.AuditLogModel{},
	} {
		var count int64
		assert.NoError(t, db.Model(m).Count(&count).Error)
	}

	// 迁移幂等
	require.NoError(t, Migrate(db))
}

func TestCheckHealth(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:health_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	assert.True(t, CheckHealth(db))
	assert.False(t, CheckHealth(nil))
}
