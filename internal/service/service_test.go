package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/database"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testMonday 测试周的周一(避开未来日期校验)
var testMonday = time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

// newTestDB 创建内存 SQLite 数据库并执行迁移
// 每个测试使用独立的共享缓存库名,避免连接池拿到空库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func strptr(s string) *string {
	return &s
}

func seedUser(t *testing.T, db *gorm.DB, id, name string, role model.Role) *model.UserModel {
	t.Helper()
	user := &model.UserModel{
		ID:        id,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, id, name, managerID string, leadID *string) *model.ProjectModel {
	t.Helper()
	project := &model.ProjectModel{
		ID:               id,
		Name:             name,
		PrimaryManagerID: managerID,
		LeadID:           leadID,
		IsBillable:       true,
		IsActive:         true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedTimesheet(t *testing.T, db *gorm.DB, userID string, weekStart time.Time, status model.TimesheetStatus) *model.TimesheetModel {
	t.Helper()
	ts := &model.TimesheetModel{
		ID:            uuid.New().String(),
		UserID:        userID,
		WeekStartDate: weekStart,
		WeekEndDate:   weekStart.AddDate(0, 0, 6),
		Status:        status,
		Version:       1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, db.Create(ts).Error)
	return ts
}

func seedEntry(t *testing.T, db *gorm.DB, timesheetID string, projectID *string, date time.Time, hours float64, billable bool) *model.TimeEntryModel {
	t.Helper()
	entry := &model.TimeEntryModel{
		ID:          uuid.New().String(),
		TimesheetID: timesheetID,
		ProjectID:   projectID,
		EntryDate:   date,
		Hours:       hours,
		IsBillable:  billable,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

// seedCompliantWeek 为周一到周五各写入 8 小时,按项目平分
func seedCompliantWeek(t *testing.T, db *gorm.DB, timesheetID string, weekStart time.Time, projectIDs ...*string) {
	t.Helper()
	hours := 8.0 / float64(len(projectIDs))
	for offset := 0; offset < 5; offset++ {
		day := weekStart.AddDate(0, 0, offset)
		for _, pid := range projectIDs {
			seedEntry(t, db, timesheetID, pid, day, hours, true)
		}
	}
}

func actorCtx(id string, role model.Role) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: id, Role: role})
}

func reloadTimesheet(t *testing.T, db *gorm.DB, id string) *model.TimesheetModel {
	t.Helper()
	var ts model.TimesheetModel
	require.NoError(t, db.Where("id = ?", id).First(&ts).Error)
	return &ts
}

func loadApproval(t *testing.T, db *gorm.DB, timesheetID, projectID string) *model.TimesheetProjectApprovalModel {
	t.Helper()
	var approval model.TimesheetProjectApprovalModel
	require.NoError(t, db.Where("timesheet_id = ? AND project_id = ?", timesheetID, projectID).
		First(&approval).Error)
	return &approval
}
