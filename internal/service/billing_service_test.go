package service

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBillingService(db *gorm.DB) BillingService {
	return NewBillingService(db, repository.NewBillingRateRepository(db))
}

func seedRate(t *testing.T, db *gorm.DB, userID string, projectID *string, rate float64, from time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&model.BillingRateModel{
		ID:            userID + "-rate-" + from.Format("20060102") + "-" + derefOr(projectID, "default"),
		UserID:        userID,
		ProjectID:     projectID,
		HourlyRate:    rate,
		Currency:      "USD",
		EffectiveFrom: from,
		CreatedAt:     time.Now(),
	}).Error)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func TestAggregateBillingAmounts(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 8, true)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday.AddDate(0, 0, 1), 2, false)
	seedRate(t, db, "emp-1", strptr("prj-a"), 100, testMonday.AddDate(0, -1, 0))

	lines, err := newBillingService(db).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, "prj-a", line.ProjectID)
	assert.Equal(t, "Project A", line.ProjectName)
	assert.Equal(t, "emp-1", line.UserID)
	assert.Equal(t, "Employee One", line.UserName)
	assert.InDelta(t, 10.0, line.TotalHours, 0.001)
	assert.InDelta(t, 8.0, line.BillableHours, 0.001)
	assert.InDelta(t, 800.0, line.Amount, 0.001)
	assert.Equal(t, "USD", line.Currency)
}

func TestAggregateUsesRateEffectiveAtEntryDate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 4, true)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday.AddDate(0, 0, 3), 4, true)

	// 周四起费率从 100 调到 150
	seedRate(t, db, "emp-1", strptr("prj-a"), 100, testMonday.AddDate(0, -1, 0))
	seedRate(t, db, "emp-1", strptr("prj-a"), 150, testMonday.AddDate(0, 0, 3))

	lines, err := newBillingService(db).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 4*100+4*150, lines[0].Amount, 0.001)
}

func TestAggregateRejectsMixedCurrencies(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 4, true)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday.AddDate(0, 0, 3), 4, true)

	// 周四起费率换成欧元计价,同一聚合行内金额不可跨币种相加
	seedRate(t, db, "emp-1", strptr("prj-a"), 100, testMonday.AddDate(0, -1, 0))
	require.NoError(t, db.Create(&model.BillingRateModel{
		ID:            "emp-1-rate-eur",
		UserID:        "emp-1",
		ProjectID:     strptr("prj-a"),
		HourlyRate:    90,
		Currency:      "EUR",
		EffectiveFrom: testMonday.AddDate(0, 0, 3),
		CreatedAt:     time.Now(),
	}).Error)

	_, err := newBillingService(db).Aggregate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsAggregation(err))
	assert.Contains(t, err.Error(), "mixed currencies")
}

func TestAggregateDefaultRateFallback(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 8, true)
	// 没有项目专属费率,回退到用户默认费率
	seedRate(t, db, "emp-1", nil, 80, testMonday.AddDate(0, -1, 0))

	lines, err := newBillingService(db).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 640.0, lines[0].Amount, 0.001)
}

func TestAggregateMissingRate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-a"), testMonday, 8, true)

	_, err := newBillingService(db).Aggregate(context.Background(), nil)
	assert.True(t, IsAggregation(err))
}

func TestAggregateMissingProject(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)

	ts := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts.ID, strptr("prj-deleted"), testMonday, 8, true)

	_, err := newBillingService(db).Aggregate(context.Background(), nil)
	assert.True(t, IsAggregation(err))
}

func TestAggregateScope(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)
	seedRate(t, db, "emp-1", nil, 100, testMonday.AddDate(0, -1, 0))

	frozen := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, frozen.ID, strptr("prj-a"), testMonday, 8, true)

	// 未冻结的工时单不参与聚合
	draft := seedTimesheet(t, db, "emp-1", testMonday.AddDate(0, 0, -7), model.TimesheetSubmitted)
	seedEntry(t, db, draft.ID, strptr("prj-a"), draft.WeekStartDate, 8, true)

	// 软删除的条目被排除
	removed := seedEntry(t, db, frozen.ID, strptr("prj-a"), testMonday.AddDate(0, 0, 1), 4, true)
	require.NoError(t, db.Delete(removed).Error)

	// 孤儿工时单(属主已删除)被跳过
	ghost := seedTimesheet(t, db, "ghost", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ghost.ID, strptr("prj-a"), testMonday, 8, true)

	lines, err := newBillingService(db).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 8.0, lines[0].TotalHours, 0.001)
	assert.InDelta(t, 800.0, lines[0].Amount, 0.001)
}

func TestAggregateFilters(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "emp-1", "Employee One", model.RoleEmployee)
	seedUser(t, db, "emp-2", "Employee Two", model.RoleEmployee)
	seedProject(t, db, "prj-a", "Project A", "mgr-1", nil)
	seedProject(t, db, "prj-b", "Project B", "mgr-1", nil)
	seedRate(t, db, "emp-1", nil, 100, testMonday.AddDate(0, -1, 0))
	seedRate(t, db, "emp-2", nil, 120, testMonday.AddDate(0, -1, 0))

	ts1 := seedTimesheet(t, db, "emp-1", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts1.ID, strptr("prj-a"), testMonday, 8, true)
	seedEntry(t, db, ts1.ID, strptr("prj-b"), testMonday.AddDate(0, 0, 1), 8, true)
	ts2 := seedTimesheet(t, db, "emp-2", testMonday, model.TimesheetApproved)
	seedEntry(t, db, ts2.ID, strptr("prj-a"), testMonday, 8, true)

	svc := newBillingService(db)

	lines, err := svc.Aggregate(context.Background(), &BillingFilter{ProjectID: "prj-a"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	// 输出按 (project, user) 排序
	assert.Equal(t, "emp-1", lines[0].UserID)
	assert.Equal(t, "emp-2", lines[1].UserID)

	lines, err = svc.Aggregate(context.Background(), &BillingFilter{UserID: "emp-2"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 960.0, lines[0].Amount, 0.001)

	// 日期过滤只保留范围内的条目
	lines, err = svc.Aggregate(context.Background(), &BillingFilter{
		From: testMonday.AddDate(0, 0, 1),
		To:   testMonday.AddDate(0, 0, 6),
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "prj-b", lines[0].ProjectID)
}
