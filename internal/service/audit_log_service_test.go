package service

import (
	"context"
	"testing"

	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"github.com/mautops/timesheet-gin/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	events []*model.AuditLogModel
}

func (n *captureNotifier) PublishEvent(event *model.AuditLogModel) {
	n.events = append(n.events, event)
}

func TestRecordTransition(t *testing.T) {
	db := newTestDB(t)
	notifier := &captureNotifier{}
	svc := NewAuditLogService(repository.NewAuditLogRepository(db), notifier)

	ctx := utils.WithRequestID(context.Background(), "req-123")
	err := svc.RecordTransition(ctx, "timesheets", "ts-001", "submit", "emp-1",
		"draft", "submitted", map[string]interface{}{"projects": 2})
	require.NoError(t, err)

	events, err := svc.ListByRecord("timesheets", "ts-001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "submit", events[0].Action)
	assert.Equal(t, "emp-1", events[0].ActorID)
	assert.Equal(t, "draft", events[0].OldState)
	assert.Equal(t, "submitted", events[0].NewState)
	assert.Equal(t, "req-123", events[0].RequestID)
	assert.Contains(t, string(events[0].Details), `"projects":2`)

	// 事件同步分发给通知方
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "ts-001", notifier.events[0].RecordID)
}

func TestRecordTransitionWithoutDetails(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditLogService(repository.NewAuditLogRepository(db), nil)

	require.NoError(t, svc.RecordTransition(context.Background(), "time_entries", "e-1",
		"remove_entry", "emp-1", "active", "deleted", nil))

	events, err := svc.ListByRecord("time_entries", "e-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].RequestID)
}
