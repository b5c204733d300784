package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimesheetStatusEditable(t *testing.T) {
	assert.True(t, TimesheetDraft.Editable())
	assert.True(t, TimesheetRejected.Editable())
	assert.False(t, TimesheetSubmitted.Editable())
	assert.False(t, TimesheetManagementPending.Editable())
	assert.False(t, TimesheetApproved.Editable())
}

func TestTimesheetStatusTerminal(t *testing.T) {
	assert.True(t, TimesheetApproved.Terminal())
	assert.False(t, TimesheetRejected.Terminal())
	assert.False(t, TimesheetSubmitted.Terminal())
}

func TestTimesheetValidate(t *testing.T) {
	monday := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

	ts := &TimesheetModel{
		ID:            "ts-001",
		UserID:        "user-001",
		WeekStartDate: monday,
		WeekEndDate:   monday.AddDate(0, 0, 6),
		Status:        TimesheetDraft,
	}
	assert.NoError(t, ts.Validate())

	// 周起始日必须是周一
	bad := *ts
	bad.WeekStartDate = monday.AddDate(0, 0, 1)
	bad.WeekEndDate = bad.WeekStartDate.AddDate(0, 0, 6)
	assert.Error(t, bad.Validate())

	// 周结束日必须正好晚六天
	bad = *ts
	bad.WeekEndDate = monday.AddDate(0, 0, 5)
	assert.Error(t, bad.Validate())

	bad = *ts
	bad.Status = TimesheetStatus("unknown")
	assert.Error(t, bad.Validate())
}

func TestTimesheetContainsDate(t *testing.T) {
	monday := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)
	ts := &TimesheetModel{WeekStartDate: monday, WeekEndDate: monday.AddDate(0, 0, 6)}

	assert.True(t, ts.ContainsDate(monday))
	assert.True(t, ts.ContainsDate(monday.AddDate(0, 0, 6)))
	assert.True(t, ts.ContainsDate(time.Date(2024, 10, 2, 15, 30, 0, 0, time.UTC)))
	assert.False(t, ts.ContainsDate(monday.AddDate(0, 0, -1)))
	assert.False(t, ts.ContainsDate(monday.AddDate(0, 0, 7)))
}

func TestDeriveTimesheetStatus(t *testing.T) {
	approval := func(lead, manager, management ApprovalStatus) *TimesheetProjectApprovalModel {
		return &TimesheetProjectApprovalModel{
			LeadStatus:       lead,
			ManagerStatus:    manager,
			ManagementStatus: management,
		}
	}

	tests := []struct {
		name      string
		approvals []*TimesheetProjectApprovalModel
		want      TimesheetStatus
	}{
		{
			name:      "no approvals stays submitted",
			approvals: nil,
			want:      TimesheetSubmitted,
		},
		{
			name: "review pending stays submitted",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalPending, ApprovalPending, ApprovalPending),
			},
			want: TimesheetSubmitted,
		},
		{
			name: "lead rejection wins immediately",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalRejected, ApprovalPending, ApprovalPending),
				approval(ApprovalApproved, ApprovalApproved, ApprovalPending),
			},
			want: TimesheetRejected,
		},
		{
			name: "manager rejection wins even with other reviews pending",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalPending, ApprovalRejected, ApprovalPending),
			},
			want: TimesheetRejected,
		},
		{
			name: "review complete moves to management pending",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalApproved, ApprovalApproved, ApprovalPending),
				approval(ApprovalNotRequired, ApprovalNotRequired, ApprovalPending),
			},
			want: TimesheetManagementPending,
		},
		{
			name: "management rejection after review complete",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalApproved, ApprovalApproved, ApprovalRejected),
				approval(ApprovalApproved, ApprovalApproved, ApprovalPending),
			},
			want: TimesheetRejected,
		},
		{
			name: "all tiers satisfied becomes approved",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalApproved, ApprovalApproved, ApprovalApproved),
				approval(ApprovalNotRequired, ApprovalNotRequired, ApprovalApproved),
			},
			want: TimesheetApproved,
		},
		{
			name: "not required counts as satisfied everywhere",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalNotRequired, ApprovalNotRequired, ApprovalApproved),
			},
			want: TimesheetApproved,
		},
		{
			name: "partial review keeps submitted even with management decided",
			approvals: []*TimesheetProjectApprovalModel{
				approval(ApprovalPending, ApprovalApproved, ApprovalApproved),
			},
			want: TimesheetSubmitted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTimesheetStatus(tt.approvals))
		})
	}
}
