package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApprovalStatusPredicates(t *testing.T) {
	assert.True(t, ApprovalApproved.Satisfied())
	assert.True(t, ApprovalNotRequired.Satisfied())
	assert.False(t, ApprovalPending.Satisfied())
	assert.False(t, ApprovalRejected.Satisfied())

	assert.True(t, ApprovalApproved.Decided())
	assert.True(t, ApprovalRejected.Decided())
	assert.True(t, ApprovalNotRequired.Decided())
	assert.False(t, ApprovalPending.Decided())
}

func TestApprovalTierStatusRoundTrip(t *testing.T) {
	am := &TimesheetProjectApprovalModel{
		LeadStatus:       ApprovalPending,
		ManagerStatus:    ApprovalPending,
		ManagementStatus: ApprovalPending,
	}

	now := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	am.SetTierDecision(TierLead, ApprovalApproved, "", now)
	am.SetTierDecision(TierManager, ApprovalRejected, "hours do not match", now)

	assert.Equal(t, ApprovalApproved, am.TierStatus(TierLead))
	assert.Equal(t, ApprovalRejected, am.TierStatus(TierManager))
	assert.Equal(t, ApprovalPending, am.TierStatus(TierManagement))
	assert.Equal(t, "hours do not match", am.ManagerReason)
	assert.NotNil(t, am.LeadDecidedAt)
	assert.NotNil(t, am.ManagerDecidedAt)
	assert.Nil(t, am.ManagementDecidedAt)
}

func TestApprovalReviewSatisfied(t *testing.T) {
	am := &TimesheetProjectApprovalModel{
		LeadStatus:       ApprovalNotRequired,
		ManagerStatus:    ApprovalPending,
		ManagementStatus: ApprovalPending,
	}
	assert.False(t, am.ReviewSatisfied())

	am.ManagerStatus = ApprovalApproved
	assert.True(t, am.ReviewSatisfied())

	am.LeadStatus = ApprovalRejected
	assert.False(t, am.ReviewSatisfied())
}

func TestApprovalValidate(t *testing.T) {
	am := &TimesheetProjectApprovalModel{
		ID:               "apv-001",
		TimesheetID:      "ts-001",
		LeadStatus:       ApprovalPending,
		ManagerStatus:    ApprovalPending,
		ManagementStatus: ApprovalPending,
	}
	assert.NoError(t, am.Validate())

	am.ManagerStatus = ApprovalStatus("bogus")
	assert.Error(t, am.Validate())
}

func TestRolePermissions(t *testing.T) {
	assert.False(t, RoleEmployee.CanDecideLead())
	assert.True(t, RoleLead.CanDecideLead())
	assert.False(t, RoleLead.CanDecideManager())
	assert.True(t, RoleManager.CanDecideManager())
	assert.False(t, RoleManager.CanDecideManagement())
	assert.True(t, RoleManagement.CanDecideManagement())

	// 超级管理员绕过所有层级限制
	assert.True(t, RoleSuperAdmin.CanDecideLead())
	assert.True(t, RoleSuperAdmin.CanDecideManager())
	assert.True(t, RoleSuperAdmin.CanDecideManagement())
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, RoleManagement.IsAdmin())
}
