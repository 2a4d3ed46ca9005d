package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

func newVisibilityFixture(t *testing.T) (*fixture, VisibilityService) {
	t.Helper()
	f := newFixture(t)
	vis := NewVisibilityService(f.records, f.submissions, f.entries, f.resolver, nopLogger{})
	return f, vis
}

var (
	periodStart = time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestListVisible_LeadView(t *testing.T) {
	f, vis := newVisibilityFixture(t)
	ctx := context.Background()

	f.seedSubmission(t, "sub-emp", "emp-1", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 32})
	f.seedSubmission(t, "sub-lead", "lead-owner", approval.RoleLead,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})

	_, err := f.svc.SubmitForReview(ctx, "sub-emp")
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, "sub-lead")
	require.NoError(t, err)

	groups, err := vis.ListVisible(ctx, "lead-1", approval.RoleLead, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "proj-p", g.ScopeID)
	// The lead-owned submission has LEAD not required and never shows up.
	require.Len(t, g.Buckets[BucketReady], 1)
	assert.Equal(t, "sub-emp", g.Buckets[BucketReady][0].SubmissionID)
	assert.Equal(t, 1, g.Aggregates.Pending)
	assert.Equal(t, 40.0, g.Aggregates.TotalHours)
	assert.Equal(t, 32.0, g.Aggregates.BillableHours)

	// A lead of a different scope sees nothing.
	f.resolver.actors["lead-elsewhere"] = approval.Actor{
		ID: "lead-elsewhere", Role: approval.RoleLead,
		ScopeRoles: map[string][]approval.ScopeRole{"proj-z": {approval.ScopeRoleLead}},
	}
	groups, err = vis.ListVisible(ctx, "lead-elsewhere", approval.RoleLead, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestListVisible_ManagerBuckets(t *testing.T) {
	f, vis := newVisibilityFixture(t)
	ctx := context.Background()

	f.seedSubmission(t, "sub-approved", "emp-1", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})
	f.seedSubmission(t, "sub-waiting", "emp-2", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 16, BillableHours: 8})
	f.seedSubmission(t, "sub-rejected", "emp-3", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 8, BillableHours: 8})
	f.seedSubmission(t, "sub-leadowner", "lead-owner", approval.RoleLead,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})

	approvedIDs, err := f.svc.SubmitForReview(ctx, "sub-approved")
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, "sub-waiting")
	require.NoError(t, err)
	rejectedIDs, err := f.svc.SubmitForReview(ctx, "sub-rejected")
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, "sub-leadowner")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, DecideParams{RecordID: approvedIDs[0], ActorID: "lead-1",
		Action: approval.Action{Type: approval.ActionApprove, Tier: approval.TierLead}})
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, DecideParams{RecordID: rejectedIDs[0], ActorID: "lead-1",
		Action: approval.Action{Type: approval.ActionReject, Tier: approval.TierLead, Reason: "wrong codes"}})
	require.NoError(t, err)

	groups, err := vis.ListVisible(ctx, "mgr-1", approval.RoleManager, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	g := groups[0]

	// Lead-approved bucket: the lead-cleared employee record plus the
	// lead-owner record (LEAD never required).
	require.Len(t, g.Buckets[BucketLeadApproved], 2)
	// Bypass-eligible: lead still pending.
	require.Len(t, g.Buckets[BucketBypassEligible], 1)
	assert.Equal(t, "sub-waiting", g.Buckets[BucketBypassEligible][0].SubmissionID)
	// The lead-rejected record is back with its owner, not reviewable.
	total := 0
	for _, recs := range g.Buckets {
		total += len(recs)
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, g.Aggregates.Pending)
	assert.Equal(t, 96.0, g.Aggregates.TotalHours)
	assert.Equal(t, 88.0, g.Aggregates.BillableHours)
}

func TestListVisible_ManagementBuckets(t *testing.T) {
	f, vis := newVisibilityFixture(t)
	ctx := context.Background()

	f.seedSubmission(t, "sub-emp", "emp-1", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})
	f.seedSubmission(t, "sub-mgr", "mgr-owner", approval.RoleManager,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 24})
	f.seedSubmission(t, "sub-stuck", "emp-2", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-q", TotalHours: 8, BillableHours: 8})

	empIDs, err := f.svc.SubmitForReview(ctx, "sub-emp")
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, "sub-mgr")
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, "sub-stuck")
	require.NoError(t, err)

	// Clear the employee record up to the management tier.
	_, err = f.svc.Decide(ctx, DecideParams{RecordID: empIDs[0], ActorID: "lead-1",
		Action: approval.Action{Type: approval.ActionApprove, Tier: approval.TierLead}})
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, DecideParams{RecordID: empIDs[0], ActorID: "mgr-1",
		Action: approval.Action{Type: approval.ActionApprove, Tier: approval.TierManager}})
	require.NoError(t, err)

	groups, err := vis.ListVisible(ctx, "mgmt-1", approval.RoleManagement, periodStart, periodEnd)
	require.NoError(t, err)
	// proj-q's record has its lead tier pending, so management never sees
	// it and the group does not materialize.
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "proj-p", g.ScopeID)

	require.Len(t, g.Buckets[BucketManagerApproved], 1)
	assert.Equal(t, "sub-emp", g.Buckets[BucketManagerApproved][0].SubmissionID)
	require.Len(t, g.Buckets[BucketDirect], 1)
	assert.Equal(t, "sub-mgr", g.Buckets[BucketDirect][0].SubmissionID)
	assert.Equal(t, 2, g.Aggregates.Pending)
}

func TestListVisible_EmployeeHasNoQueue(t *testing.T) {
	_, vis := newVisibilityFixture(t)
	_, err := vis.ListVisible(context.Background(), "emp-1", approval.RoleEmployee, periodStart, periodEnd)
	assert.ErrorIs(t, err, approval.ErrDenied)
}

func TestListVisible_ClaimedRoleMustMatchDirectory(t *testing.T) {
	f, vis := newVisibilityFixture(t)
	ctx := context.Background()

	// A manager-owner submission lands straight in the management queue, so
	// it is exactly what a spoofed role claim would try to read.
	f.seedSubmission(t, "sub-mgr", "mgr-owner", approval.RoleManager,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})
	_, err := f.svc.SubmitForReview(ctx, "sub-mgr")
	require.NoError(t, err)

	f.resolver.actors["emp-x"] = approval.Actor{ID: "emp-x", Role: approval.RoleEmployee}

	// An employee claiming the management view is denied, not filtered.
	_, err = vis.ListVisible(ctx, "emp-x", approval.RoleManagement, periodStart, periodEnd)
	assert.ErrorIs(t, err, approval.ErrDenied)

	// A real reviewer claiming a higher tier's view is denied too.
	_, err = vis.ListVisible(ctx, "lead-1", approval.RoleManagement, periodStart, periodEnd)
	assert.ErrorIs(t, err, approval.ErrDenied)

	// The directory-backed management viewer still sees the record.
	groups, err := vis.ListVisible(ctx, "mgmt-1", approval.RoleManagement, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Buckets[BucketDirect], 1)
}

func TestListVisible_ResubmissionShowsOnlyCurrentRevision(t *testing.T) {
	f, vis := newVisibilityFixture(t)
	ctx := context.Background()

	f.seedSubmission(t, "sub-1", "emp-1", approval.RoleEmployee,
		approval.ScopeHours{ScopeID: "proj-p", TotalHours: 40, BillableHours: 40})

	ids, err := f.svc.SubmitForReview(ctx, "sub-1")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, DecideParams{RecordID: ids[0], ActorID: "lead-1",
		Action: approval.Action{Type: approval.ActionReject, Tier: approval.TierLead, Reason: "redo"}})
	require.NoError(t, err)
	_, err = f.svc.Resubmit(ctx, "sub-1")
	require.NoError(t, err)

	groups, err := vis.ListVisible(ctx, "lead-1", approval.RoleLead, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	ready := groups[0].Buckets[BucketReady]
	require.Len(t, ready, 1)
	assert.Equal(t, 2, ready[0].Revision)
	assert.Equal(t, approval.StatusPending, ready[0].Lead.Status)
}
