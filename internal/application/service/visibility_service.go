package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hourglass-hq/timesheet-approvals/internal/application/port"
	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

// Bucket partitions a reviewer's queue the way the reviewer thinks about it.
type Bucket string

const (
	// BucketReady holds a lead's reviewable records.
	BucketReady Bucket = "ready"
	// BucketLeadApproved holds manager-view records whose lead tier is
	// cleared (approved or not required).
	BucketLeadApproved Bucket = "lead_approved"
	// BucketBypassEligible holds manager-view records whose lead tier is
	// still pending; approving one triggers the documented bypass.
	BucketBypassEligible Bucket = "bypass_eligible"
	// BucketManagerApproved holds management-view records that came up
	// through the manager tier.
	BucketManagerApproved Bucket = "manager_approved"
	// BucketDirect holds management-view records submitted by managers,
	// which skip the lower tiers entirely.
	BucketDirect Bucket = "direct"
)

// Aggregates are the read-only per-group counters, computed over the tier
// the viewer reviews.
type Aggregates struct {
	Pending       int     `json:"pending"`
	Approved      int     `json:"approved"`
	Rejected      int     `json:"rejected"`
	TotalHours    float64 `json:"total_hours"`
	BillableHours float64 `json:"billable_hours"`
}

// Group is one (scope, period) cell of a reviewer's view.
type Group struct {
	ScopeID     string                                `json:"scope_id"`
	PeriodStart time.Time                             `json:"period_start"`
	PeriodEnd   time.Time                             `json:"period_end"`
	Buckets     map[Bucket][]*approval.ApprovalRecord `json:"buckets"`
	Aggregates  Aggregates                            `json:"aggregates"`
}

// VisibilityService builds role-scoped, grouped read views over the record
// store. Reads take no locks; a record may change right after being read,
// which is why Decide re-validates at write time.
type VisibilityService interface {
	ListVisible(ctx context.Context, viewerID string, viewerRole approval.Role, periodStart, periodEnd time.Time) ([]Group, error)
}

type visibilityServiceImpl struct {
	records     port.RecordStore
	submissions port.SubmissionStore
	entries     port.EntrySource
	identity    port.IdentityResolver
	logger      Logger
}

// NewVisibilityService creates a new VisibilityService.
func NewVisibilityService(
	records port.RecordStore,
	submissions port.SubmissionStore,
	entries port.EntrySource,
	identity port.IdentityResolver,
	logger Logger,
) VisibilityService {
	return &visibilityServiceImpl{
		records:     records,
		submissions: submissions,
		entries:     entries,
		identity:    identity,
		logger:      logger,
	}
}

// reviewTiers maps the viewer role to the tier whose statuses feed the
// group counters.
var reviewTiers = map[approval.Role]approval.Tier{
	approval.RoleLead:       approval.TierLead,
	approval.RoleManager:    approval.TierManager,
	approval.RoleManagement: approval.TierManagement,
	approval.RoleSuperAdmin: approval.TierManagement,
}

// ListVisible returns the records the viewer may review, grouped by
// (scope, period) with per-group aggregates.
func (s *visibilityServiceImpl) ListVisible(ctx context.Context, viewerID string, viewerRole approval.Role, periodStart, periodEnd time.Time) ([]Group, error) {
	reviewTier, ok := reviewTiers[viewerRole]
	if !ok {
		return nil, fmt.Errorf("%w: role %s has no review queue", approval.ErrDenied, viewerRole)
	}

	viewer, err := s.identity.Resolve(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("resolve viewer %s: %w", viewerID, err)
	}
	// The claimed role only selects the view; the directory decides what the
	// viewer actually is. A mismatch is a spoof attempt, not a view choice.
	if viewer.Role != viewerRole {
		return nil, fmt.Errorf("%w: viewer %s holds role %s, not %s", approval.ErrDenied, viewerID, viewer.Role, viewerRole)
	}

	records, err := s.records.ListCurrentByPeriod(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	type groupKey struct {
		scopeID string
		start   time.Time
	}
	groups := make(map[groupKey]*Group)
	subCache := make(map[string]*approval.Submission)
	hoursCache := make(map[string]map[string]approval.ScopeHours)

	for _, rec := range records {
		bucket, visible := s.classify(viewer, viewerRole, rec)
		if !visible {
			continue
		}

		sub, err := s.submission(ctx, subCache, rec.SubmissionID)
		if err != nil {
			return nil, err
		}

		key := groupKey{scopeID: rec.ScopeID, start: sub.PeriodStart}
		g, ok := groups[key]
		if !ok {
			g = &Group{
				ScopeID:     rec.ScopeID,
				PeriodStart: sub.PeriodStart,
				PeriodEnd:   sub.PeriodEnd,
				Buckets:     make(map[Bucket][]*approval.ApprovalRecord),
			}
			groups[key] = g
		}
		g.Buckets[bucket] = append(g.Buckets[bucket], rec)

		switch rec.TierDecisionFor(reviewTier).Status {
		case approval.StatusPending:
			g.Aggregates.Pending++
		case approval.StatusApproved:
			g.Aggregates.Approved++
		case approval.StatusRejected:
			g.Aggregates.Rejected++
		}

		h, err := s.scopeHours(ctx, hoursCache, rec.SubmissionID)
		if err != nil {
			return nil, err
		}
		if sh, ok := h[rec.ScopeID]; ok {
			g.Aggregates.TotalHours += sh.TotalHours
			g.Aggregates.BillableHours += sh.BillableHours
		}
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScopeID != out[j].ScopeID {
			return out[i].ScopeID < out[j].ScopeID
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out, nil
}

// classify decides whether the viewer sees the record and in which bucket.
func (s *visibilityServiceImpl) classify(viewer approval.Actor, viewerRole approval.Role, rec *approval.ApprovalRecord) (Bucket, bool) {
	switch viewerRole {
	case approval.RoleLead:
		if !viewer.HasScopeRole(rec.ScopeID, approval.ScopeRoleLead) {
			return "", false
		}
		if rec.OwnerRoleAtSubmission != approval.RoleEmployee {
			return "", false
		}
		// Records where LEAD was never required, including bypassed ones,
		// are not the lead's business.
		if rec.Lead.Status == approval.StatusNotRequired {
			return "", false
		}
		return BucketReady, true

	case approval.RoleManager:
		if !viewer.HasScopeRole(rec.ScopeID, approval.ScopeRoleManager) &&
			!viewer.HasScopeRole(rec.ScopeID, approval.ScopeRoleSecondaryManager) {
			return "", false
		}
		if rec.OwnerRoleAtSubmission != approval.RoleEmployee && rec.OwnerRoleAtSubmission != approval.RoleLead {
			return "", false
		}
		if rec.Manager.Status == approval.StatusNotRequired {
			return "", false
		}
		switch rec.Lead.Status {
		case approval.StatusPending:
			return BucketBypassEligible, true
		case approval.StatusApproved, approval.StatusNotRequired:
			return BucketLeadApproved, true
		default:
			// A lead rejection sends the record back to its owner; there is
			// nothing for the manager to act on until resubmission.
			return "", false
		}

	case approval.RoleManagement, approval.RoleSuperAdmin:
		if rec.Management.Status != approval.StatusPending && rec.Management.Status != approval.StatusApproved {
			return "", false
		}
		if !rec.EarlierTiersCleared(approval.TierManagement) {
			return "", false
		}
		switch rec.OwnerRoleAtSubmission {
		case approval.RoleEmployee, approval.RoleLead:
			return BucketManagerApproved, true
		case approval.RoleManager:
			return BucketDirect, true
		default:
			// Self-approved management submissions freeze at submit and are
			// audit-trail material, not a review queue item.
			return "", false
		}
	}
	return "", false
}

func (s *visibilityServiceImpl) submission(ctx context.Context, cache map[string]*approval.Submission, id string) (*approval.Submission, error) {
	if sub, ok := cache[id]; ok {
		return sub, nil
	}
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	cache[id] = sub
	return sub, nil
}

func (s *visibilityServiceImpl) scopeHours(ctx context.Context, cache map[string]map[string]approval.ScopeHours, submissionID string) (map[string]approval.ScopeHours, error) {
	if h, ok := cache[submissionID]; ok {
		return h, nil
	}
	hours, err := s.entries.ScopeHours(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("scope hours for %s: %w", submissionID, err)
	}
	byScope := make(map[string]approval.ScopeHours, len(hours))
	for _, h := range hours {
		byScope[h.ScopeID] = h
	}
	cache[submissionID] = byScope
	return byScope, nil
}
