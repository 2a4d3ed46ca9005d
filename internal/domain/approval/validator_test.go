package approval

import (
	"errors"
	"testing"
	"time"
)

func scopedActor(id string, role Role, scopeID string, scopeRoles ...ScopeRole) Actor {
	return Actor{ID: id, Role: role, ScopeRoles: map[string][]ScopeRole{scopeID: scopeRoles}}
}

func employeeRecord() *ApprovalRecord {
	return NewRecord("sub-1", "scope-1", "emp-1", RoleEmployee, 1, testNow)
}

func TestValidate_ApproveChain(t *testing.T) {
	rec := employeeRecord()
	lead := scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead)
	manager := scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager)
	management := Actor{ID: "mgmt-1", Role: RoleManagement}

	tr, err := Validate(rec, lead, Action{Type: ActionApprove, Tier: TierLead}, testNow)
	if err != nil {
		t.Fatalf("lead approve: %v", err)
	}
	rec = tr.Record
	if rec.Lead.Status != StatusApproved || rec.Lead.ActorID != "lead-1" {
		t.Fatalf("lead tier = %+v", rec.Lead)
	}

	tr, err = Validate(rec, manager, Action{Type: ActionApprove, Tier: TierManager}, testNow)
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	rec = tr.Record
	if tr.Bypassed {
		t.Error("ordinary approval flagged as bypass")
	}

	tr, err = Validate(rec, management, Action{Type: ActionApprove, Tier: TierManagement}, testNow)
	if err != nil {
		t.Fatalf("management approve: %v", err)
	}
	rec = tr.Record
	if rec.Overall != StateFrozen || rec.FrozenAt == nil {
		t.Fatalf("record not frozen: state=%s frozen_at=%v", rec.Overall, rec.FrozenAt)
	}

	// Nothing moves after the freeze.
	_, err = Validate(rec, management, Action{Type: ActionReject, Tier: TierManagement, Reason: "too late"}, testNow)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("action on frozen record: err = %v, want ErrConflict", err)
	}
}

func TestValidate_ManagerBypass(t *testing.T) {
	rec := employeeRecord()
	manager := scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager)

	tr, err := Validate(rec, manager, Action{Type: ActionApprove, Tier: TierManager}, testNow)
	if err != nil {
		t.Fatalf("bypass approve: %v", err)
	}
	if !tr.Bypassed {
		t.Error("expected bypass flag on transition")
	}
	if tr.Record.Lead.Status != StatusNotRequired {
		t.Errorf("lead tier = %s, want NOT_REQUIRED after bypass", tr.Record.Lead.Status)
	}
	if !tr.Record.Bypassed {
		t.Error("expected durable bypass marker on record")
	}
}

func TestValidate_BypassBySecondaryManager(t *testing.T) {
	rec := employeeRecord()
	secondary := scopedActor("lead-2", RoleLead, "scope-1", ScopeRoleSecondaryManager)

	tr, err := Validate(rec, secondary, Action{Type: ActionApprove, Tier: TierManager}, testNow)
	if err != nil {
		t.Fatalf("secondary manager approve: %v", err)
	}
	if !tr.Bypassed {
		t.Error("expected bypass flag")
	}
}

func TestValidate_NoBypassAfterLeadRejection(t *testing.T) {
	rec := employeeRecord()
	lead := scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead)
	manager := scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager)

	tr, err := Validate(rec, lead, Action{Type: ActionReject, Tier: TierLead, Reason: "missing description"}, testNow)
	if err != nil {
		t.Fatalf("lead reject: %v", err)
	}
	rec = tr.Record

	_, err = Validate(rec, manager, Action{Type: ActionApprove, Tier: TierManager}, testNow)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("bypass over rejected lead: err = %v, want ErrConflict", err)
	}
}

func TestValidate_RejectResetsLaterTiers(t *testing.T) {
	rec := employeeRecord()
	lead := scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead)
	manager := scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager)

	tr, err := Validate(rec, lead, Action{Type: ActionApprove, Tier: TierLead}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	tr, err = Validate(tr.Record, manager, Action{Type: ActionApprove, Tier: TierManager}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	rec = tr.Record

	// Manager reconsiders before management signs off.
	tr, err = Validate(rec, manager, Action{Type: ActionReject, Tier: TierManager, Reason: "hours overstated"}, testNow)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("rejecting an approved tier: err = %v, want ErrConflict", err)
	}

	// Rejection at LEAD on a fresh record resets everything at or after it.
	rec = employeeRecord()
	tr, err = Validate(rec, lead, Action{Type: ActionReject, Tier: TierLead, Reason: "missing description"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	rec = tr.Record
	if rec.Overall != StateLeadRejected {
		t.Errorf("overall = %s, want LEAD_REJECTED", rec.Overall)
	}
	if rec.Lead.Status != StatusRejected || rec.Lead.Reason != "missing description" {
		t.Errorf("lead tier = %+v", rec.Lead)
	}
	if rec.Manager.Status != StatusPending || rec.Management.Status != StatusPending {
		t.Errorf("later tiers not reset: manager=%s management=%s", rec.Manager.Status, rec.Management.Status)
	}

	// Rejecting the already-rejected tier is a conflict, not a no-op.
	_, err = Validate(rec, lead, Action{Type: ActionReject, Tier: TierLead, Reason: "again"}, testNow)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("double reject: err = %v, want ErrConflict", err)
	}
}

func TestValidate_RejectPreservesNotRequiredTiers(t *testing.T) {
	rec := NewRecord("sub-1", "scope-1", "lead-owner", RoleLead, 1, testNow)
	manager := scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager)

	tr, err := Validate(rec, manager, Action{Type: ActionReject, Tier: TierManager, Reason: "wrong project"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Record.Lead.Status != StatusNotRequired {
		t.Errorf("lead tier = %s, want NOT_REQUIRED untouched", tr.Record.Lead.Status)
	}
	if tr.Record.Management.Status != StatusPending {
		t.Errorf("management tier = %s, want PENDING", tr.Record.Management.Status)
	}
}

func TestValidate_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		actor  Actor
		action Action
		wantOK bool
	}{
		{
			"employee cannot approve lead tier",
			scopedActor("emp-2", RoleEmployee, "scope-1"),
			Action{Type: ActionApprove, Tier: TierLead},
			false,
		},
		{
			"lead of another scope cannot approve",
			scopedActor("lead-9", RoleLead, "scope-9", ScopeRoleLead),
			Action{Type: ActionApprove, Tier: TierLead},
			false,
		},
		{
			"lead with scope role approves lead tier",
			scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead),
			Action{Type: ActionApprove, Tier: TierLead},
			true,
		},
		{
			"manager cannot approve management tier",
			scopedActor("mgr-1", RoleManager, "scope-1", ScopeRoleManager),
			Action{Type: ActionApprove, Tier: TierManagement},
			false,
		},
		{
			"super admin approves lead tier anywhere",
			Actor{ID: "root", Role: RoleSuperAdmin},
			Action{Type: ActionApprove, Tier: TierLead},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(employeeRecord(), tt.actor, tt.action, testNow)
			if tt.wantOK && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrDenied) {
				t.Errorf("Validate() error = %v, want ErrDenied", err)
			}
		})
	}
}

func TestValidate_ValidationErrors(t *testing.T) {
	lead := scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead)

	tests := []struct {
		name   string
		action Action
	}{
		{"reject without reason", Action{Type: ActionReject, Tier: TierLead}},
		{"unknown tier", Action{Type: ActionApprove, Tier: Tier("CEO")}},
		{"unknown action", Action{Type: ActionType("ESCALATE"), Tier: TierLead}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(employeeRecord(), lead, tt.action, testNow)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidate_FreezeIsManagementApprove(t *testing.T) {
	rec := NewRecord("sub-1", "scope-1", "mgr-owner", RoleManager, 1, testNow)
	management := Actor{ID: "mgmt-1", Role: RoleManagement}

	tr, err := Validate(rec, management, Action{Type: ActionFreeze}, testNow)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if tr.Tier != TierManagement || tr.ToStatus != StatusApproved {
		t.Errorf("freeze transition = %s %s->%s", tr.Tier, tr.FromStatus, tr.ToStatus)
	}
	if !tr.Record.Frozen() {
		t.Error("record not frozen after FREEZE")
	}
}

func TestValidate_InputRecordNotMutated(t *testing.T) {
	rec := employeeRecord()
	lead := scopedActor("lead-1", RoleLead, "scope-1", ScopeRoleLead)

	before := *rec
	if _, err := Validate(rec, lead, Action{Type: ActionApprove, Tier: TierLead}, testNow.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if rec.Lead != before.Lead || rec.Overall != before.Overall {
		t.Error("Validate mutated its input record")
	}
}
