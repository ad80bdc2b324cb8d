package rbac

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// rule is one row of the policy table. applies selects the requests the rule owns;
// once a rule applies its decision is final, allow or deny.
type rule struct {
	name    string
	applies func(req *rbac.AccessRequest) bool
	decide  func(req *rbac.AccessRequest) *rbac.AccessDecision
}

// Engine evaluates the ordered policy table
type Engine struct {
	rules   []rule
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewEngine creates the policy engine. metrics may be nil.
func NewEngine(log *logger.Logger, metrics *monitoring.MetricsCollector) *Engine {
	return &Engine{
		rules:   policyTable(),
		logger:  log,
		metrics: metrics,
	}
}

// policyTable lists the rules in precedence order
func policyTable() []rule {
	return []rule{
		{name: rbac.RuleAdmin, applies: isAdmin, decide: decideAdmin},
		{name: rbac.RuleSelfAccount, applies: isSelfAccount, decide: decideSelfAccount},
		{name: rbac.RuleOwnerDoctor, applies: isOwnerDoctor, decide: decideOwnerDoctor},
		{name: rbac.RuleSubject, applies: isSubjectPatient, decide: decideSubjectPatient},
		{name: rbac.RulePharmacist, applies: isPharmacistCatalog, decide: decidePharmacist},
		{name: rbac.RuleDirectory, applies: isDirectoryLookup, decide: decideDirectory},
	}
}

// Decide returns the decision of the first applicable rule, or the default deny
func (e *Engine) Decide(ctx context.Context, req *rbac.AccessRequest) *rbac.AccessDecision {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	decision := defaultDeny()
	for _, r := range e.rules {
		if r.applies(req) {
			decision = r.decide(req)
			decision.Rule = r.name
			break
		}
	}

	if e.metrics != nil {
		e.metrics.RecordAccessDecision(string(req.Caller.Role), string(req.Resource.Kind), string(req.Action), decision.Allowed)
	}

	// List filtering denies routinely; only targeted denials are audited
	if !decision.Allowed && req.Action != rbac.ActionList {
		e.logger.Audit(ctx, req.Caller.ID, string(req.Action), string(req.Resource.Kind), false, map[string]interface{}{
			"resource_id": req.Resource.ID,
			"rule":        decision.Rule,
			"reason":      decision.Reason,
		})
	}

	return decision
}

// Authorize is Decide returning an authorization error on deny
func (e *Engine) Authorize(ctx context.Context, req *rbac.AccessRequest) error {
	return rbac.DenialError(e.Decide(ctx, req))
}

func allow(reason string) *rbac.AccessDecision {
	return &rbac.AccessDecision{Allowed: true, Reason: reason}
}

func deny(reason string) *rbac.AccessDecision {
	return &rbac.AccessDecision{Allowed: false, Reason: reason}
}

func defaultDeny() *rbac.AccessDecision {
	return &rbac.AccessDecision{Allowed: false, Rule: rbac.RuleDefault, Reason: rbac.ReasonNotAuthorized}
}

// Rule 1: admins may do anything except delete their own account.

func isAdmin(req *rbac.AccessRequest) bool {
	return req.Caller.Is(rbac.RoleAdmin)
}

func decideAdmin(req *rbac.AccessRequest) *rbac.AccessDecision {
	if req.Action == rbac.ActionDelete &&
		req.Resource.Kind == rbac.ResourceAccount &&
		req.Resource.ID == req.Caller.ID {
		return deny("administrators cannot delete their own account")
	}
	return allow("administrator")
}

// Rule 2: an account may read and edit its own profile.

func isSelfAccount(req *rbac.AccessRequest) bool {
	return req.Resource.Kind == rbac.ResourceAccount &&
		req.Resource.ID != "" &&
		req.Resource.ID == req.Caller.ID
}

func decideSelfAccount(req *rbac.AccessRequest) *rbac.AccessDecision {
	switch req.Action {
	case rbac.ActionRead, rbac.ActionUpdate:
		return allow("own account")
	}
	return deny(rbac.ReasonNotAuthorized)
}

// Rule 3: the authoring doctor of a clinical record.

func isOwnerDoctor(req *rbac.AccessRequest) bool {
	return req.Caller.Is(rbac.RoleDoctor) &&
		req.Resource.Kind.Clinical() &&
		req.Resource.OwnerID != "" &&
		req.Resource.OwnerID == req.Caller.ID
}

func decideOwnerDoctor(req *rbac.AccessRequest) *rbac.AccessDecision {
	switch req.Action {
	case rbac.ActionRead, rbac.ActionList, rbac.ActionUpdate, rbac.ActionUpdateStatus:
		return allow("record owner")
	case rbac.ActionCreate:
		if req.Resource.Kind == rbac.ResourcePrescription || req.Resource.Kind == rbac.ResourceMedicalRecord {
			return allow("record owner")
		}
	}
	return deny(rbac.ReasonNotAuthorized)
}

// Rule 4: the patient a clinical record is about.

func isSubjectPatient(req *rbac.AccessRequest) bool {
	return req.Caller.Is(rbac.RolePatient) &&
		req.Resource.Kind.Clinical() &&
		req.Resource.SubjectID != "" &&
		req.Resource.SubjectID == req.Caller.ID
}

func decideSubjectPatient(req *rbac.AccessRequest) *rbac.AccessDecision {
	switch req.Action {
	case rbac.ActionRead, rbac.ActionList:
		return allow("record subject")
	case rbac.ActionCreate:
		if req.Resource.Kind == rbac.ResourceAppointment {
			return allow("own booking")
		}
	case rbac.ActionUpdateStatus:
		if req.Resource.Kind == rbac.ResourceAppointment {
			if req.TargetStatus == string(types.StatusCancelled) {
				return allow("own cancellation")
			}
			return deny("patients may only cancel their appointments")
		}
	}
	return deny(rbac.ReasonNotAuthorized)
}

// Rule 5: pharmacists read prescriptions and inventory, write nothing.

func isPharmacistCatalog(req *rbac.AccessRequest) bool {
	return req.Caller.Is(rbac.RolePharmacist) &&
		(req.Resource.Kind == rbac.ResourcePrescription || req.Resource.Kind == rbac.ResourceInventory)
}

func decidePharmacist(req *rbac.AccessRequest) *rbac.AccessDecision {
	if req.Action.ReadOnly() {
		return allow("pharmacy catalog")
	}
	return deny("pharmacists have read-only access")
}

// Rule 6: account directory. Everyone sees doctors; doctors also see patients.

func isDirectoryLookup(req *rbac.AccessRequest) bool {
	if req.Resource.Kind != rbac.ResourceAccount || !req.Action.ReadOnly() {
		return false
	}
	switch req.Resource.OwnerRole {
	case rbac.RoleDoctor:
		return true
	case rbac.RolePatient:
		return req.Caller.Is(rbac.RoleDoctor)
	}
	return false
}

func decideDirectory(req *rbac.AccessRequest) *rbac.AccessDecision {
	return allow("directory")
}
