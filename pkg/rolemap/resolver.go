package rolemap

import (
	"context"
	"sort"

	"github.com/cardinalsites/samlauth/pkg/attributes"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// affiliationRoles is the fixed mapping from affiliation attribute values to
// site roles, applied before any configured rule.
var affiliationRoles = []struct {
	affiliation string
	role        string
}{
	{"staff", "stanford_staff"},
	{"faculty", "stanford_faculty"},
	{"student", "stanford_student"},
}

// Resolver computes role-set changes from a Policy.
type Resolver struct {
	logger *observability.Logger
}

// NewResolver creates a new role mapping resolver
func NewResolver(logger *observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Resolver{logger: logger.WithField("component", "rolemap")}
}

// Resolve returns the role set the identity should hold and whether it
// differs from the current one. The workgroup client is consulted only when
// the policy is in directory mode, and at most once per call.
func (r *Resolver) Resolve(ctx context.Context, name string, current []string, attrs attributes.Bag, policy Policy, workgroups workgroup.Client) ([]string, bool) {
	if policy.Reevaluate == ReevaluateNone {
		return current, false
	}

	roles := newRoleAccumulator()
	if policy.Reevaluate != ReevaluateAll {
		// Keep the roles the account already holds.
		for _, role := range current {
			roles.add(role)
		}
	}

	// Affiliation roles come first.
	for _, mapping := range affiliationRoles {
		if attrs.Has(attributes.Affiliation, mapping.affiliation) {
			roles.add(mapping.role)
		}
	}

	if policy.WorkgroupLookup {
		// One directory fetch, reused across every rule.
		memberships := workgroups.UserWorkgroups(ctx, name)
		member := make(map[string]bool, len(memberships))
		for _, group := range memberships {
			member[group] = true
		}
		for _, rule := range policy.Rules {
			if member[rule.Value] {
				roles.add(rule.Role)
			}
		}
		return roles.list(), changed(current, roles)
	}

	// Attribute mode: match rule values against the SAML data directly.
	for _, rule := range policy.Rules {
		rule = rule.Normalize()
		if attrs.Matches(rule.Attribute, rule.Value) {
			roles.add(rule.Role)
		}
	}
	return roles.list(), changed(current, roles)
}

// roleAccumulator builds a role set preserving first-add order.
type roleAccumulator struct {
	order []string
	seen  map[string]bool
}

func newRoleAccumulator() *roleAccumulator {
	return &roleAccumulator{seen: make(map[string]bool)}
}

func (a *roleAccumulator) add(role string) {
	if role == "" || a.seen[role] {
		return
	}
	a.seen[role] = true
	a.order = append(a.order, role)
}

func (a *roleAccumulator) list() []string {
	return a.order
}

// changed reports whether the accumulated set differs from the original
// role set, ignoring order.
func changed(current []string, roles *roleAccumulator) bool {
	if len(current) != len(roles.order) {
		return true
	}
	before := append([]string(nil), current...)
	after := append([]string(nil), roles.order...)
	sort.Strings(before)
	sort.Strings(after)
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}
