package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardinalsites/samlauth/pkg/attributes"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// ErrUnauthorized is returned when the restriction policy rejects a login.
// It is the single user-visible failure this engine produces.
var ErrUnauthorized = errors.New("unauthorized login attempt")

// RestrictionPolicy controls who may log in through SSO. When Restrict is
// false every identity is authorized and the allow lists are ignored.
type RestrictionPolicy struct {
	Restrict            bool     `json:"restrict" yaml:"restrict"`
	AllowedUsers        []string `json:"users" yaml:"users"`
	AllowedAffiliations []string `json:"affiliations" yaml:"affiliations"`
	AllowedGroups       []string `json:"groups" yaml:"groups"`
}

// Evaluator applies a RestrictionPolicy to an authenticating identity.
type Evaluator struct {
	logger *observability.Logger
}

// NewEvaluator creates a new authorization evaluator
func NewEvaluator(logger *observability.Logger) *Evaluator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Evaluator{logger: logger.WithField("component", "authz")}
}

// Authorize checks the identity against the policy and returns
// ErrUnauthorized when the login must be rejected. Checks short-circuit in
// order: restriction disabled, user allow list, affiliations, entitlement
// intersection, and finally a workgroup directory lookup.
func (e *Evaluator) Authorize(ctx context.Context, name string, attrs attributes.Bag, policy RestrictionPolicy, workgroups workgroup.Client) error {
	if e.isAllowed(ctx, name, attrs, policy, workgroups) {
		return nil
	}
	e.logger.WithField("sunetid", name).Warn("rejected login")
	return fmt.Errorf("user %q: %w", name, ErrUnauthorized)
}

func (e *Evaluator) isAllowed(ctx context.Context, name string, attrs attributes.Bag, policy RestrictionPolicy, workgroups workgroup.Client) bool {
	// All users are allowed.
	if !policy.Restrict {
		return true
	}

	// Simple sunetid check.
	for _, user := range policy.AllowedUsers {
		if user == name {
			return true
		}
	}

	// Staff, faculty, student, member check.
	for _, affiliation := range attrs.Values(attributes.Affiliation) {
		for _, allowed := range policy.AllowedAffiliations {
			if affiliation == allowed {
				return true
			}
		}
	}

	// The entitlement attribute carries the workgroup data, but its release
	// depends on the identity provider's policy. Absence means no match,
	// not an error.
	for _, entitlement := range attrs.Values(attributes.Entitlement) {
		for _, group := range policy.AllowedGroups {
			if entitlement == group {
				return true
			}
		}
	}

	// Fall back to the workgroup API for the allowed groups.
	return workgroups.UserInAnyGroup(ctx, policy.AllowedGroups, name)
}
