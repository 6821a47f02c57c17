package login

import (
	"context"

	"github.com/cardinalsites/samlauth/pkg/attributes"
	"github.com/cardinalsites/samlauth/pkg/authz"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/rolemap"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// PolicySource supplies the current policies at evaluation time. The
// configuration store implements this.
type PolicySource interface {
	RestrictionPolicy() authz.RestrictionPolicy
	RoleMappingPolicy() rolemap.Policy
}

// ClientFactory builds a fresh workgroup client. Sync calls it once per
// login so each evaluation owns its own memoization cache.
type ClientFactory func() workgroup.Client

// SyncService performs the authorization check and role mapping for one SSO
// login event.
type SyncService struct {
	policies  PolicySource
	evaluator *authz.Evaluator
	resolver  *rolemap.Resolver
	newClient ClientFactory
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewSyncService creates a new login sync service
func NewSyncService(policies PolicySource, newClient ClientFactory, logger *observability.Logger, metrics *observability.Metrics) *SyncService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &SyncService{
		policies:  policies,
		evaluator: authz.NewEvaluator(logger),
		resolver:  rolemap.NewResolver(logger),
		newClient: newClient,
		logger:    logger.WithField("component", "login_sync"),
		metrics:   metrics,
	}
}

// Sync authorizes the account and reconciles its roles. It returns whether
// the account changed. On authz.ErrUnauthorized the account is untouched
// and the caller must abort the login.
func (s *SyncService) Sync(ctx context.Context, account *Account, attrs attributes.Bag) (bool, error) {
	workgroups := s.newClient()

	if err := s.evaluator.Authorize(ctx, account.Name, attrs, s.policies.RestrictionPolicy(), workgroups); err != nil {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("denied").Inc()
		}
		return false, err
	}
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("allowed").Inc()
	}

	changed := s.syncAffiliations(account, attrs)

	roles, rolesChanged := s.resolver.Resolve(ctx, account.Name, account.Roles, attrs, s.policies.RoleMappingPolicy(), workgroups)
	if rolesChanged {
		account.Roles = roles
		changed = true
		if s.metrics != nil {
			s.metrics.RoleChangesTotal.Inc()
		}
		s.logger.WithFields(map[string]interface{}{
			"sunetid": account.Name,
			"roles":   roles,
		}).Info("updated account roles")
	}

	return changed, nil
}

// syncAffiliations copies the affiliation attribute onto the account.
func (s *SyncService) syncAffiliations(account *Account, attrs attributes.Bag) bool {
	affiliations := attrs.Values(attributes.Affiliation)
	if equalStrings(account.Affiliations, affiliations) {
		return false
	}
	account.Affiliations = affiliations
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
