package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/rolemap"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

var sunetPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// ErrUserExists is returned when creating an account whose sunetid is
// already provisioned.
var ErrUserExists = errors.New("user already exists")

// MappingStore is the slice of the policy store the provisioner writes to.
type MappingStore interface {
	AddMapping(rule rolemap.Rule) (bool, error)
}

// CreateUserRequest carries the inputs for provisioning a new account.
// Name and Email default from the sunetid when left empty.
type CreateUserRequest struct {
	SunetID string   `json:"sunetid"`
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// Provisioner creates accounts ahead of their first SSO login and manages
// entitlement role mappings.
type Provisioner struct {
	store     *Store
	policies  MappingStore
	newClient func() workgroup.Client
	logger    *observability.Logger
}

// NewProvisioner creates a new provisioner. Each request gets its own
// directory client from the factory, so membership and validity answers are
// never served from a previous request's cache. The factory may be nil when
// no API certificate is configured; sunetid existence checks are then
// skipped.
func NewProvisioner(store *Store, policies MappingStore, newClient func() workgroup.Client, logger *observability.Logger) *Provisioner {
	return &Provisioner{
		store:     store,
		policies:  policies,
		newClient: newClient,
		logger:    logger,
	}
}

// CreateUser validates the request and provisions the account with a random
// initial password. Requested roles that are not registered are dropped with
// a warning rather than failing the whole request.
func (p *Provisioner) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	sunetid := strings.ToLower(strings.TrimSpace(req.SunetID))
	if !sunetPattern.MatchString(sunetid) {
		return nil, fmt.Errorf("invalid sunetid %q: must be lowercase letters and digits", req.SunetID)
	}

	if p.newClient != nil {
		if directory := p.newClient(); directory.ConnectionSuccessful(ctx) {
			if !directory.IsSunetValid(ctx, sunetid) {
				return nil, fmt.Errorf("sunetid %q not found in the directory", sunetid)
			}
		}
	}

	if _, err := p.store.GetUser(ctx, sunetid); err == nil {
		return nil, fmt.Errorf("user %q: %w", sunetid, ErrUserExists)
	}

	known, err := p.store.Roles(ctx)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]bool, len(known))
	for _, role := range known {
		knownSet[role] = true
	}
	var roles []string
	for _, role := range req.Roles {
		if !knownSet[role] {
			p.logger.WithField("role", role).Warn("Skipping unknown role")
			continue
		}
		roles = append(roles, role)
	}

	user := &User{
		SunetID: sunetid,
		Name:    req.Name,
		Email:   req.Email,
		Roles:   roles,
	}
	if user.Name == "" {
		user.Name = sunetid
	}
	if user.Email == "" {
		user.Email = sunetid + "@stanford.edu"
	}

	if err := p.store.CreateUser(ctx, user, uuid.New().String()); err != nil {
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"sunetid": user.SunetID,
		"roles":   user.Roles,
	}).Info("Provisioned user")
	return user, nil
}

// MapEntitlementRole adds a role mapping rule granting the role to every
// user presenting the entitlement. The role must already be registered.
func (p *Provisioner) MapEntitlementRole(ctx context.Context, entitlement, role string) error {
	entitlement = strings.TrimSpace(entitlement)
	role = strings.TrimSpace(role)
	if entitlement == "" || role == "" {
		return fmt.Errorf("entitlement and role are both required")
	}

	known, err := p.store.Roles(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, candidate := range known {
		if candidate == role {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown role %q", role)
	}

	added, err := p.policies.AddMapping(rolemap.Rule{Role: role, Value: entitlement})
	if err != nil {
		return err
	}
	if !added {
		p.logger.WithFields(map[string]interface{}{
			"role":        role,
			"entitlement": entitlement,
		}).Info("Mapping already present")
	}
	return nil
}
