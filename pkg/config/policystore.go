package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cardinalsites/samlauth/pkg/authz"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/rolemap"
	"github.com/cardinalsites/samlauth/pkg/saml"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// ValidAffiliations is the fixed set of affiliation values the restriction
// policy may allow.
var ValidAffiliations = []string{"affiliate", "staff", "student", "faculty", "member"}

var sunetPattern = regexp.MustCompile(`[^a-z0-9]`)

// Document is the persisted settings document.
type Document struct {
	Allowed     authz.RestrictionPolicy `yaml:"allowed" json:"allowed"`
	RoleMapping RoleMappingDocument     `yaml:"role_mapping" json:"role_mapping"`
	SAML        saml.Config             `yaml:"saml" json:"-"`
}

// RoleMappingDocument is the role mapping section of the document.
type RoleMappingDocument struct {
	Reevaluate   rolemap.ReevaluateMode `yaml:"reevaluate" json:"reevaluate"`
	Mapping      []rolemap.Rule         `yaml:"mapping" json:"mapping"`
	WorkgroupAPI WorkgroupAPISettings   `yaml:"workgroup_api" json:"workgroup_api"`
}

// WorkgroupAPISettings holds the directory credentials and timeout.
type WorkgroupAPISettings struct {
	Cert           string `yaml:"cert" json:"cert"`
	Key            string `yaml:"key" json:"key"`
	TimeoutSeconds int    `yaml:"timeout" json:"timeout"`
}

// PolicyStore owns the policy document. All reads and writes are
// synchronized; writes persist the document back to disk.
type PolicyStore struct {
	path   string
	logger *observability.Logger

	mu  sync.RWMutex
	doc Document
}

// LoadPolicyStore reads the policy document from path. A missing file
// yields the default document (unrestricted access, grant-new role
// mapping).
func LoadPolicyStore(path string, logger *observability.Logger) (*PolicyStore, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	store := &PolicyStore{
		path:   path,
		logger: logger.WithField("component", "policy_store"),
		doc:    defaultDocument(),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return store, nil
	}
	if err := store.reload(); err != nil {
		return nil, err
	}
	return store, nil
}

func defaultDocument() Document {
	return Document{
		RoleMapping: RoleMappingDocument{Reevaluate: rolemap.ReevaluateNew},
	}
}

// reload re-reads the document from disk.
func (s *PolicyStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	doc := defaultDocument()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}
	if !doc.RoleMapping.Reevaluate.Valid() {
		return fmt.Errorf("invalid reevaluate mode %q", doc.RoleMapping.Reevaluate)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Watch reloads the document whenever the file changes, until the context
// is cancelled. Reload failures are logged and leave the previous document
// in effect.
func (s *PolicyStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory; editors replace files rather than write them in
	// place.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.WithError(err).Error("policy reload failed, keeping previous policies")
				continue
			}
			s.logger.Info("policy document reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("policy watcher error")
		}
	}
}

// Document returns a copy of the current document.
func (s *PolicyStore) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyDocument()
}

// RestrictionPolicy returns the current authentication restriction policy.
func (s *PolicyStore) RestrictionPolicy() authz.RestrictionPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy := s.doc.Allowed
	policy.AllowedUsers = append([]string(nil), policy.AllowedUsers...)
	policy.AllowedAffiliations = append([]string(nil), policy.AllowedAffiliations...)
	policy.AllowedGroups = append([]string(nil), policy.AllowedGroups...)
	return policy
}

// RoleMappingPolicy returns the current role mapping policy. Directory mode
// is driven by whether a client certificate is configured.
func (s *PolicyStore) RoleMappingPolicy() rolemap.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rolemap.Policy{
		Reevaluate:      s.doc.RoleMapping.Reevaluate,
		WorkgroupLookup: s.doc.RoleMapping.WorkgroupAPI.Cert != "",
		Rules:           append([]rolemap.Rule(nil), s.doc.RoleMapping.Mapping...),
	}
}

// WorkgroupConfig assembles the directory client configuration from the
// document credentials and the given base URL.
func (s *PolicyStore) WorkgroupConfig(baseURL string) workgroup.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.doc.RoleMapping.WorkgroupAPI
	cfg := workgroup.Config{
		BaseURL:  baseURL,
		CertPath: settings.Cert,
		KeyPath:  settings.Key,
	}
	if settings.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return cfg
}

// SAMLConfig returns the SAML service provider settings.
func (s *PolicyStore) SAMLConfig() saml.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SAML
}

// SetAllowed replaces the restriction policy. User names are lowercased and
// stripped to alphanumerics; affiliations must come from ValidAffiliations.
// When restrict is false the allow lists are cleared.
func (s *PolicyStore) SetAllowed(restrict bool, users, affiliations, groups []string) error {
	policy := authz.RestrictionPolicy{Restrict: restrict}

	if restrict {
		for _, user := range users {
			user = sunetPattern.ReplaceAllString(strings.ToLower(user), "")
			if user != "" {
				policy.AllowedUsers = append(policy.AllowedUsers, user)
			}
		}
		for _, affiliation := range affiliations {
			if !validAffiliation(affiliation) {
				return fmt.Errorf("invalid affiliation %q", affiliation)
			}
			policy.AllowedAffiliations = append(policy.AllowedAffiliations, affiliation)
		}
		for _, group := range groups {
			group = strings.TrimSpace(group)
			if group != "" {
				policy.AllowedGroups = append(policy.AllowedGroups, group)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Allowed = policy
	return s.save()
}

// SetReevaluate changes the role mapping reevaluation mode.
func (s *PolicyStore) SetReevaluate(mode rolemap.ReevaluateMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid reevaluate mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RoleMapping.Reevaluate = mode
	return s.save()
}

// SetWorkgroupAPI updates the directory credentials and timeout.
func (s *PolicyStore) SetWorkgroupAPI(certPath, keyPath string, timeoutSeconds int) error {
	if timeoutSeconds < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RoleMapping.WorkgroupAPI = WorkgroupAPISettings{
		Cert:           certPath,
		Key:            keyPath,
		TimeoutSeconds: timeoutSeconds,
	}
	return s.save()
}

// AddMapping appends a role mapping rule. A rule without an attribute gets
// the entitlement default; a rule with an empty value or role is rejected.
// Duplicate rules are dropped; AddMapping reports whether the rule was
// added.
func (s *PolicyStore) AddMapping(rule rolemap.Rule) (bool, error) {
	if rule.Role == "" {
		return false, fmt.Errorf("rule role must not be empty")
	}
	if rule.Value == "" {
		return false, fmt.Errorf("rule value must not be empty")
	}
	rule = rule.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	set := rolemap.NewRuleSet(s.doc.RoleMapping.Mapping...)
	if !set.Add(rule) {
		return false, nil
	}
	s.doc.RoleMapping.Mapping = set.Rules()
	return true, s.save()
}

// RemoveMapping deletes the rule at the given position.
func (s *PolicyStore) RemoveMapping(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := rolemap.NewRuleSet(s.doc.RoleMapping.Mapping...)
	if !set.Remove(index) {
		return fmt.Errorf("no mapping at position %d", index)
	}
	s.doc.RoleMapping.Mapping = set.Rules()
	return s.save()
}

// save persists the document. Caller must hold the write lock.
func (s *PolicyStore) save() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal policy document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace policy file: %w", err)
	}
	return nil
}

func (s *PolicyStore) copyDocument() Document {
	doc := s.doc
	doc.Allowed.AllowedUsers = append([]string(nil), doc.Allowed.AllowedUsers...)
	doc.Allowed.AllowedAffiliations = append([]string(nil), doc.Allowed.AllowedAffiliations...)
	doc.Allowed.AllowedGroups = append([]string(nil), doc.Allowed.AllowedGroups...)
	doc.RoleMapping.Mapping = append([]rolemap.Rule(nil), doc.RoleMapping.Mapping...)
	return doc
}

func validAffiliation(affiliation string) bool {
	for _, valid := range ValidAffiliations {
		if affiliation == valid {
			return true
		}
	}
	return false
}
