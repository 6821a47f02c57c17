package rolemap

import "github.com/cardinalsites/samlauth/pkg/attributes"

// ReevaluateMode controls how the resolver treats roles already held by the
// identity.
type ReevaluateMode string

const (
	// ReevaluateNew only grants new roles based on rule matches.
	ReevaluateNew ReevaluateMode = "new"
	// ReevaluateAll removes every current role and re-derives the set.
	ReevaluateAll ReevaluateMode = "all"
	// ReevaluateNone performs no role changes at all.
	ReevaluateNone ReevaluateMode = "none"
)

// Valid reports whether the mode is one of the three known values.
func (m ReevaluateMode) Valid() bool {
	switch m {
	case ReevaluateNew, ReevaluateAll, ReevaluateNone:
		return true
	}
	return false
}

// Rule maps a single SAML attribute value to a role.
type Rule struct {
	Role      string `json:"role" yaml:"role"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

// Normalize fills in the default attribute name for rules stored without
// one.
func (r Rule) Normalize() Rule {
	if r.Attribute == "" {
		r.Attribute = attributes.Entitlement
	}
	return r
}

// Policy is the role mapping configuration applied on every login.
type Policy struct {
	Reevaluate ReevaluateMode `json:"reevaluate" yaml:"reevaluate"`
	// WorkgroupLookup is true when directory credentials are configured;
	// rules then match against workgroup memberships instead of attributes.
	WorkgroupLookup bool   `json:"workgroup_lookup" yaml:"workgroup_lookup"`
	Rules           []Rule `json:"rules" yaml:"rules"`
}

// RuleSet is an ordered rule collection deduplicated by the exact
// (role, attribute, value) triple.
type RuleSet struct {
	rules []Rule
	seen  map[Rule]bool
}

// NewRuleSet creates a rule set seeded with the given rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	s := &RuleSet{seen: make(map[Rule]bool)}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add inserts a rule, normalizing its attribute first. Inserting a
// duplicate is a no-op; Add reports whether the rule was added.
func (s *RuleSet) Add(r Rule) bool {
	r = r.Normalize()
	if s.seen[r] {
		return false
	}
	s.seen[r] = true
	s.rules = append(s.rules, r)
	return true
}

// Remove deletes the rule at the given position, preserving order.
func (s *RuleSet) Remove(index int) bool {
	if index < 0 || index >= len(s.rules) {
		return false
	}
	delete(s.seen, s.rules[index])
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
	return true
}

// Rules returns the rules in first-insertion order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules in the set.
func (s *RuleSet) Len() int {
	return len(s.rules)
}
