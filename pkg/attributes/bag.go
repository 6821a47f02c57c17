package attributes

import "strings"

// Well-known attribute names released by the identity provider.
const (
	// Affiliation holds the institutional relationship types
	// (staff, faculty, student, member, affiliate).
	Affiliation = "eduPersonAffiliation"

	// Entitlement holds opaque workgroup-style capability strings. It is not
	// always released; that depends on the service provider's release policy.
	Entitlement = "eduPersonEntitlement"
)

// Bag is the set of attributes asserted for one login. Values are JSON-like:
// a string, a []string, a []interface{}, or a nested map[string]interface{}.
// A Bag is treated as immutable for the duration of one evaluation.
type Bag map[string]interface{}

// Values returns the attribute as a list of strings. Scalar values become a
// single-element list; a missing attribute returns nil.
func (b Bag) Values(name string) []string {
	v, ok := b[name]
	if !ok {
		return nil
	}
	return stringList(v)
}

// First returns the first value of the attribute, or "" when absent.
func (b Bag) First(name string) string {
	values := b.Values(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Has reports whether the attribute contains the given value.
func (b Bag) Has(name, value string) bool {
	for _, v := range b.Values(name) {
		if v == value {
			return true
		}
	}
	return false
}

// Lookup resolves a pipe-delimited key path against the bag and returns the
// value found at the end of the path. Intermediate path segments must resolve
// to nested maps. The second return is false when any segment is missing.
func (b Bag) Lookup(path string) (interface{}, bool) {
	segments := strings.Split(path, "|")

	var current interface{} = map[string]interface{}(b)
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Bag:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

// Matches reports whether the value at the given key path equals want, or is
// a list containing want.
func (b Bag) Matches(path, want string) bool {
	found, ok := b.Lookup(path)
	if !ok {
		return false
	}
	if s, ok := found.(string); ok {
		return s == want
	}
	for _, v := range stringList(found) {
		if v == want {
			return true
		}
	}
	return false
}

// stringList normalizes a JSON-like value to a list of strings. Non-string
// elements are dropped rather than coerced.
func stringList(v interface{}) []string {
	switch value := v.(type) {
	case string:
		return []string{value}
	case []string:
		return value
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
