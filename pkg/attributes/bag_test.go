package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	bag := Bag{
		Affiliation: []string{"staff", "faculty"},
		"displayName": "Jane Stanford",
		"memberOf":    []interface{}{"workgroup:one", "workgroup:two", 42},
	}

	assert.Equal(t, []string{"staff", "faculty"}, bag.Values(Affiliation))
	assert.Equal(t, []string{"Jane Stanford"}, bag.Values("displayName"))
	assert.Equal(t, []string{"workgroup:one", "workgroup:two"}, bag.Values("memberOf"))
	assert.Nil(t, bag.Values("missing"))
}

func TestFirst(t *testing.T) {
	bag := Bag{Entitlement: []string{"uit:sws", "itlab:staff"}}

	assert.Equal(t, "uit:sws", bag.First(Entitlement))
	assert.Equal(t, "", bag.First("missing"))
}

func TestHas(t *testing.T) {
	bag := Bag{Affiliation: []string{"staff", "member"}}

	assert.True(t, bag.Has(Affiliation, "member"))
	assert.False(t, bag.Has(Affiliation, "faculty"))
	assert.False(t, bag.Has("missing", "staff"))
}

func TestLookupNestedPath(t *testing.T) {
	bag := Bag{
		"urn:mace:stanford.edu": map[string]interface{}{
			"department": "University IT",
			"groups":     []interface{}{"uit:sws"},
		},
	}

	value, ok := bag.Lookup("urn:mace:stanford.edu|department")
	assert.True(t, ok)
	assert.Equal(t, "University IT", value)

	value, ok = bag.Lookup("urn:mace:stanford.edu|groups")
	assert.True(t, ok)
	assert.Equal(t, []interface{}{"uit:sws"}, value)

	_, ok = bag.Lookup("urn:mace:stanford.edu|missing")
	assert.False(t, ok)

	_, ok = bag.Lookup("urn:mace:stanford.edu|department|deeper")
	assert.False(t, ok)
}

func TestLookupTopLevel(t *testing.T) {
	bag := Bag{Entitlement: []string{"workgroup:x"}}

	value, ok := bag.Lookup(Entitlement)
	assert.True(t, ok)
	assert.Equal(t, []string{"workgroup:x"}, value)
}

func TestMatches(t *testing.T) {
	bag := Bag{
		Entitlement:   []string{"workgroup:x", "workgroup:y"},
		"displayName": "Jane Stanford",
		"nested": map[string]interface{}{
			"key": "value",
		},
	}

	assert.True(t, bag.Matches(Entitlement, "workgroup:x"))
	assert.False(t, bag.Matches(Entitlement, "workgroup:z"))
	assert.True(t, bag.Matches("displayName", "Jane Stanford"))
	assert.True(t, bag.Matches("nested|key", "value"))
	assert.False(t, bag.Matches("nested|key", "other"))
	assert.False(t, bag.Matches("missing", "anything"))
}
