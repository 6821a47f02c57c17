package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/login"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

type stubDirectory struct {
	connected  bool
	workgroups map[string][]string
}

func (s *stubDirectory) UserWorkgroups(ctx context.Context, sunetid string) []string {
	return s.workgroups[sunetid]
}

func (s *stubDirectory) UserInGroup(ctx context.Context, group, sunetid string) bool {
	for _, g := range s.workgroups[sunetid] {
		if g == group {
			return true
		}
	}
	return false
}

func (s *stubDirectory) UserInAnyGroup(ctx context.Context, groups []string, sunetid string) bool {
	for _, g := range groups {
		if s.UserInGroup(ctx, g, sunetid) {
			return true
		}
	}
	return false
}

func (s *stubDirectory) UserInAllGroups(ctx context.Context, groups []string, sunetid string) bool {
	for _, g := range groups {
		if !s.UserInGroup(ctx, g, sunetid) {
			return false
		}
	}
	return true
}

func (s *stubDirectory) IsWorkgroupValid(ctx context.Context, group string) bool {
	return group != ""
}

func (s *stubDirectory) IsSunetValid(ctx context.Context, sunetid string) bool {
	_, ok := s.workgroups[sunetid]
	return ok
}

func (s *stubDirectory) ConnectionSuccessful(ctx context.Context) bool { return s.connected }

func newPolicyServer(t *testing.T, directory workgroup.Client) *Server {
	t.Helper()

	policies, err := config.LoadPolicyStore(filepath.Join(t.TempDir(), "policy.yaml"), nil)
	require.NoError(t, err)

	var factory login.ClientFactory
	if directory != nil {
		factory = func() workgroup.Client { return directory }
	}

	return NewServer(Options{Policies: policies, NewClient: factory})
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestAuthorizationPolicyRoundTrip(t *testing.T) {
	server := newPolicyServer(t, nil)

	rec := doJSON(t, server, http.MethodPut, "/api/v1/policies/authorization",
		`{"restrict":true,"users":["JDoe "],"affiliations":["staff"],"groups":["uit:sws"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/v1/policies/authorization", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var policy struct {
		Restrict     bool     `json:"restrict"`
		Users        []string `json:"users"`
		Affiliations []string `json:"affiliations"`
		Groups       []string `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.True(t, policy.Restrict)
	assert.Equal(t, []string{"jdoe"}, policy.Users)
	assert.Equal(t, []string{"staff"}, policy.Affiliations)
	assert.Equal(t, []string{"uit:sws"}, policy.Groups)
}

func TestAuthorizationPolicyRejectsUnknownAffiliation(t *testing.T) {
	server := newPolicyServer(t, nil)

	rec := doJSON(t, server, http.MethodPut, "/api/v1/policies/authorization",
		`{"restrict":true,"affiliations":["wizard"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleMappingRules(t *testing.T) {
	server := newPolicyServer(t, nil)

	t.Run("add rule", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/policies/role-mapping/rules",
			`{"role":"editor","value":"anchorage_admin"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("duplicate rule conflicts", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/policies/role-mapping/rules",
			`{"role":"editor","value":"anchorage_admin"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing role rejected", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/policies/role-mapping/rules",
			`{"value":"anchorage_admin"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("remove rule", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodDelete, "/api/v1/policies/role-mapping/rules/0", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("remove out of range", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodDelete, "/api/v1/policies/role-mapping/rules/9", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReevaluateMode(t *testing.T) {
	server := newPolicyServer(t, nil)

	rec := doJSON(t, server, http.MethodPut, "/api/v1/policies/role-mapping/reevaluate", `{"mode":"all"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPut, "/api/v1/policies/role-mapping/reevaluate", `{"mode":"sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkgroupStatus(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		server := newPolicyServer(t, nil)

		rec := doJSON(t, server, http.MethodGet, "/api/v1/workgroup/status", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("connected", func(t *testing.T) {
		server := newPolicyServer(t, &stubDirectory{connected: true})

		rec := doJSON(t, server, http.MethodGet, "/api/v1/workgroup/status", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"connected":true`)
	})
}

func TestUserWorkgroupsEndpoint(t *testing.T) {
	directory := &stubDirectory{
		connected:  true,
		workgroups: map[string][]string{"jdoe": {"uit:sws", "dept:web"}},
	}
	server := newPolicyServer(t, directory)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/workgroup/users/jdoe", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SunetID    string   `json:"sunetid"`
		Workgroups []string `json:"workgroups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jdoe", body.SunetID)
	assert.Equal(t, []string{"uit:sws", "dept:web"}, body.Workgroups)
}
