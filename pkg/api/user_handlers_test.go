package api

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/provision"
)

func newUserServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policies, err := config.LoadPolicyStore(filepath.Join(t.TempDir(), "policy.yaml"), nil)
	require.NoError(t, err)

	store := provision.NewStore(db, "postgres")
	provisioner := provision.NewProvisioner(store, policies, nil, observability.NopLogger())

	server := NewServer(Options{
		Policies:    policies,
		Store:       store,
		Provisioner: provisioner,
	})
	return server, mock
}

func TestCreateUserEndpoint(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT id, sunetid, name, email, created_at`).
		WillReturnError(assert.AnError)
	mock.ExpectQuery(`SELECT name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jdoe", "jdoe", "jdoe@stanford.edu", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO authmap`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doJSON(t, server, http.MethodPost, "/api/v1/users", `{"sunetid":"jdoe"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sunetid":"jdoe"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserEndpointConflict(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT id, sunetid, name, email, created_at`).
		WithArgs("jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sunetid", "name", "email", "created_at"}).
			AddRow(1, "jdoe", "jdoe", "jdoe@stanford.edu", time.Now()))
	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	rec := doJSON(t, server, http.MethodPost, "/api/v1/users", `{"sunetid":"jdoe"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestCreateUserEndpointRejectsBadSunet(t *testing.T) {
	server, _ := newUserServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/users", `{"sunetid":"J Doe!"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserEndpoint(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT id, sunetid, name, email, created_at`).
		WithArgs("jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sunetid", "name", "email", "created_at"}).
			AddRow(1, "jdoe", "Jane Doe", "jdoe@stanford.edu", time.Now()))
	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("editor"))

	rec := doJSON(t, server, http.MethodGet, "/api/v1/users/jdoe", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Jane Doe"`)
}

func TestGetUserEndpointNotFound(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT id, sunetid, name, email, created_at`).
		WillReturnError(assert.AnError)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/users/ghost", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapEntitlementRoleEndpoint(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("editor"))

	rec := doJSON(t, server, http.MethodPost, "/api/v1/mappings/entitlement",
		`{"entitlement":"anchorage_admin","role":"editor"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("rule lands in the policy document", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/v1/policies/role-mapping", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "anchorage_admin")
	})
}

func TestMapEntitlementRoleEndpointUnknownRole(t *testing.T) {
	server, mock := newUserServer(t)

	mock.ExpectQuery(`SELECT name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	rec := doJSON(t, server, http.MethodPost, "/api/v1/mappings/entitlement",
		`{"entitlement":"anchorage_admin","role":"ghost"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
