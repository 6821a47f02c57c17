package provision

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jdoe", "Jane Doe", "jdoe@stanford.edu", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(int64(7), "stanford_staff").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO authmap`).
		WithArgs(int64(7), Provider, "jdoe").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db, "postgres")
	user := &User{
		SunetID: "jdoe",
		Name:    "Jane Doe",
		Email:   "jdoe@stanford.edu",
		Roles:   []string{"stanford_staff"},
	}
	require.NoError(t, store.CreateUser(context.Background(), user, "secret"))

	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateUserRollsBackOnRoleFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	store := NewStore(db, "postgres")
	user := &User{SunetID: "jdoe", Name: "jdoe", Email: "jdoe@stanford.edu", Roles: []string{"editor"}}
	err = store.CreateUser(context.Background(), user, "secret")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to grant role")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, sunetid, name, email, created_at`).
		WithArgs("jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sunetid", "name", "email", "created_at"}).
			AddRow(7, "jdoe", "Jane Doe", "jdoe@stanford.edu", time.Now()))
	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("editor").AddRow("stanford_staff"))

	store := NewStore(db, "postgres")
	user, err := store.GetUser(context.Background(), "jdoe")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, []string{"editor", "stanford_staff"}, user.Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreReplaceUserRoles(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM authmap`).
		WithArgs(Provider, "jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectExec(`DELETE FROM user_roles`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(int64(7), "stanford_student").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db, "postgres")
	err = store.ReplaceUserRoles(context.Background(), "jdoe", []string{"stanford_student"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRoles(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("stanford_faculty").AddRow("stanford_staff").AddRow("stanford_student"))

	store := NewStore(db, "postgres")
	roles, err := store.Roles(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"stanford_faculty", "stanford_staff", "stanford_student"}, roles)
}
