package provision

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Provider is the authmap provider name recorded for SSO-bound accounts.
const Provider = "samlauth"

// User represents a locally provisioned account
type User struct {
	ID        int64     `json:"id"`
	SunetID   string    `json:"sunetid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists provisioned users and their external auth bindings
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore creates a new provisioning store. The driver name ("postgres" or
// "sqlite3") selects the DDL dialect used by Migrate.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Migrate creates the provisioning tables and seeds the affiliation roles.
func (s *Store) Migrate(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			` + idColumn + `,
			sunetid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			password TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (user_id, role)
		)`,
		`CREATE TABLE IF NOT EXISTS authmap (
			user_id INTEGER NOT NULL,
			provider TEXT NOT NULL,
			authname TEXT NOT NULL,
			PRIMARY KEY (provider, authname)
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			name TEXT PRIMARY KEY
		)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	for _, role := range []string{"stanford_staff", "stanford_faculty", "stanford_student"} {
		if err := s.EnsureRole(ctx, role); err != nil {
			return err
		}
	}
	return nil
}

// EnsureRole registers a role identifier if it is not known yet.
func (s *Store) EnsureRole(ctx context.Context, role string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles WHERE name = $1`, role).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if exists > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO roles (name) VALUES ($1)`, role); err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// Roles returns every known role identifier.
func (s *Store) Roles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateUser inserts the user, its role grants, and the authmap binding in
// one transaction.
func (s *Store) CreateUser(ctx context.Context, user *User, password string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user.CreatedAt = time.Now().UTC()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (sunetid, name, email, password, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, user.SunetID, user.Name, user.Email, password, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		`, user.ID, role); err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO authmap (user_id, provider, authname) VALUES ($1, $2, $3)
	`, user.ID, Provider, user.SunetID); err != nil {
		return fmt.Errorf("failed to bind external name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUser fetches a provisioned user by sunetid.
func (s *Store) GetUser(ctx context.Context, sunetid string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sunetid, name, email, created_at
		FROM users WHERE sunetid = $1
	`, sunetid).Scan(&user.ID, &user.SunetID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role
	`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		user.Roles = append(user.Roles, role)
	}
	return user, rows.Err()
}

// UserRoles returns the roles currently granted to the external login name.
func (s *Store) UserRoles(ctx context.Context, sunetid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ur.role
		FROM user_roles ur
		JOIN authmap am ON am.user_id = ur.user_id
		WHERE am.provider = $1 AND am.authname = $2
		ORDER BY ur.role
	`, Provider, sunetid)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ReplaceUserRoles swaps the role grants for the external login name. Used
// after a login sync changed the role set.
func (s *Store) ReplaceUserRoles(ctx context.Context, sunetid string, roles []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM authmap WHERE provider = $1 AND authname = $2
	`, Provider, sunetid).Scan(&userID)
	if err != nil {
		return fmt.Errorf("unknown external name %q: %w", sunetid, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		`, userID, role); err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
