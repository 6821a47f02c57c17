// Package provision manages local accounts pre-bound to external SSO login
// names.
//
// Administrators create an account for a sunetid before that person ever
// logs in, so roles can be granted up front. The store keeps users, their
// role grants, and the authmap row binding the local account to the
// external name, in PostgreSQL or SQLite. The provisioner layers the
// validation on top: sunetid syntax, optional directory validation through
// the workgroup API, and filtering of role grants down to roles that exist.
//
// The provisioner also carries the entitlement-to-role administrative
// operation that appends a mapping rule to the role mapping policy.
package provision
