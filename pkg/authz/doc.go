// Package authz decides whether an authenticating identity is permitted to
// log in.
//
// The evaluator is invoked once per SSO login, before any role mapping. It
// checks the configured restriction policy against the identity's SAML
// attributes, falling back to a workgroup directory lookup only when no
// attribute-based check matched. The only error it produces is
// ErrUnauthorized, which the SSO layer surfaces to the end user and uses to
// abort the login.
package authz
