// Package login runs the per-login synchronization triggered by a validated
// SAML assertion.
//
// The SSO layer hands the engine an account and the assertion's attribute
// bag. The engine authorizes the login against the restriction policy, then
// applies the role mapping policy to the account's role set. Rejection
// happens strictly before any role mutation: a denied account is returned
// untouched along with authz.ErrUnauthorized.
//
// Each Sync call builds its own workgroup client so that directory response
// memoization stays scoped to a single login evaluation.
package login
