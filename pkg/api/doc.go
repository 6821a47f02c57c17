// Package api implements the HTTP surface of the authentication service.
//
// # Overview
//
// The server exposes three groups of routes:
//
//   - SAML endpoints: /saml/login redirects the browser to the identity
//     provider, /saml/acs consumes the signed response, authorizes the
//     login, and syncs the account's roles.
//   - Policy administration under /api/v1/policies: the authorization
//     restriction (allowed users, affiliations, workgroups), the role
//     mapping rules, and the workgroup API credentials.
//   - Account administration under /api/v1/users: provisioning accounts
//     ahead of their first login.
//
// Health probes live at /health/live and /health/ready, and Prometheus
// metrics at /metrics.
//
// Handlers are grouped per concern into *Handlers types registered on the
// shared gorilla/mux router.
package api
