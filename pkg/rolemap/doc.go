// Package rolemap computes the roles an identity should hold after an SSO
// login.
//
// # Policy
//
// A Policy carries the reevaluation mode, the ordered mapping rules, and
// whether rules match against workgroup directory lookups or directly
// against SAML attributes. The reevaluation mode controls how aggressive
// the resolver is:
//
//	none  leave roles alone entirely
//	new   only add roles, never remove
//	all   drop every current role first, then re-derive from scratch
//
// # Rules
//
// Each rule maps one attribute value to one role. Rules are evaluated in
// configured order, every matching rule contributes its role, and a rule
// without an attribute matches against eduPersonEntitlement. Rule sets are
// deduplicated by the exact (role, attribute, value) triple.
//
// Affiliation-derived roles (staff, faculty, student) are granted ahead of
// the configured rules whenever role mapping is active at all.
package rolemap
