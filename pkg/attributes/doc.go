// Package attributes models the SAML attribute assertions released by the
// identity provider during single sign-on.
//
// # Overview
//
// SAML attributes are multi-valued: each attribute name maps to an ordered
// list of string values. The identity provider may also release structured
// data, so the Bag type holds arbitrary JSON-like values and normalizes them
// to strings on read.
//
// # Nested Lookup
//
// Role mapping rules reference attributes by a pipe-delimited key path, e.g.
// "urn:oid:1.3.6.1.4.1.5923.1.1.1.7|value". Lookup walks the path one map
// level at a time and returns whatever value sits at the end of it.
//
// # Related Packages
//
//   - pkg/saml: builds a Bag from a validated SAML assertion
//   - pkg/authz: evaluates affiliation and entitlement attributes
//   - pkg/rolemap: matches rule values against attribute values
package attributes
