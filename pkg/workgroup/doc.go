// Package workgroup provides the client for the Stanford workgroup
// membership API.
//
// # Overview
//
// The workgroup service answers two query types over mutual TLS:
//
//	GET <base-url>?type=user&id=<sunetid>       -> {"results": [{"name": ...}, ...]}
//	GET <base-url>?type=workgroup&id=<group>    -> workgroup details
//
// The client authenticates with a configured client certificate and private
// key pair. When the pair is missing or unreadable, mutual TLS is silently
// disabled and the plain request is still attempted.
//
// # Failure Handling
//
// A directory outage must never break a login. Transport failures, timeouts,
// and malformed responses are logged and degrade to an empty result: a user
// simply appears to have no workgroups. No error crosses the package
// boundary.
//
// # Memoization
//
// Each client instance memoizes successful responses keyed by (type, id), so
// repeated lookups during one login evaluation issue a single network call.
// Failed lookups are never cached and will be retried on the next query for
// the same key. The cache lives and dies with the client instance; create
// one client per login evaluation so concurrent logins never observe each
// other's responses.
package workgroup
