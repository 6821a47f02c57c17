// Package cli implements the samlauth command line client.
//
// # Overview
//
// The CLI talks to a running service over its HTTP API. It covers the
// administrative operations an operator needs outside the browser:
//
//	samlauth add-user -sunetid jdoe -roles editor
//	samlauth entitlement-role -entitlement anchorage_admin -role editor
//	samlauth policy
//	samlauth rules -role editor -value anchorage_admin
//	samlauth workgroups -sunetid jdoe
//
// Every command accepts -server to point at the service (default
// http://localhost:8080).
package cli
