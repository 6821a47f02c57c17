// Package saml consumes SAML 2.0 assertions from the identity provider and
// turns them into attribute bags for the login engine.
//
// Protocol flows (redirects, metadata exchange, single logout) are the
// responsibility of the surrounding SSO layer; this package only validates a
// posted assertion and extracts the login name and attributes from it.
package saml
