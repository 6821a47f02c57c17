// Package config loads service settings and manages the policy document.
//
// # Service Settings
//
// Config is assembled from SAMLAUTH_* environment variables: listen
// address, policy file location, workgroup API base URL, provisioning
// database, and observability knobs.
//
// # Policy Document
//
// PolicyStore owns the YAML document holding the two policies the login
// engine evaluates: the authentication restriction policy and the role
// mapping policy (including workgroup API credentials), plus the SAML
// service provider settings. All administrative writes go through the
// store, which validates and sanitizes input before persisting, and the
// store watches the file with fsnotify so out-of-band edits take effect
// without a restart.
package config
