// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns used by the policy API.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteForbidden(w, "Login not permitted")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req AddRuleRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	index, ok := httputil.ParsePathIntOrError(w, r, "index")
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
package httputil
