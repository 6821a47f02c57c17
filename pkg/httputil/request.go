package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt extracts and parses an integer path parameter
func ParsePathInt(r *http.Request, key string) (int, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathIntOrError extracts an integer path parameter and writes error on failure
func ParsePathIntOrError(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	val, err := ParsePathInt(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParsePathStringOrError extracts a string path parameter and writes error on failure
func ParsePathStringOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val, err := ParsePathString(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return val, true
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteBadRequest(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}
