package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusOK, map[string]string{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, http.StatusForbidden, errors.New("login not permitted"))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "login not permitted", body["error"])
}

func TestErrorShorthands(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "bad") }, http.StatusBadRequest},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "no") }, http.StatusForbidden},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "missing") }, http.StatusNotFound},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "dup") }, http.StatusConflict},
		{"unavailable", func(w http.ResponseWriter) { WriteServiceUnavailable(w, "down") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
