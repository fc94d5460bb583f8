package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handleHealthz(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleAggregatedErrors_NilClassifier(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/debug/aggregated-errors", nil)
	w := httptest.NewRecorder()
	handleAggregatedErrors(nil)(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestNew_BuildsServer(t *testing.T) {
	s := New(":0", nil, nil)
	require.NotNil(t, s)
	assert.NoError(t, s.Shutdown())
}
