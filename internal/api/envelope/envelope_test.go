package envelope

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return payload
}

func TestSuccess(t *testing.T) {
	res := httptest.NewRecorder()
	Success(res)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "application/json", res.Header().Get("Content-Type"))
	require.Equal(t, map[string]any{"status": "success"}, decode(t, res))
}

func TestSuccessWith(t *testing.T) {
	res := httptest.NewRecorder()
	SuccessWith(res, "events", []string{"a", "b"})

	require.Equal(t, http.StatusOK, res.Code)
	payload := decode(t, res)
	require.Equal(t, "success", payload["status"])
	require.Equal(t, []any{"a", "b"}, payload["events"])
}

func TestFailedEmbedsCause(t *testing.T) {
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	Failed(res, req, http.StatusInternalServerError, errors.New("connection refused"))

	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.Equal(t, "failed: connection refused", decode(t, res)["status"])
}

func TestExplain(t *testing.T) {
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	Explain(res, req, http.StatusUnprocessableEntity, "event parameter is required")

	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, "event parameter is required", decode(t, res)["status"])
}
