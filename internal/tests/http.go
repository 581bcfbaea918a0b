package tests

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONResponse checks the status code and compares the JSON body with expected.
func AssertJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, status int, expected any) {
	t.Helper()

	assert.Equal(t, status, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	expectedJSON, err := json.Marshal(expected)
	require.NoError(t, err)
	assert.JSONEq(t, string(expectedJSON), recorder.Body.String())
}

// DecodeJSON decodes the recorded body into T.
func DecodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value))
	return value
}
