// Package testutil holds request and response helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

func NewTestRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

func NewTestRequestWithJSON(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err, "marshal request body")
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), "parse response body: %s", body)
	return out
}

// DecodeJSON unmarshals a response body into v and fails the test otherwise.
func DecodeJSON(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v), "decode response body: %s", body)
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "unexpected status, body: %s", rr.Body.String())
}

func AssertJSONContains(t *testing.T, body []byte, key string, want interface{}) {
	t.Helper()
	got := ParseJSONResponse(t, body)
	assert.Equal(t, want, got[key], "field %q", key)
}

// AssertErrorResponse checks the status and the {"error": message} envelope.
func AssertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	AssertStatusCode(t, rr, status)
	AssertJSONContains(t, rr.Body.Bytes(), "error", message)
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

func RandomEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8])
}

func NewTestUser(username string) *models.User {
	return &models.User{
		ID:       RandomUUID(),
		Email:    RandomEmail(),
		Username: username,
	}
}
