package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// ErrorResponse matches the API error body
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// AssertErrorResponse verifies the status and error code of a failed request
// and returns the decoded body.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedCode string) ErrorResponse {
	t.Helper()

	AssertStatusCode(t, resp, expectedStatus)

	var body ErrorResponse
	AssertJSONResponse(t, resp, &body)
	assert.Equal(t, expectedCode, body.Code, "error code mismatch")
	return body
}

// FindCookie returns the named cookie set by resp, or nil.
func FindCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
