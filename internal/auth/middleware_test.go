package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransport_AddsCredentialHeaders(t *testing.T) {
	var got http.Header
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Clone()
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	tr := NewTransport(Credentials{APIKey: "secret", APIUsername: "system"}, base)

	req := httptest.NewRequest(http.MethodPost, "https://forum.example.com/users.json", nil)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "secret", got.Get(HeaderAPIKey))
	assert.Equal(t, "system", got.Get(HeaderAPIUsername))
	assert.Empty(t, req.Header.Get(HeaderAPIKey), "caller's request must not be mutated")
}

func TestTransport_DefaultsToHTTPDefaultTransport(t *testing.T) {
	tr := &Transport{}
	assert.Equal(t, http.DefaultTransport, tr.base())
}
