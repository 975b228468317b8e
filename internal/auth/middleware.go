package auth

import (
	"net/http"
)

// Discourse admin API authentication headers.
const (
	HeaderAPIKey      = "Api-Key"
	HeaderAPIUsername = "Api-Username"
)

// Credentials identify the admin account that performs the API calls.
type Credentials struct {
	APIKey      string
	APIUsername string
}

// Transport is client-side middleware: an http.RoundTripper that stamps the
// admin credentials on every outgoing request before handing it to Base.
//
// The pattern mirrors server middleware, just on the other end of the wire:
//
//	client.Do → Transport (add headers) → Base → network
//
// Keeping credentials here means the API client never touches secrets.
type Transport struct {
	Credentials Credentials
	Base        http.RoundTripper // http.DefaultTransport when nil
}

// NewTransport wraps base with the given credentials.
func NewTransport(creds Credentials, base http.RoundTripper) *Transport {
	return &Transport{Credentials: creds, Base: base}
}

// RoundTrip implements http.RoundTripper.
//
// A RoundTripper must not modify the caller's request, so headers go on a
// clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(HeaderAPIKey, t.Credentials.APIKey)
	r.Header.Set(HeaderAPIUsername, t.Credentials.APIUsername)
	return t.base().RoundTrip(r)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
