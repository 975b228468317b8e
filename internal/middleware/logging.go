// Package middleware contains http.RoundTripper decorators for the API client.
//
// The shape is the client-side twin of server middleware:
//
//	func Wrap(next http.RoundTripper) http.RoundTripper {
//	    return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
//	        // before the call
//	        resp, err := next.RoundTrip(r)
//	        // after the call
//	        return resp, err
//	    })
//	}
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RoundTripperFunc adapts an ordinary function to http.RoundTripper, the
// same way http.HandlerFunc adapts one to http.Handler.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Logger returns a RoundTripper middleware that logs each outgoing request.
//
// Each log line includes: method, host, path, status code and duration.
// Transport failures are logged at warn level with the error; the request
// body and headers are never logged since they carry passwords and API keys.
func Logger(logger *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if next == nil {
			next = http.DefaultTransport
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("api request failed", append(attrs, slog.String("error", err.Error()))...)
				return nil, err
			}

			logger.Debug("api request completed", append(attrs, slog.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
