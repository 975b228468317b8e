package discourse

import (
	"time"

	"github.com/sakif/discourse-bulk-users/internal/auth"
)

// Config holds the connection settings for the Discourse admin API.
type Config struct {
	// SiteURL is the forum base URL without a trailing slash.
	SiteURL string
	// Credentials authenticate every request (Api-Key / Api-Username).
	Credentials auth.Credentials
	// Timeout bounds one create-user call, including reading the response.
	Timeout time.Duration
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
}

// DefaultConfig provides the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		MaxResponseBytes: 1 << 20,
	}
}
