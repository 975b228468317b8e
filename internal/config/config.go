// Package config resolves the effective run configuration.
//
// Layering, highest priority first:
//
//	explicit CLI flag → environment variable (optionally from a .env file) → unset
//
// The resolved Config is immutable and is passed explicitly to every
// component; nothing reads the environment after Resolve returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/discourse-bulk-users/internal/apperror"
)

// Environment variable names consulted when the matching flag is absent.
const (
	EnvSiteURL     = "DISCOURSE_SITE_URL"
	EnvAPIKey      = "DISCOURSE_API_KEY"
	EnvAPIUsername = "DISCOURSE_API_USERNAME"
)

const (
	DefaultFile    = "users.xlsx"
	DefaultTimeout = 30 * time.Second
	DefaultEnvFile = ".env"
)

// Config is the effective configuration of one run.
type Config struct {
	FilePath string

	SiteURL     string // no trailing slash
	APIKey      string
	APIUsername string
	Timeout     time.Duration

	Active                 bool
	Approved               bool
	SuppressWelcomeMessage bool
	DryRun                 bool

	// SaveEvery > 0 saves the workbook after every SaveEvery processed rows
	// in addition to the final save.
	SaveEvery       int
	Filter          string
	FailOnRowErrors bool
}

// Flags carries values typed on the command line. An empty string means the
// flag was not supplied.
type Flags struct {
	FilePath    string
	SiteURL     string
	APIKey      string
	APIUsername string
	Timeout     time.Duration

	Active                 bool
	Approved               bool
	SuppressWelcomeMessage bool
	DryRun                 bool

	SaveEvery       int
	Filter          string
	FailOnRowErrors bool
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Resolve merges flags over the environment and validates the result.
//
// A ConfigurationError names every connection setting still missing after
// resolution, so the operator can fix them all in one go.
func Resolve(flags Flags, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	cfg := Config{
		FilePath:               strings.TrimSpace(flags.FilePath),
		SiteURL:                strings.TrimRight(firstNonEmpty(flags.SiteURL, env(lookup, EnvSiteURL)), "/"),
		APIKey:                 firstNonEmpty(flags.APIKey, env(lookup, EnvAPIKey)),
		APIUsername:            firstNonEmpty(flags.APIUsername, env(lookup, EnvAPIUsername)),
		Timeout:                flags.Timeout,
		Active:                 flags.Active,
		Approved:               flags.Approved,
		SuppressWelcomeMessage: flags.SuppressWelcomeMessage,
		DryRun:                 flags.DryRun,
		SaveEvery:              flags.SaveEvery,
		Filter:                 strings.TrimSpace(flags.Filter),
		FailOnRowErrors:        flags.FailOnRowErrors,
	}
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultFile
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	var missing []string
	for _, s := range []struct {
		flag  string
		value string
	}{
		{"site-url", cfg.SiteURL},
		{"api-key", cfg.APIKey},
		{"api-username", cfg.APIUsername},
	} {
		if s.value == "" {
			missing = append(missing, s.flag)
		}
	}
	if len(missing) > 0 {
		return Config{}, apperror.Configuration(
			fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")),
			missing...,
		)
	}

	u, err := url.Parse(cfg.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, apperror.Configuration(
			fmt.Sprintf("site-url %q must be an absolute http(s) URL", cfg.SiteURL), "site-url")
	}
	if cfg.Timeout < 0 {
		return Config{}, apperror.Configuration("timeout must be positive", "timeout")
	}
	if cfg.SaveEvery < 0 {
		return Config{}, apperror.Configuration("save-every must not be negative", "save-every")
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadDotEnv(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperror.Configuration(fmt.Sprintf("loading env file %s: %v", path, err), "env-file")
	}
	return nil
}

func env(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
