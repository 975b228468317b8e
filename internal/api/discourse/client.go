// Package discourse implements api.Creator against the Discourse admin API.
package discourse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sakif/discourse-bulk-users/internal/api"
	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/auth"
	"github.com/sakif/discourse-bulk-users/internal/middleware"
)

// CreateUserPath is the user-creation endpoint relative to the site URL.
const CreateUserPath = "/users.json"

// Client implements the api.Creator interface using the Discourse REST API.
type Client struct {
	http   *http.Client
	config Config
	logger *slog.Logger
}

// New creates a Client. base is the innermost transport (nil means
// http.DefaultTransport); credential and logging middleware are layered on
// top of it:
//
//	Logger → auth.Transport → base
func New(cfg Config, base http.RoundTripper, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = def.MaxResponseBytes
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	transport := middleware.Logger(logger)(auth.NewTransport(cfg.Credentials, base))

	return &Client{
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
}

// createResponse covers both the success and the error shapes Discourse
// returns from POST /users.json.
type createResponse struct {
	Success *bool           `json:"success"`
	Active  bool            `json:"active"`
	UserID  json.RawMessage `json:"user_id"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Error   string          `json:"error"`
}

// Create implements api.Creator. It performs exactly one HTTP request.
func (c *Client) Create(ctx context.Context, req api.CreateUserRequest) (*api.CreateUserResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("discourse: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.SiteURL+CreateUserPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Transport(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, apperror.Transport(fmt.Errorf("reading response: %w", err))
	}
	raw := strings.TrimSpace(string(body))

	var parsed createResponse
	jsonErr := json.Unmarshal(body, &parsed)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && jsonErr == nil && parsed.Success != nil && *parsed.Success {
		userID := rawID(parsed.UserID)
		if userID == "" {
			return nil, apperror.RemoteAPI(resp.StatusCode, "success response without user_id", raw)
		}
		c.logger.Debug("user created",
			slog.String("username", req.Username),
			slog.String("userID", userID),
		)
		return &api.CreateUserResult{UserID: userID, Raw: raw}, nil
	}

	reason := ""
	if jsonErr == nil {
		reason = parsed.reason()
	}
	if reason == "" {
		reason = fallbackReason(resp.StatusCode, raw)
	}
	return nil, apperror.RemoteAPI(resp.StatusCode, reason, raw)
}

// reason builds a short machine-readable explanation from an error payload.
// Discourse uses "message" for a summary, and "errors" as either a list of
// sentences or a map of field → messages.
func (r createResponse) reason() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	if errs := decodeErrors(r.Errors); errs != "" {
		return errs
	}
	return strings.TrimSpace(r.Error)
}

func decodeErrors(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}

	var byField map[string][]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		var parts []string
		for _, f := range fields {
			for _, msg := range byField[f] {
				parts = append(parts, humanizeField(f)+" "+msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return ""
}

// humanizeField turns "primary_email" into "Primary email".
func humanizeField(f string) string {
	f = strings.ReplaceAll(f, "_", " ")
	if f == "" {
		return f
	}
	return strings.ToUpper(f[:1]) + f[1:]
}

func fallbackReason(status int, raw string) string {
	const maxLen = 200
	text := raw
	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "…"
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}

// rawID renders a JSON number or string id as a decimal string.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
