package app_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sakif/discourse-bulk-users/internal/api"
	"github.com/sakif/discourse-bulk-users/internal/app"
	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/auth"
	"github.com/sakif/discourse-bulk-users/internal/config"
	"github.com/sakif/discourse-bulk-users/internal/model"
)

// =========================================================================
// HELPERS
// =========================================================================

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "users.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// readBack returns the saved sheet as header → values per data row.
func readBack(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var out []map[string]string
	for _, r := range rows[1:] {
		m := make(map[string]string)
		for i, h := range rows[0] {
			if i < len(r) {
				m[h] = r[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func baseConfig(path string) config.Config {
	return config.Config{
		FilePath:    path,
		SiteURL:     "https://forum.invalid",
		APIKey:      "k",
		APIUsername: "system",
		Timeout:     2 * time.Second,
	}
}

// countingTransport fails the test's expectations if any request leaves
// the process.
type countingTransport struct{ n atomic.Int32 }

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return nil, http.ErrServerClosed
}

// =========================================================================
// END-TO-END
// =========================================================================

func TestApp_DryRunThreeRowScenario(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"username", "email", "name", "password", "User ID"},
		{"anna", "anna@example.com", "Anna", "", 5},
		{"ben", "", "Ben", "", nil},
		{"cleo", "cleo@example.com", "Cleo", "", nil},
	})

	cfg := baseConfig(path)
	cfg.DryRun = true
	transport := &countingTransport{}

	a, err := app.New(cfg, testLogger(), transport)
	require.NoError(t, err)
	defer a.Close()
	assert.NotEmpty(t, a.RunID())

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Processed: 3, DryRun: 1, Skipped: 1, Invalid: 1}, summary)
	assert.Zero(t, transport.n.Load(), "dry run never touches the network")

	rows := readBack(t, path)
	require.Len(t, rows, 3)

	assert.Equal(t, "Skipped", rows[0]["User Status"])
	assert.Equal(t, "5", rows[0]["User ID"])
	assert.Empty(t, rows[0]["password"], "skipped rows get no password")

	assert.Equal(t, "Invalid row", rows[1]["User Status"])
	assert.Contains(t, rows[1]["Notes"], "email")

	assert.Equal(t, "Dry run OK", rows[2]["User Status"])
	assert.Empty(t, rows[2]["User ID"])
	assert.NoError(t, auth.CheckPolicy(rows[2]["password"]))
}

func TestApp_LiveRunAgainstFakeForum(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/users.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get(auth.HeaderAPIKey) != "k" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["You are not permitted to view the requested resource."],"error_type":"invalid_access"}`))
			return
		}
		var req api.CreateUserRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Username == "taken" {
			_, _ = w.Write([]byte(`{"success":false,"message":"Username has already been taken","errors":{"username":["has already been taken"]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"active":true,"user_id":42}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	path := writeWorkbook(t, [][]any{
		{"username", "email", "name", "department"},
		{"taken", "taken@example.com", "Taken", "Ops"},
		{"fresh", "fresh@example.com", "Fresh", "Dev"},
	})

	cfg := baseConfig(path)
	cfg.SiteURL = srv.URL

	a, err := app.New(cfg, testLogger(), nil)
	require.NoError(t, err)
	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Failed)

	rows := readBack(t, path)
	assert.Equal(t, "Failed", rows[0]["User Status"])
	assert.Contains(t, rows[0]["Notes"], "Username has already been taken")
	assert.Equal(t, "Ops", rows[0]["department"], "extra columns are preserved")

	assert.Equal(t, "Created", rows[1]["User Status"])
	assert.Equal(t, "42", rows[1]["User ID"])
	assert.NotEmpty(t, rows[1]["password"])

	// A second run never re-submits the created row.
	a, err = app.New(cfg, testLogger(), nil)
	require.NoError(t, err)
	defer a.Close()
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "only the failed row is retried")
	rows = readBack(t, path)
	assert.Equal(t, "Skipped", rows[1]["User Status"])
	assert.Equal(t, "42", rows[1]["User ID"])
}

func TestApp_New_FailsBeforeTouchingWorkbook(t *testing.T) {
	t.Run("schema error", func(t *testing.T) {
		path := writeWorkbook(t, [][]any{{"username", "name"}, {"x", "X"}})
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		_, err = app.New(baseConfig(path), testLogger(), nil)
		require.ErrorIs(t, err, apperror.ErrSchema)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("bad filter", func(t *testing.T) {
		path := writeWorkbook(t, [][]any{{"username", "email", "name"}})
		cfg := baseConfig(path)
		cfg.Filter = "email endsWith"

		_, err := app.New(cfg, testLogger(), nil)
		assert.ErrorIs(t, err, apperror.ErrConfiguration)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := app.New(baseConfig(filepath.Join(t.TempDir(), "nope.xlsx")), testLogger(), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
