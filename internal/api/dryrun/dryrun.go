// Package dryrun provides an api.Creator that never contacts the server.
package dryrun

import (
	"context"
	"log/slog"

	"github.com/sakif/discourse-bulk-users/internal/api"
)

// ResponseText is stored in the "API Response" column for simulated rows.
const ResponseText = "dry run: request not sent"

// Creator simulates a successful creation and counts the requests it saw.
type Creator struct {
	logger *slog.Logger
	calls  int
}

func New(logger *slog.Logger) *Creator {
	return &Creator{logger: logger}
}

// Create implements api.Creator.
func (c *Creator) Create(ctx context.Context, req api.CreateUserRequest) (*api.CreateUserResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.calls++
	c.logger.Debug("dry run: skipping api call", slog.String("username", req.Username))
	return &api.CreateUserResult{Raw: ResponseText, DryRun: true}, nil
}

// Calls returns how many requests were simulated.
func (c *Creator) Calls() int {
	return c.calls
}
