// Package api defines the contract for creating one forum account.
//
// Two implementations exist: discourse.Client talks to the live admin API,
// dryrun.Creator simulates success without touching the network.
package api

import (
	"context"
)

// CreateUserRequest is the payload for one account. Flags come from the
// run configuration, identity fields from the sheet row.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`

	Active                 bool `json:"active"`
	Approved               bool `json:"approved"`
	SuppressWelcomeMessage bool `json:"suppress_welcome_message"`
}

// CreateUserResult is a successful creation (or a simulated one).
type CreateUserResult struct {
	UserID string // empty in dry-run mode
	Raw    string // serialized response payload, stored in the sheet
	DryRun bool
}

// Creator creates a single user account.
//
// Implementations return a *apperror.AppError wrapping ErrRemoteAPI when
// the service rejects the request and ErrTransport when it cannot be
// reached. Neither is fatal to a run.
type Creator interface {
	Create(ctx context.Context, req CreateUserRequest) (*CreateUserResult, error)
}
