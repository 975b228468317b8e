// Package model defines the data structures used throughout the application.
package model

import "strings"

// Status is the processing outcome written to the "User Status" column.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusSkipped    Status = "Skipped"
	StatusInvalidRow Status = "Invalid row"
	StatusDryRunOK   Status = "Dry run OK"
	StatusCreated    Status = "Created"
	StatusFailed     Status = "Failed"
)

// Terminal reports whether s is one of the states a processed row ends in.
func (s Status) Terminal() bool {
	switch s {
	case StatusSkipped, StatusInvalidRow, StatusDryRunOK, StatusCreated, StatusFailed:
		return true
	}
	return false
}

// UserRow is one spreadsheet row: the account to create plus its outcome.
//
// Index is the 1-based sheet row number (the header is row 1, so data rows
// start at 2). A row is read once, mutated in place by the pipeline and
// written back to the same position; rows are never deleted.
type UserRow struct {
	Index int

	// Input columns.
	Username string
	Email    string
	Name     string
	Password string // optional; generated when empty

	// Output columns.
	Status      Status
	APIResponse string
	UserID      string
	Notes       string

	// Extra holds every other header-named cell, keyed by normalized header.
	// It is read-only and exists for row filters.
	Extra map[string]string
}

// MissingFields returns the required input fields that are blank, in column
// order (username, email, name).
func (r UserRow) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"username", r.Username},
		{"email", r.Email},
		{"name", r.Name},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Processed reports whether the remote system already assigned this row an id.
func (r UserRow) Processed() bool {
	return strings.TrimSpace(r.UserID) != ""
}

// Blank reports whether the row carries no data at all. Such rows are
// typically formatting leftovers below the real data.
func (r UserRow) Blank() bool {
	for _, v := range []string{r.Username, r.Email, r.Name, r.Password, r.UserID} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
