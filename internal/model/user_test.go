package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRow_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		row  UserRow
		want []string
	}{
		{"complete", UserRow{Username: "alice", Email: "a@example.com", Name: "Alice"}, nil},
		{"missing email", UserRow{Username: "bob", Name: "Bob"}, []string{"email"}},
		{"whitespace counts as blank", UserRow{Username: "  ", Email: "c@example.com", Name: "\t"}, []string{"username", "name"}},
		{"all missing", UserRow{}, []string{"username", "email", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.MissingFields())
		})
	}
}

func TestUserRow_ProcessedAndBlank(t *testing.T) {
	assert.True(t, UserRow{UserID: "42"}.Processed())
	assert.False(t, UserRow{UserID: "  "}.Processed())

	assert.True(t, UserRow{Notes: "leftover"}.Blank(), "output columns alone do not make a row non-blank")
	assert.False(t, UserRow{Password: "x"}.Blank())
	assert.False(t, UserRow{UserID: "7"}.Blank())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	for _, s := range []Status{StatusSkipped, StatusInvalidRow, StatusDryRunOK, StatusCreated, StatusFailed} {
		assert.True(t, s.Terminal(), s)
	}
}
