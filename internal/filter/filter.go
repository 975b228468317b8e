// Package filter selects which sheet rows a run processes.
//
// A filter is an expr-lang boolean expression evaluated against each row.
// The environment exposes the input columns by name plus every extra
// header-named column under "extra":
//
//	email endsWith "@example.com"
//	extra.department in ["Ops", "Dev"] && password == ""
//
// Rows the filter rejects are left untouched.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/model"
)

// Env is the evaluation environment for one row.
type Env struct {
	Row      int               `expr:"row"`
	Username string            `expr:"username"`
	Email    string            `expr:"email"`
	Name     string            `expr:"name"`
	Password string            `expr:"password"`
	Status   string            `expr:"status"`
	UserID   string            `expr:"user_id"`
	Notes    string            `expr:"notes"`
	Extra    map[string]string `expr:"extra"`
}

// Filter is a compiled row predicate. The zero value (and a nil *Filter)
// matches every row.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile type-checks source against Env. An empty source yields a filter
// that matches everything. Compile errors are configuration errors.
func Compile(source string) (*Filter, error) {
	if source == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, apperror.Configuration(fmt.Sprintf("invalid filter %q: %v", source, err), "filter")
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the filter source.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match reports whether row passes the filter.
func (f *Filter) Match(row model.UserRow) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	extra := row.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	out, err := expr.Run(f.program, Env{
		Row:      row.Index,
		Username: row.Username,
		Email:    row.Email,
		Name:     row.Name,
		Password: row.Password,
		Status:   string(row.Status),
		UserID:   row.UserID,
		Notes:    row.Notes,
		Extra:    extra,
	})
	if err != nil {
		return false, fmt.Errorf("filter: evaluating %q on row %d: %w", f.source, row.Index, err)
	}
	b, _ := out.(bool)
	return b, nil
}
