package repository

import (
	"iter"

	"github.com/sakif/discourse-bulk-users/internal/model"
)

// RowRepository is the workbook as seen by the import pipeline: a finite,
// restartable sequence of rows plus in-place result writes and one save.
type RowRepository interface {
	// Rows yields data rows in sheet order. Each call starts over from the
	// first data row. A non-nil error ends the sequence.
	Rows() iter.Seq2[model.UserRow, error]
	// WriteResult stores the row's output columns at its own position.
	WriteResult(row model.UserRow) error
	// SetPassword stores a generated password in the row's password cell.
	SetPassword(index int, password string) error
	// Save persists the workbook to the path it was opened from.
	Save() error
	Close() error
}
