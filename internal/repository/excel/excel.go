// Package excel implements repository.RowRepository on an .xlsx workbook
// using excelize.
//
// The first row of the active sheet is the header. Columns are found by
// name (trimmed, case-insensitive), never by position, so a sheet that was
// already annotated by an earlier run keeps its layout:
//
//	username | email | name | password | ...extra... | User Status | API Response | User ID | Notes
//
// Missing output columns are appended to the right of the widest row.
package excel

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/model"
)

// Input column names (normalized).
const (
	ColUsername = "username"
	ColEmail    = "email"
	ColName     = "name"
	ColPassword = "password"
)

// Output column headers as written into the sheet.
const (
	HeaderStatus      = "User Status"
	HeaderAPIResponse = "API Response"
	HeaderUserID      = "User ID"
	HeaderNotes       = "Notes"
)

var (
	requiredColumns = []string{ColUsername, ColEmail, ColName}
	outputHeaders   = []string{HeaderStatus, HeaderAPIResponse, HeaderUserID, HeaderNotes}
	supportedExts   = map[string]bool{".xlsx": true, ".xlsm": true, ".xltx": true, ".xltm": true}
)

// ErrUnsupportedFile is returned for paths that are not Office Open XML
// spreadsheets.
var ErrUnsupportedFile = errors.New("excel: file must be an .xlsx or .xlsm workbook")

// Workbook wraps an open excelize file and the header layout of its active
// sheet.
type Workbook struct {
	file  *excelize.File
	path  string
	sheet string

	columns map[string]int // normalized header → 1-based column number
	headers []string       // normalized headers in column order, for Extra
	maxCol  int
	lastRow int
}

// Open loads the workbook at path, validates its header and appends any
// missing output columns (in memory; nothing is written until Save).
//
// A SchemaError is returned when username, email or name is missing.
func Open(path string) (*Workbook, error) {
	if err := ValidateFile(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("excel: opening %s: %w", path, err)
	}

	wb := &Workbook{
		file:    f,
		path:    path,
		sheet:   f.GetSheetName(f.GetActiveSheetIndex()),
		columns: make(map[string]int),
	}
	if err := wb.loadHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return wb, nil
}

// ValidateFile checks that path names an existing regular file with a
// supported extension.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("excel: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("excel: %s is a directory", path)
	}
	if !supportedExts[strings.ToLower(filepath.Ext(path))] {
		return ErrUnsupportedFile
	}
	return nil
}

func (wb *Workbook) loadHeader() error {
	rows, err := wb.file.GetRows(wb.sheet)
	if err != nil {
		return fmt.Errorf("excel: reading sheet %q: %w", wb.sheet, err)
	}

	wb.lastRow = len(rows)
	for _, row := range rows {
		wb.maxCol = max(wb.maxCol, len(row))
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	for i, cell := range header {
		key := normalize(cell)
		if key == "" {
			continue
		}
		if _, dup := wb.columns[key]; dup {
			continue
		}
		wb.columns[key] = i + 1
		wb.headers = append(wb.headers, key)
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := wb.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperror.Schema(missing...)
	}

	for _, h := range outputHeaders {
		if err := wb.ensureColumn(h); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn appends header to the right of the sheet when no column
// with that name exists yet.
func (wb *Workbook) ensureColumn(header string) error {
	key := normalize(header)
	if _, ok := wb.columns[key]; ok {
		return nil
	}
	wb.maxCol++
	cell, err := excelize.CoordinatesToCellName(wb.maxCol, 1)
	if err != nil {
		return fmt.Errorf("excel: locating column %q: %w", header, err)
	}
	if err := wb.file.SetCellStr(wb.sheet, cell, header); err != nil {
		return fmt.Errorf("excel: writing header %q: %w", header, err)
	}
	wb.columns[key] = wb.maxCol
	wb.headers = append(wb.headers, key)
	return nil
}

// Path returns the file the workbook was opened from and will be saved to.
func (wb *Workbook) Path() string { return wb.path }

// Sheet returns the name of the sheet being processed.
func (wb *Workbook) Sheet() string { return wb.sheet }

// Column returns the 1-based column of a header, matched like the loader
// matches them.
func (wb *Workbook) Column(header string) (int, bool) {
	col, ok := wb.columns[normalize(header)]
	return col, ok
}

// Rows implements repository.RowRepository. Cells are read on demand, so a
// second pass sees the writes made during the first.
func (wb *Workbook) Rows() iter.Seq2[model.UserRow, error] {
	return func(yield func(model.UserRow, error) bool) {
		for idx := 2; idx <= wb.lastRow; idx++ {
			row, err := wb.readRow(idx)
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

func (wb *Workbook) readRow(idx int) (model.UserRow, error) {
	row := model.UserRow{Index: idx, Status: model.StatusPending}

	values := make(map[string]string, len(wb.headers))
	for _, key := range wb.headers {
		v, err := wb.cell(key, idx)
		if err != nil {
			return model.UserRow{}, err
		}
		values[key] = v
	}

	row.Username = values[ColUsername]
	row.Email = values[ColEmail]
	row.Name = values[ColName]
	row.Password = values[ColPassword]
	if s := values[normalize(HeaderStatus)]; s != "" {
		row.Status = model.Status(s)
	}
	row.APIResponse = values[normalize(HeaderAPIResponse)]
	row.UserID = values[normalize(HeaderUserID)]
	row.Notes = values[normalize(HeaderNotes)]

	known := map[string]bool{ColUsername: true, ColEmail: true, ColName: true, ColPassword: true}
	for _, h := range outputHeaders {
		known[normalize(h)] = true
	}
	for _, key := range wb.headers {
		if known[key] {
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]string)
		}
		row.Extra[key] = values[key]
	}
	return row, nil
}

func (wb *Workbook) cell(key string, idx int) (string, error) {
	col, ok := wb.columns[key]
	if !ok {
		return "", nil
	}
	name, err := excelize.CoordinatesToCellName(col, idx)
	if err != nil {
		return "", fmt.Errorf("excel: locating %s in row %d: %w", key, idx, err)
	}
	v, err := wb.file.GetCellValue(wb.sheet, name)
	if err != nil {
		return "", fmt.Errorf("excel: reading %s: %w", name, err)
	}
	return strings.TrimSpace(v), nil
}

// WriteResult implements repository.RowRepository. Cells whose value is
// unchanged are left alone so their type and formatting survive.
func (wb *Workbook) WriteResult(row model.UserRow) error {
	for _, out := range []struct {
		header string
		value  string
	}{
		{HeaderStatus, string(row.Status)},
		{HeaderAPIResponse, row.APIResponse},
		{HeaderUserID, row.UserID},
		{HeaderNotes, row.Notes},
	} {
		if err := wb.setIfChanged(normalize(out.header), row.Index, out.value); err != nil {
			return err
		}
	}
	return nil
}

// SetPassword implements repository.RowRepository. A sheet without a
// password column gets one appended.
func (wb *Workbook) SetPassword(index int, password string) error {
	if err := wb.ensureColumn(ColPassword); err != nil {
		return err
	}
	return wb.setIfChanged(ColPassword, index, password)
}

func (wb *Workbook) setIfChanged(key string, idx int, value string) error {
	if idx < 2 {
		return fmt.Errorf("excel: refusing to write %s into header row", key)
	}
	current, err := wb.cell(key, idx)
	if err != nil {
		return err
	}
	if current == value {
		return nil
	}
	name, err := excelize.CoordinatesToCellName(wb.columns[key], idx)
	if err != nil {
		return fmt.Errorf("excel: locating %s in row %d: %w", key, idx, err)
	}
	if err := wb.file.SetCellStr(wb.sheet, name, value); err != nil {
		return fmt.Errorf("excel: writing %s: %w", name, err)
	}
	return nil
}

// Save implements repository.RowRepository, overwriting the original file.
func (wb *Workbook) Save() error {
	if err := wb.file.SaveAs(wb.path); err != nil {
		return apperror.Persistence(wb.path, err)
	}
	return nil
}

// Close releases the temporary files excelize may hold.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
