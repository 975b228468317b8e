// Package apperror defines the error taxonomy of a bulk import run.
//
// Every error the importer cares about wraps one of the sentinels below, so
// callers classify with errors.Is instead of string matching:
//
//	ErrConfiguration, ErrSchema, ErrPersistence → fatal, the run aborts
//	ErrRowValidation, ErrRemoteAPI, ErrTransport → per-row, recorded in the sheet
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrSchema        = errors.New("schema error")
	ErrRowValidation = errors.New("row validation failure")
	ErrRemoteAPI     = errors.New("remote api error")
	ErrTransport     = errors.New("transport error")
	ErrPersistence   = errors.New("persistence error")
)

type AppError struct {
	Err     error  // sentinel (or a wrapped cause chain ending in one)
	Message string // Human-readable error message
	Field   string // Optional: field or column causing the error

	// StatusCode and Body are set for remote API failures.
	StatusCode int
	Body       string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Configuration reports connection settings that are missing or malformed.
func Configuration(message string, fields ...string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: message,
		Field:   strings.Join(fields, ","),
	}
}

// Schema reports required columns missing from the header row.
func Schema(columns ...string) *AppError {
	return &AppError{
		Err:     ErrSchema,
		Message: fmt.Sprintf("missing required columns in row 1: %s", strings.Join(columns, ", ")),
		Field:   strings.Join(columns, ","),
	}
}

// RowValidation reports row fields that are blank.
func RowValidation(fields ...string) *AppError {
	return &AppError{
		Err:     ErrRowValidation,
		Message: fmt.Sprintf("missing required field(s): %s", strings.Join(fields, ", ")),
		Field:   strings.Join(fields, ","),
	}
}

// RemoteAPI reports a creation request the remote service rejected.
func RemoteAPI(statusCode int, reason, body string) *AppError {
	return &AppError{
		Err:        ErrRemoteAPI,
		Message:    reason,
		StatusCode: statusCode,
		Body:       body,
	}
}

// Transport wraps a network-level failure. The cause stays reachable through
// errors.Is/As alongside ErrTransport.
func Transport(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransport, cause),
		Message: cause.Error(),
	}
}

// Persistence wraps a failure to save the workbook.
func Persistence(path string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrPersistence, cause),
		Message: fmt.Sprintf("saving workbook %s: %v", path, cause),
		Field:   path,
	}
}
