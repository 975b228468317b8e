// Package service contains the row-processing pipeline.
//
// THE PIPELINE:
//
//	RowRepository.Rows → Filter → Classify ─┬─ Skip / Invalid ───────────────────────┐
//	                                        └─ Proceed → password → api.Creator ──┴→ WriteResult
//
// Rows are handled strictly one at a time, in sheet order. Per-row failures
// (validation, filter evaluation, remote rejections, network errors) are
// recorded in the row and never stop the run; only repository failures are
// fatal, and even then the rows written so far are saved first.
//
// DEPENDENCY INJECTION:
// ImportService takes interfaces (repository.RowRepository, api.Creator) so
// tests can run the whole pipeline against fakes with plain function calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/discourse-bulk-users/internal/api"
	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/auth"
	"github.com/sakif/discourse-bulk-users/internal/filter"
	"github.com/sakif/discourse-bulk-users/internal/model"
	"github.com/sakif/discourse-bulk-users/internal/repository"
)

// Notes written for outcomes that carry no remote reason.
const (
	NoteAlreadyProcessed = "already processed"
	NoteDryRun           = "dry run: no API call made"
	transportNotePrefix  = "transport error: "
)

// Options are the per-run behaviour flags the pipeline needs.
type Options struct {
	Active                 bool
	Approved               bool
	SuppressWelcomeMessage bool

	// SaveEvery > 0 saves after every SaveEvery processed rows, so a crash
	// loses at most that many results. The final save always happens.
	SaveEvery int
}

// ImportService runs one import over a workbook.
//
// DEPENDENCIES (injected via NewImportService):
//   - rows       repository.RowRepository → the workbook, input and ledger
//   - creator    api.Creator              → live Discourse client or dry run
//   - passwords  *auth.PasswordGenerator  → one per run, for empty password cells
//   - filter     *filter.Filter           → optional row selection (nil = all)
//   - logger     *slog.Logger             → structured logging
type ImportService struct {
	rows      repository.RowRepository
	creator   api.Creator
	passwords *auth.PasswordGenerator
	filter    *filter.Filter
	opts      Options
	logger    *slog.Logger
}

// NewImportService creates an ImportService with all required dependencies.
func NewImportService(
	rows repository.RowRepository,
	creator api.Creator,
	passwords *auth.PasswordGenerator,
	f *filter.Filter,
	opts Options,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		rows:      rows,
		creator:   creator,
		passwords: passwords,
		filter:    f,
		opts:      opts,
		logger:    logger,
	}
}

// Run processes every row and saves the workbook.
//
// When ctx is cancelled the row in flight completes, the results gathered
// so far are saved, and ctx.Err() is returned together with the summary.
// A save failure is returned as an apperror.ErrPersistence. Any other fatal
// error still saves the rows written before it.
func (s *ImportService) Run(ctx context.Context) (model.Summary, error) {
	var (
		summary   model.Summary
		sinceSave int
		stopErr   error
	)

	for row, err := range s.rows.Rows() {
		if err != nil {
			return summary, s.abort(fmt.Errorf("service/import: reading rows: %w", err))
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("import interrupted, saving progress", slog.Int("row", row.Index))
			stopErr = err
			break
		}

		ok, err := s.filter.Match(row)
		if err != nil {
			row, ok = s.filterFailure(row, err)
			if !ok {
				summary.Filtered++
				continue
			}
			if err := s.rows.WriteResult(row); err != nil {
				return summary, s.abort(fmt.Errorf("service/import: writing row %d: %w", row.Index, err))
			}
			s.logRow(row)
			count(&summary, row.Status)
			continue
		}
		if !ok {
			summary.Filtered++
			s.logger.Debug("row excluded by filter", slog.Int("row", row.Index))
			continue
		}

		result, touched, err := s.ProcessRow(ctx, row)
		if err != nil {
			return summary, s.abort(err)
		}
		if !touched {
			continue
		}
		count(&summary, result.Status)

		sinceSave++
		if s.opts.SaveEvery > 0 && sinceSave >= s.opts.SaveEvery {
			if err := s.rows.Save(); err != nil {
				return summary, err
			}
			s.logger.Debug("checkpoint saved", slog.Int("row", row.Index))
			sinceSave = 0
		}
	}
	if stopErr == nil {
		stopErr = ctx.Err()
	}

	if err := s.rows.Save(); err != nil {
		return summary, err
	}

	s.logger.Info("import finished",
		slog.Int("processed", summary.Processed),
		slog.Int("created", summary.Created),
		slog.Int("dryRun", summary.DryRun),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("invalid", summary.Invalid),
		slog.Int("filtered", summary.Filtered),
	)
	return summary, stopErr
}

// ProcessRow classifies one row, calls the API when appropriate and writes
// the outcome back. touched is false for blank rows, which are left as they
// are. The returned error is only non-nil for repository failures.
func (s *ImportService) ProcessRow(ctx context.Context, row model.UserRow) (result model.UserRow, touched bool, err error) {
	outcome, verr := Classify(row)

	switch outcome {
	case model.OutcomeBlank:
		return row, false, nil

	case model.OutcomeSkip:
		row.Status = model.StatusSkipped
		row.Notes = NoteAlreadyProcessed

	case model.OutcomeInvalid:
		row.Status = model.StatusInvalidRow
		row.APIResponse = ""
		row.Notes = verr.Error()

	case model.OutcomeProceed:
		row, err = s.createUser(ctx, row)
		if err != nil {
			return row, true, err
		}
	}

	if err := s.rows.WriteResult(row); err != nil {
		return row, true, fmt.Errorf("service/import: writing row %d: %w", row.Index, err)
	}
	s.logRow(row)
	return row, true, nil
}

func (s *ImportService) createUser(ctx context.Context, row model.UserRow) (model.UserRow, error) {
	if row.Password == "" {
		pw, err := s.passwords.Generate()
		if err != nil {
			return row, fmt.Errorf("service/import: row %d: %w", row.Index, err)
		}
		if err := s.rows.SetPassword(row.Index, pw); err != nil {
			return row, fmt.Errorf("service/import: storing password for row %d: %w", row.Index, err)
		}
		row.Password = pw
	}

	// The request is not tied to ctx: once sent, the forum may create the
	// account, and the id it returns must reach the sheet. The client
	// timeout still bounds the call.
	res, err := s.creator.Create(context.WithoutCancel(ctx), api.CreateUserRequest{
		Username:               row.Username,
		Email:                  row.Email,
		Name:                   row.Name,
		Password:               row.Password,
		Active:                 s.opts.Active,
		Approved:               s.opts.Approved,
		SuppressWelcomeMessage: s.opts.SuppressWelcomeMessage,
	})
	if err != nil {
		return recordFailure(row, err), nil
	}

	row.UserID = res.UserID
	row.APIResponse = res.Raw
	if res.DryRun {
		row.Status = model.StatusDryRunOK
		row.UserID = ""
		row.Notes = NoteDryRun
	} else {
		row.Status = model.StatusCreated
		row.Notes = ""
	}
	return row, nil
}

// abort saves the rows written so far and returns err, joined with the save
// error if that fails too.
func (s *ImportService) abort(err error) error {
	if saveErr := s.rows.Save(); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	s.logger.Warn("import stopped early, progress saved", slog.String("error", err.Error()))
	return err
}

// filterFailure handles a row the filter could not evaluate. Rows that
// would be skipped or ignored anyway are left alone (ok is false); any
// other row is recorded as invalid so it is never sent unfiltered.
func (s *ImportService) filterFailure(row model.UserRow, err error) (model.UserRow, bool) {
	if outcome, _ := Classify(row); outcome == model.OutcomeSkip || outcome == model.OutcomeBlank {
		s.logger.Debug("filter error on processed row", slog.Int("row", row.Index), slog.String("error", err.Error()))
		return row, false
	}
	row.Status = model.StatusInvalidRow
	row.APIResponse = ""
	row.Notes = err.Error()
	return row, true
}

// recordFailure maps a creation error onto the row's output columns.
func recordFailure(row model.UserRow, err error) model.UserRow {
	row.Status = model.StatusFailed
	row.UserID = ""

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrTransport):
		row.APIResponse = transportNotePrefix + err.Error()
		row.Notes = transportNotePrefix + err.Error()
	case errors.Is(err, apperror.ErrRemoteAPI) && errors.As(err, &appErr):
		row.APIResponse = appErr.Body
		if row.APIResponse == "" {
			row.APIResponse = fmt.Sprintf("HTTP %d", appErr.StatusCode)
		}
		row.Notes = appErr.Message
	default:
		row.APIResponse = err.Error()
		row.Notes = err.Error()
	}
	return row
}

func (s *ImportService) logRow(row model.UserRow) {
	attrs := []any{
		slog.Int("row", row.Index),
		slog.String("username", row.Username),
		slog.String("status", string(row.Status)),
	}
	switch row.Status {
	case model.StatusFailed:
		s.logger.Warn("row failed", append(attrs, slog.String("notes", row.Notes))...)
	case model.StatusInvalidRow:
		s.logger.Warn("row invalid", append(attrs, slog.String("notes", row.Notes))...)
	case model.StatusCreated:
		s.logger.Info("row processed", append(attrs, slog.String("userID", row.UserID))...)
	default:
		s.logger.Info("row processed", attrs...)
	}
}

func count(s *model.Summary, status model.Status) {
	if !status.Terminal() {
		return
	}
	s.Processed++
	switch status {
	case model.StatusCreated:
		s.Created++
	case model.StatusDryRunOK:
		s.DryRun++
	case model.StatusFailed:
		s.Failed++
	case model.StatusSkipped:
		s.Skipped++
	case model.StatusInvalidRow:
		s.Invalid++
	}
}
