package service

import (
	"github.com/sakif/discourse-bulk-users/internal/apperror"
	"github.com/sakif/discourse-bulk-users/internal/model"
)

// Classify decides what happens to a row before any API call.
//
// Order matters:
//
//  1. a row with a user id is Skip, whatever else it contains
//  2. a row with no data at all is Blank
//  3. a row missing username, email or name is Invalid
//  4. anything else Proceeds
//
// For Invalid rows the returned error is an apperror.RowValidation naming
// the blank fields.
func Classify(row model.UserRow) (model.Outcome, error) {
	if row.Processed() {
		return model.OutcomeSkip, nil
	}
	if row.Blank() {
		return model.OutcomeBlank, nil
	}
	if missing := row.MissingFields(); len(missing) > 0 {
		return model.OutcomeInvalid, apperror.RowValidation(missing...)
	}
	return model.OutcomeProceed, nil
}
