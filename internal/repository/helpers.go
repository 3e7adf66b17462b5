package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result with no error.
// Lookups by client token, wallet token or link code treat a missing row
// as "not paired yet", so callers branch on the nil rather than an error.
//
// Usage:
//
//	var pairing model.Pairing
//	err := r.db.GetContext(ctx, &pairing, query, clientToken)
//	return HandleNotFound(&pairing, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
