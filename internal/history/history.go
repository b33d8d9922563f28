// Package history rebuilds the flat per-result view of stored search records.
package history

import (
	"context"
	"fmt"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// DecodeFailure notes a stored record whose results could not be decoded.
type DecodeFailure struct {
	RecordID    int64
	PrincipalID string
	Err         error
}

func (f DecodeFailure) Error() string {
	return fmt.Sprintf("record %d (principal %s): %v", f.RecordID, f.PrincipalID, f.Err)
}

// Flatten expands each record into one row per stored result, in record order
// then result order. Malformed records are skipped and reported.
func Flatten(records []*model.SearchRecord) ([]model.HistoryRow, []DecodeFailure) {
	var (
		rows     []model.HistoryRow
		failures []DecodeFailure
	)
	for _, rec := range records {
		results, err := model.DecodeResults(rec.ResultsJSON)
		if err != nil {
			failures = append(failures, DecodeFailure{RecordID: rec.ID, PrincipalID: rec.PrincipalID, Err: err})
			continue
		}
		for _, res := range results {
			rows = append(rows, model.HistoryRow{
				RecordID:    rec.ID,
				PrincipalID: rec.PrincipalID,
				SearchInput: rec.SearchInput,
				SearchedAt:  rec.SearchedAt,
				Result:      res,
			})
		}
	}
	return rows, failures
}

// Load lists records matching f and flattens them.
func Load(ctx context.Context, s store.Searches, f store.SearchFilter) ([]model.HistoryRow, []DecodeFailure, error) {
	records, err := s.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list search records: %w", err)
	}
	rows, failures := Flatten(records)
	return rows, failures, nil
}
