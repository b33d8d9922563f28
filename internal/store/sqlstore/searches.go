package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

type searches struct{ s *sqlStore }

func (r *searches) AppendIfNew(ctx context.Context, principalID, input string, results []model.Result) (int, error) {
	if principalID == "" {
		return 0, model.NewValidationError("principalId", "principal id is required")
	}
	if len(results) == 0 {
		return 0, nil
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	fresh := make([]model.Result, 0, len(results))
	batch := make(map[model.ResultID]struct{}, len(results))
	for _, res := range results {
		if !res.HasID() {
			fresh = append(fresh, res)
			continue
		}
		if _, dup := batch[res.ID]; dup {
			continue
		}
		seen, err := r.seen(ctx, tx, principalID, res.ID)
		if err != nil {
			return 0, err
		}
		if seen {
			r.s.log.Debug().Str("principal", principalID).Str("result_id", string(res.ID)).Msg("result already stored, skipping")
			continue
		}
		batch[res.ID] = struct{}{}
		fresh = append(fresh, res)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	encoded, err := model.EncodeResults(fresh)
	if err != nil {
		return 0, err
	}
	now := r.s.now()
	if _, err := tx.ExecContext(ctx, r.s.q(`
        INSERT INTO search_records (principal_id, search_input, results_json, searched_at)
        VALUES (?, ?, ?, ?)`), principalID, input, encoded, now); err != nil {
		return 0, fmt.Errorf("insert search record: %w", err)
	}
	for id := range batch {
		if err := r.markSeen(ctx, tx, principalID, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

func (r *searches) seen(ctx context.Context, tx *sql.Tx, principalID string, id model.ResultID) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, r.s.q(`SELECT 1 FROM seen_results WHERE principal_id = ? AND result_id = ?`),
		principalID, string(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check seen result: %w", err)
	}
	return true, nil
}

func (r *searches) markSeen(ctx context.Context, q queryer, principalID string, id model.ResultID) error {
	_, err := q.ExecContext(ctx, r.s.q(`
        INSERT INTO seen_results (principal_id, result_id, first_seen_at) VALUES (?, ?, ?)
        ON CONFLICT (principal_id, result_id) DO NOTHING`), principalID, string(id), r.s.now())
	if err != nil {
		return fmt.Errorf("mark result seen: %w", err)
	}
	return nil
}

func (r *searches) List(ctx context.Context, f store.SearchFilter) ([]*model.SearchRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, principal_id, search_input, results_json, searched_at FROM search_records`
	var args []any
	if f.PrincipalID != "" {
		query += ` WHERE principal_id = ?`
		args = append(args, f.PrincipalID)
	}
	query += ` ORDER BY searched_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.s.db.QueryContext(ctx, r.s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SearchRecord
	for rows.Next() {
		var rec model.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.PrincipalID, &rec.SearchInput, &rec.ResultsJSON, &rec.SearchedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *searches) Count(ctx context.Context, principalID string) (int64, error) {
	var n int64
	var err error
	if principalID == "" {
		err = r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_records`).Scan(&n)
	} else {
		err = r.s.db.QueryRowContext(ctx, r.s.q(`SELECT COUNT(*) FROM search_records WHERE principal_id = ?`), principalID).Scan(&n)
	}
	return n, err
}

func (r *searches) Clear(ctx context.Context, principalID string) (int64, error) {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if principalID == "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM seen_results`); err != nil {
			return 0, err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM search_records`)
	} else {
		if _, err := tx.ExecContext(ctx, r.s.q(`DELETE FROM seen_results WHERE principal_id = ?`), principalID); err != nil {
			return 0, err
		}
		res, err = tx.ExecContext(ctx, r.s.q(`DELETE FROM search_records WHERE principal_id = ?`), principalID)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (r *searches) RebuildSeenIndex(ctx context.Context) (int64, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, principal_id, results_json FROM search_records ORDER BY id ASC`)
	if err != nil {
		return 0, err
	}
	type pending struct {
		principal string
		id        model.ResultID
	}
	var marks []pending
	for rows.Next() {
		var (
			recID     int64
			principal string
			raw       string
		)
		if err := rows.Scan(&recID, &principal, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		results, err := model.DecodeResults(raw)
		if err != nil {
			r.s.log.Warn().Err(err).Int64("record_id", recID).Msg("skipping malformed search record")
			continue
		}
		for _, res := range results {
			if res.HasID() {
				marks = append(marks, pending{principal: principal, id: res.ID})
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	var inserted int64
	for _, m := range marks {
		res, err := tx.ExecContext(ctx, r.s.q(`
            INSERT INTO seen_results (principal_id, result_id, first_seen_at) VALUES (?, ?, ?)
            ON CONFLICT (principal_id, result_id) DO NOTHING`), m.principal, string(m.id), r.s.now())
		if err != nil {
			return 0, fmt.Errorf("rebuild seen index: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += n
		}
	}
	return inserted, tx.Commit()
}

type referrals struct{ s *sqlStore }

func (r *referrals) EarnedBy(ctx context.Context, referrerID string) (int64, error) {
	var total int64
	err := r.s.db.QueryRowContext(ctx, r.s.q(`
        SELECT COALESCE(SUM(credits_earned), 0) FROM referral_grants WHERE referrer_id = ?`), referrerID).Scan(&total)
	return total, err
}

func (r *referrals) ListBy(ctx context.Context, referrerID string) ([]*model.ReferralGrant, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`
        SELECT id, referrer_id, referred_id, credits_earned, created_at
        FROM referral_grants WHERE referrer_id = ? ORDER BY created_at ASC, id ASC`), referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ReferralGrant
	for rows.Next() {
		var g model.ReferralGrant
		if err := rows.Scan(&g.ID, &g.ReferrerID, &g.ReferredID, &g.CreditsEarned, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
