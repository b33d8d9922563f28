package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

const principalColumns = `id, external_id, username, first_name, last_name, balance, referral_code,
    referred_by, total_referrals, is_banned, banned_at, banned_reason, registered_at, last_active`

// ReferralCodeFor derives a principal's referral code from its external id.
func ReferralCodeFor(externalID string) string { return "REF" + externalID }

type principals struct{ s *sqlStore }

type scanner interface{ Scan(dest ...any) error }

func scanPrincipal(row scanner) (*model.Principal, error) {
	var p model.Principal
	err := row.Scan(&p.ID, &p.ExternalID, &p.Username, &p.FirstName, &p.LastName, &p.Balance,
		&p.ReferralCode, &p.ReferredBy, &p.TotalReferrals, &p.IsBanned, &p.BannedAt,
		&p.BannedReason, &p.RegisteredAt, &p.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *principals) get(ctx context.Context, q queryer, externalID string) (*model.Principal, error) {
	row := q.QueryRowContext(ctx, r.s.q(`SELECT `+principalColumns+` FROM principals WHERE external_id = ?`), externalID)
	return scanPrincipal(row)
}

func (r *principals) Get(ctx context.Context, externalID string) (*model.Principal, error) {
	return r.get(ctx, r.s.db, externalID)
}

func (r *principals) GetByReferralCode(ctx context.Context, code string) (*model.Principal, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.q(`SELECT `+principalColumns+` FROM principals WHERE referral_code = ?`), code)
	return scanPrincipal(row)
}

func (r *principals) Register(ctx context.Context, p store.RegisterParams) (*store.RegisterResult, error) {
	if p.Profile.ExternalID == "" {
		return nil, model.NewValidationError("externalId", "external id is required")
	}
	res, err := r.register(ctx, p)
	if errors.Is(err, model.ErrConflict) {
		// Lost a first-contact race with another insert for the same id.
		return r.register(ctx, p)
	}
	return res, err
}

func (r *principals) register(ctx context.Context, p store.RegisterParams) (*store.RegisterResult, error) {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := r.s.now()
	prof := p.Profile

	existing, err := r.get(ctx, tx, prof.ExternalID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, r.s.q(`
            UPDATE principals SET username = ?, first_name = ?, last_name = ?, last_active = ?
            WHERE external_id = ?`),
			nullable(prof.Username), nullable(prof.FirstName), nullable(prof.LastName), now, prof.ExternalID); err != nil {
			return nil, fmt.Errorf("update principal: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		existing.Username, existing.FirstName, existing.LastName = nullable(prof.Username), nullable(prof.FirstName), nullable(prof.LastName)
		existing.LastActive = now
		return &store.RegisterResult{Principal: existing}, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	var referrer *model.Principal
	if p.ReferralCode != "" {
		row := tx.QueryRowContext(ctx, r.s.q(`SELECT `+principalColumns+` FROM principals WHERE referral_code = ?`), p.ReferralCode)
		ref, err := scanPrincipal(row)
		switch {
		case err == nil:
			referrer = ref
		case !errors.Is(err, model.ErrNotFound):
			return nil, fmt.Errorf("resolve referral code: %w", err)
		}
	}

	balance := p.BaseBalance
	var referredBy *string
	if referrer != nil {
		balance = p.ReferredBonus
		referredBy = &referrer.ExternalID
	}

	ins, err := tx.ExecContext(ctx, r.s.q(`
        INSERT INTO principals (external_id, username, first_name, last_name, balance, referral_code,
            referred_by, total_referrals, is_banned, registered_at, last_active)
        VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
        ON CONFLICT (external_id) DO NOTHING`),
		prof.ExternalID, nullable(prof.Username), nullable(prof.FirstName), nullable(prof.LastName),
		balance, ReferralCodeFor(prof.ExternalID), referredBy, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert principal: %w", err)
	}
	if n, _ := ins.RowsAffected(); n == 0 {
		return nil, model.ErrConflict
	}

	if referrer != nil {
		grant, err := tx.ExecContext(ctx, r.s.q(`
            INSERT INTO referral_grants (referrer_id, referred_id, credits_earned, created_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT (referrer_id, referred_id) DO NOTHING`),
			referrer.ExternalID, prof.ExternalID, p.ReferrerCredit, now)
		if err != nil {
			return nil, fmt.Errorf("insert referral grant: %w", err)
		}
		if n, _ := grant.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx, r.s.q(`
                UPDATE principals SET balance = balance + ?, total_referrals = total_referrals + 1
                WHERE external_id = ?`), p.ReferrerCredit, referrer.ExternalID); err != nil {
				return nil, fmt.Errorf("credit referrer: %w", err)
			}
			referrer.Balance += p.ReferrerCredit
			referrer.TotalReferrals++
		} else {
			r.s.log.Info().Str("referrer", referrer.ExternalID).Str("referred", prof.ExternalID).Msg("referral already logged")
		}
	}

	created, err := r.get(ctx, tx, prof.ExternalID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &store.RegisterResult{Principal: created, Created: true, Referrer: referrer}, nil
}

func (r *principals) Touch(ctx context.Context, externalID string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.q(`UPDATE principals SET last_active = ? WHERE external_id = ?`), r.s.now(), externalID)
	return err
}

func (r *principals) SetBan(ctx context.Context, externalID string, reason *string) error {
	res, err := r.s.db.ExecContext(ctx, r.s.q(`
        UPDATE principals SET is_banned = ?, banned_at = ?, banned_reason = ? WHERE external_id = ?`),
		true, r.s.now(), reason, externalID)
	return affectedOrNotFound(res, err)
}

func (r *principals) Unban(ctx context.Context, externalID string) error {
	res, err := r.s.db.ExecContext(ctx, r.s.q(`
        UPDATE principals SET is_banned = ?, banned_at = NULL, banned_reason = NULL WHERE external_id = ?`),
		false, externalID)
	return affectedOrNotFound(res, err)
}

func (r *principals) Delete(ctx context.Context, externalID string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM seen_results WHERE principal_id = ?`,
		`DELETE FROM search_records WHERE principal_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, r.s.q(stmt), externalID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, r.s.q(`DELETE FROM principals WHERE external_id = ?`), externalID)
	if err := affectedOrNotFound(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *principals) List(ctx context.Context, limit, offset int) ([]*model.Principal, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`SELECT `+principalColumns+` FROM principals
        ORDER BY registered_at DESC, id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	return collectPrincipals(rows)
}

func (r *principals) Search(ctx context.Context, query string, limit int) ([]*model.Principal, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`SELECT `+principalColumns+` FROM principals
        WHERE external_id LIKE ? OR username LIKE ? OR first_name LIKE ? OR last_name LIKE ?
        ORDER BY registered_at DESC, id DESC LIMIT ?`), like, like, like, like, limit)
	if err != nil {
		return nil, err
	}
	return collectPrincipals(rows)
}

func (r *principals) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	now := r.s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	row := r.s.db.QueryRowContext(ctx, r.s.q(`
        SELECT COUNT(*), COALESCE(SUM(balance), 0),
            COALESCE(SUM(CASE WHEN balance < ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN is_banned = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN registered_at >= ? THEN 1 ELSE 0 END), 0)
        FROM principals`), 5, true, startOfDay)
	if err := row.Scan(&st.TotalPrincipals, &st.TotalCredits, &st.LowBalance, &st.BannedPrincipals, &st.RegisteredToday); err != nil {
		return nil, err
	}
	if err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_records`).Scan(&st.TotalSearches); err != nil {
		return nil, err
	}
	return &st, nil
}

func collectPrincipals(rows *sql.Rows) ([]*model.Principal, error) {
	defer rows.Close()
	var out []*model.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
