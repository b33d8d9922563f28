package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// ledger applies balance changes as single conditional UPDATEs so concurrent
// writers can never observe or produce a negative balance.
type ledger struct{ s *sqlStore }

func (l *ledger) TryDebit(ctx context.Context, externalID string, amount int64) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, model.ErrInvalidAmount
	}
	var balance int64
	err := l.s.db.QueryRowContext(ctx, l.s.q(`
        UPDATE principals SET balance = balance - ?
        WHERE external_id = ? AND balance >= ?
        RETURNING balance`), amount, externalID, amount).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}
	current, err := l.Balance(ctx, externalID)
	if err != nil {
		return 0, false, err
	}
	return current, false, nil
}

func (l *ledger) Credit(ctx context.Context, externalID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}
	var balance int64
	err := l.s.db.QueryRowContext(ctx, l.s.q(`
        UPDATE principals SET balance = balance + ?
        WHERE external_id = ?
        RETURNING balance`), amount, externalID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	return balance, err
}

func (l *ledger) SetBalance(ctx context.Context, externalID string, amount int64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}
	res, err := l.s.db.ExecContext(ctx, l.s.q(`UPDATE principals SET balance = ? WHERE external_id = ?`), amount, externalID)
	return affectedOrNotFound(res, err)
}

func (l *ledger) Balance(ctx context.Context, externalID string) (int64, error) {
	var balance int64
	err := l.s.db.QueryRowContext(ctx, l.s.q(`SELECT balance FROM principals WHERE external_id = ?`), externalID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	return balance, err
}
