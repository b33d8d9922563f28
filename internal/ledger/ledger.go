// Package ledger is the balance ledger: debits, credits and refunds against a
// principal's non-negative integer balance.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/metrics"
	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// Debit is the result of TryDebit. When OK is false nothing changed and
// Balance is the balance that failed to cover the amount.
type Debit struct {
	OK      bool
	Balance int64
}

// Service applies balance mutations through the store's conditional updates.
type Service struct {
	ledger store.Ledger
	log    zerolog.Logger
}

func NewService(s store.Store, log zerolog.Logger) *Service {
	return &Service{ledger: s.Ledger(), log: log.With().Str("component", "ledger").Logger()}
}

// TryDebit decrements the balance by amount when it covers it.
func (s *Service) TryDebit(ctx context.Context, principalID string, amount int64) (Debit, error) {
	if amount <= 0 {
		return Debit{}, fmt.Errorf("debit %d: %w", amount, model.ErrInvalidAmount)
	}
	balance, ok, err := s.ledger.TryDebit(ctx, principalID, amount)
	if err != nil {
		return Debit{}, fmt.Errorf("debit %s: %w", principalID, err)
	}
	if !ok {
		metrics.DebitsRejectedTotal.Inc()
		s.log.Debug().Str("principal", principalID).Int64("balance", balance).Int64("amount", amount).Msg("debit rejected")
	}
	return Debit{OK: ok, Balance: balance}, nil
}

// Credit increments the balance and returns the new value.
func (s *Service) Credit(ctx context.Context, principalID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, model.ErrInvalidAmount)
	}
	balance, err := s.ledger.Credit(ctx, principalID, amount)
	if err != nil {
		return 0, fmt.Errorf("credit %s: %w", principalID, err)
	}
	return balance, nil
}

// Refund reverses an earlier debit.
func (s *Service) Refund(ctx context.Context, principalID string, amount int64) (int64, error) {
	balance, err := s.Credit(ctx, principalID, amount)
	if err != nil {
		s.log.Error().Err(err).Str("principal", principalID).Int64("amount", amount).Msg("refund failed")
		return 0, err
	}
	metrics.RefundsTotal.Inc()
	s.log.Info().Str("principal", principalID).Int64("amount", amount).Int64("balance", balance).Msg("credit refunded")
	return balance, nil
}

// SetBalance overwrites the balance. Administrative use only.
func (s *Service) SetBalance(ctx context.Context, principalID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("set balance %d: %w", amount, model.ErrInvalidAmount)
	}
	if err := s.ledger.SetBalance(ctx, principalID, amount); err != nil {
		return fmt.Errorf("set balance %s: %w", principalID, err)
	}
	s.log.Info().Str("principal", principalID).Int64("balance", amount).Msg("balance set")
	return nil
}

func (s *Service) Balance(ctx context.Context, principalID string) (int64, error) {
	return s.ledger.Balance(ctx, principalID)
}
