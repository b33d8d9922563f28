package ledger

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
	"github.com/gurujiofficial51-wq/info1/internal/store/sqlite"
)

func newLedger(t *testing.T, balance int64) (*Service, store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Principals().Register(ctx, store.RegisterParams{
		Profile:     model.Profile{ExternalID: "42"},
		BaseBalance: balance,
	})
	require.NoError(t, err)
	return NewService(st, zerolog.Nop()), st
}

func TestTryDebit(t *testing.T) {
	svc, _ := newLedger(t, 2)
	ctx := context.Background()

	d, err := svc.TryDebit(ctx, "42", 1)
	require.NoError(t, err)
	assert.Equal(t, Debit{OK: true, Balance: 1}, d)

	d, err = svc.TryDebit(ctx, "42", 2)
	require.NoError(t, err)
	assert.Equal(t, Debit{OK: false, Balance: 1}, d)

	bal, err := svc.Balance(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bal)
}

func TestInvalidAmounts(t *testing.T) {
	svc, _ := newLedger(t, 5)
	ctx := context.Background()

	_, err := svc.TryDebit(ctx, "42", 0)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	_, err = svc.TryDebit(ctx, "42", -3)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	_, err = svc.Credit(ctx, "42", 0)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.ErrorIs(t, svc.SetBalance(ctx, "42", -1), model.ErrInvalidAmount)

	bal, err := svc.Balance(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal)
}

func TestUnknownPrincipal(t *testing.T) {
	svc, _ := newLedger(t, 5)
	ctx := context.Background()

	_, err := svc.TryDebit(ctx, "missing", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.Refund(ctx, "missing", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, svc.SetBalance(ctx, "missing", 3), model.ErrNotFound)
}

func TestRefundRestoresBalance(t *testing.T) {
	svc, _ := newLedger(t, 3)
	ctx := context.Background()

	d, err := svc.TryDebit(ctx, "42", 1)
	require.NoError(t, err)
	require.True(t, d.OK)

	bal, err := svc.Refund(ctx, "42", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bal)
}

func TestBalanceNeverNegative_RandomSequence(t *testing.T) {
	svc, _ := newLedger(t, 3)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	expected := int64(3)

	for i := 0; i < 200; i++ {
		amount := int64(rng.Intn(4) + 1)
		if rng.Intn(3) == 0 {
			bal, err := svc.Credit(ctx, "42", amount)
			require.NoError(t, err)
			expected += amount
			require.Equal(t, expected, bal)
			continue
		}
		d, err := svc.TryDebit(ctx, "42", amount)
		require.NoError(t, err)
		if expected >= amount {
			require.True(t, d.OK)
			expected -= amount
		} else {
			require.False(t, d.OK)
		}
		require.Equal(t, expected, d.Balance)
		require.GreaterOrEqual(t, d.Balance, int64(0))
	}
}

func TestConcurrentDebitsSerialize(t *testing.T) {
	svc, _ := newLedger(t, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan Debit, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.TryDebit(ctx, "42", 1)
			if err == nil {
				results <- d
			}
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for d := range results {
		if d.OK {
			ok++
		}
		assert.GreaterOrEqual(t, d.Balance, int64(0))
	}
	assert.Equal(t, 5, ok)
}
