package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
	"github.com/gurujiofficial51-wq/info1/internal/store/sqlite"
)

func TestFlatten_SkipsMalformed(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []*model.SearchRecord{
		{ID: 3, PrincipalID: "1", SearchInput: "1111111111", ResultsJSON: `[{"id":1,"name":"a"},{"name":"b"}]`, SearchedAt: at},
		{ID: 2, PrincipalID: "1", SearchInput: "2222222222", ResultsJSON: `{not json`, SearchedAt: at},
		{ID: 1, PrincipalID: "1", SearchInput: "3333333333", ResultsJSON: `[{"id":"x9"}]`, SearchedAt: at},
	}

	rows, failures := Flatten(records)
	require.Len(t, rows, 3)
	assert.Equal(t, model.Text("a"), rows[0].Result.Name)
	assert.Equal(t, model.Text("b"), rows[1].Result.Name)
	assert.Equal(t, int64(3), rows[1].RecordID)
	assert.Equal(t, model.ResultID("x9"), rows[2].Result.ID)
	assert.Equal(t, "3333333333", rows[2].SearchInput)

	require.Len(t, failures, 1)
	assert.Equal(t, int64(2), failures[0].RecordID)
	assert.Contains(t, failures[0].Error(), "record 2")
}

func TestFlatten_Empty(t *testing.T) {
	rows, failures := Flatten(nil)
	assert.Empty(t, rows)
	assert.Empty(t, failures)
}

func TestLoad_FromStore(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "h.db"), zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Searches().AppendIfNew(ctx, "1", "9876543210", []model.Result{{ID: "7"}, {Name: "anon"}})
	require.NoError(t, err)
	_, err = st.Searches().AppendIfNew(ctx, "2", "1234567890", []model.Result{{ID: "7"}})
	require.NoError(t, err)

	rows, failures, err := Load(ctx, st.Searches(), store.SearchFilter{PrincipalID: "1"})
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "1", r.PrincipalID)
	}

	all, _, err := Load(ctx, st.Searches(), store.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
