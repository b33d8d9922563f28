package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultID_Canonical(t *testing.T) {
	cases := map[string]ResultID{
		`7`:        "7",
		`7.0`:      "7",
		`"07"`:     "7",
		`" 7 "`:    "7",
		`7e0`:      "7",
		`-3`:       "-3",
		`0`:        "",
		`"0"`:      "",
		`0.0`:      "",
		`""`:       "",
		`null`:     "",
		`7.5`:      "7.5",
		`"abc"`:    "abc",
		`"A-0042"`: "A-0042",
	}
	for raw, want := range cases {
		var id ResultID
		require.NoError(t, json.Unmarshal([]byte(raw), &id), raw)
		assert.Equal(t, want, id, raw)
	}
}

func TestResultID_SameRecordSameID(t *testing.T) {
	var a, b, c Result
	require.NoError(t, json.Unmarshal([]byte(`{"id":7}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":7.0}`), &b))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"07"}`), &c))
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ID, c.ID)

	var zero Result
	require.NoError(t, json.Unmarshal([]byte(`{"id":0,"name":"z"}`), &zero))
	assert.False(t, zero.HasID())
}

func TestText_LenientDecode(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(
		`{"mobile":9876543210,"name":"Ravi","circle":false,"email":null,"address":{"line":"1 Main"}}`), &r))
	assert.Equal(t, Text("9876543210"), r.Mobile)
	assert.Equal(t, Text("Ravi"), r.Name)
	assert.Equal(t, Text("false"), r.Circle)
	assert.Equal(t, Text(""), r.Email)
	assert.Equal(t, Text(`{"line":"1 Main"}`), r.Address)

	out, err := EncodeResults([]Result{r})
	require.NoError(t, err)
	assert.Contains(t, out, `"mobile":"9876543210"`)
}
