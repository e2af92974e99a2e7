package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatISO(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2024, 1, 2, 13, 0, 0, 250*int(time.Millisecond), loc)

	assert.Equal(t, "2024-01-02T10:00:00.250Z", FormatISO(ts))
}

func TestParseISO(t *testing.T) {
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-01-02T10:00:00.000Z",
		"2024-01-02T10:00:00Z",
		"2024-01-02T13:00:00+03:00",
		"2024-01-02T10:00:00",
		"2024-01-02 10:00:00",
		"2024-01-02T10:00",
	} {
		got, err := ParseISO(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %v", in, got)
	}

	_, err := ParseISO("yesterday")
	assert.Error(t, err)
}

func TestEntryJSON_Roundtrip(t *testing.T) {
	e := Entry{
		ID:         "e1",
		Products:   []string{"milk", "nuts"},
		Date:       time.Date(2024, 1, 2, 10, 0, 0, 123*int(time.Millisecond), time.UTC),
		HasAllergy: true,
	}

	got, err := ToJSON(e).Entry()
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Products, got.Products)
	assert.True(t, e.Date.Equal(got.Date))
	assert.True(t, got.HasAllergy)
}

func TestDecodeEntries_BadDate(t *testing.T) {
	_, err := DecodeEntries([]EntryJSON{{ID: "x", Products: []string{"a"}, Date: "nope"}})
	assert.ErrorContains(t, err, "entry x")
}

func TestMirrorRow_Normalizes(t *testing.T) {
	body := `{"entries":[
		{"id":"1","products":["milk"],"entry_date":"2024-01-02T10:00:00","has_allergy":1,"created_at":"2024-01-02T10:00:01"},
		{"id":"2","products":"[\"nuts\",\"eggs\"]","entry_date":"2024-01-03T10:00:00.000Z","has_allergy":false},
		{"id":"3","products":[],"entry_date":"2024-01-04T10:00:00Z","has_allergy":"0"}
	]}`

	var payload MirrorPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Len(t, payload.Entries, 3)

	first, err := payload.Entries[0].Entry()
	require.NoError(t, err)
	assert.True(t, first.HasAllergy)
	assert.Equal(t, []string{"milk"}, first.Products)
	assert.True(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).Equal(first.Date))

	second, err := payload.Entries[1].Entry()
	require.NoError(t, err)
	assert.False(t, second.HasAllergy)
	assert.Equal(t, []string{"nuts", "eggs"}, second.Products)

	third, err := payload.Entries[2].Entry()
	require.NoError(t, err)
	assert.False(t, third.HasAllergy)
}

func TestFlexBool_Invalid(t *testing.T) {
	var b FlexBool
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &b))
}
