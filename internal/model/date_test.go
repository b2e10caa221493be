package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateAcceptsISOTimestamp(t *testing.T) {
	d, err := ParseDate("2025-12-10T18:30:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-10", d.String())
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("10/12/2025")
	assert.Error(t, err)
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(time.Date(2025, 12, 9, 23, 59, 0, 0, time.UTC))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-12-09"`, string(out))

	var back Date
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Equal(d.Time))
}

func TestDateEmptyString(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}

func TestDateSameMonth(t *testing.T) {
	assert.True(t, MustDate("2025-12-10").SameMonth(MustDate("2025-12-07")))
	assert.False(t, MustDate("2025-12-10").SameMonth(MustDate("2024-12-10")))
	assert.False(t, MustDate("2025-12-01").SameMonth(MustDate("2025-11-30")))
}
