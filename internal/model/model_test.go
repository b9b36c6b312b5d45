package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSONRoundTrip(t *testing.T) {
	event := Event{ID: 7, Title: "Tech Talk", Date: NewDate(2025, time.March, 14), Location: "Hall A", Quota: 30}

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"title":"Tech Talk","date":"2025-03-14","location":"Hall A","quota":30}`, string(raw))

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.True(t, event.Date.Equal(decoded.Date))
}

func TestDate_RejectsMalformed(t *testing.T) {
	for _, in := range []string{`"2025-13-01"`, `"14/03/2025"`, `"2025-03-14T10:00:00Z"`, `20250314`} {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}
}

func TestDateFromTime_DropsClock(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	d := DateFromTime(time.Date(2025, time.May, 2, 23, 59, 0, 0, loc))
	assert.Equal(t, "2025-05-02", d.String())
}

func TestEvent_IsFull(t *testing.T) {
	e := Event{Quota: 2}
	assert.False(t, e.IsFull(1))
	assert.True(t, e.IsFull(2))
	assert.True(t, (&Event{Quota: 0}).IsFull(0))
}
