package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewPayload struct {
	ItemID int    `json:"item_id"`
	Name   string `json:"name"`
	Stars  int    `json:"stars"`
}

func decodeEvent(t *testing.T, b []byte) Event {
	t.Helper()
	var e Event
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestNewEvent_Fields(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	data := reviewPayload{ItemID: 1, Name: "Ada", Stars: 5}

	event, err := NewEvent("item.review.added", "item", "1", "catalog-service", at, data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "item.review.added", event.EventType)
	assert.Equal(t, "1", event.AggregateID)
	assert.Equal(t, "item", event.AggregateType)
	assert.Equal(t, "catalog-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, at.UTC(), event.Timestamp)
	assert.Equal(t, time.UTC, event.Timestamp.Location())

	var got reviewPayload
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, data, got)
}

func TestNewEvent_UnserializablePayload(t *testing.T) {
	_, err := NewEvent("item.review.added", "item", "1", "catalog-service", time.Now(), make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item.review.added")
}

func TestEvent_EncodeDecode(t *testing.T) {
	original, err := NewEvent("item.review.added", "item", "7", "catalog-service", time.Now(), reviewPayload{ItemID: 7})
	require.NoError(t, err)
	original.WithCorrelationID("corr-abc")

	b, err := original.Marshal()
	require.NoError(t, err)

	restored := decodeEvent(t, b)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-abc", restored.CorrelationID)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
	assert.WithinDuration(t, original.Timestamp, restored.Timestamp, time.Millisecond)
}

func TestEvent_Chaining(t *testing.T) {
	event := &Event{EventType: "item.review.added"}

	result := event.WithCorrelationID("c1")

	assert.Same(t, event, result)
	assert.Equal(t, "c1", event.CorrelationID)
}
