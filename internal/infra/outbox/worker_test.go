package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentme/internal/app/outbox"
	"rentme/internal/infra/outbox"
	"rentme/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	sent []published
	err  error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic, key, payload, headers})
	return nil
}

func seed(t *testing.T, box *memory.Outbox) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         "ev-1",
		Name:       "booking.confirmed",
		Payload:    []byte(`{"BookingID":"bk-1"}`),
		OccurredAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}))
}

func TestWorkerRelaysCloudEvents(t *testing.T) {
	box := memory.NewOutbox(memory.NewStore())
	seed(t, box)
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, TopicPrefix: "staging.", ID: "w-1"}

	more, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	assert.Empty(t, box.Pending())

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "staging.booking.events.v1", msg.topic)
	assert.Equal(t, "bk-1", msg.key)
	assert.Equal(t, "ev-1", msg.headers["ce_id"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "00-abc-def-01", evt["traceparent"])
	assert.Equal(t, map[string]any{"BookingID": "bk-1"}, evt["data"])

	more, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
}

func TestWorkerBacksOffOnPublishFailure(t *testing.T) {
	box := memory.NewOutbox(memory.NewStore())
	seed(t, box)
	producer := &fakeProducer{err: errors.New("broker down")}
	w := &outbox.Worker{Store: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	more, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, []string{"booking.confirmed"}, box.Pending())

	// not due again until the backoff has passed
	more, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&outbox.Worker{}).Run(context.Background()), outbox.ErrWorkerNotConfigured)
}
