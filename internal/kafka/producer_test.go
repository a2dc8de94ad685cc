package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("keys position events by position id", func(t *testing.T) {
		w := &mockWriter{}
		p := &Producer{writer: w, topic: "portfolio-events"}

		err := p.Publish(ctx, models.PortfolioEvent{
			EventType:  models.EventPositionCreated,
			PositionID: "pos-1",
			Symbol:     "AAPL",
		})
		require.NoError(t, err)
		require.Len(t, w.msgs, 1)
		assert.Equal(t, "pos-1", string(w.msgs[0].Key))

		var got models.PortfolioEvent
		require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
		assert.Equal(t, models.EventPositionCreated, got.EventType)
		assert.Equal(t, "AAPL", got.Symbol)
		assert.False(t, got.Timestamp.IsZero())
	})

	t.Run("keys tag events by tag id", func(t *testing.T) {
		w := &mockWriter{}
		p := &Producer{writer: w}

		require.NoError(t, p.Publish(ctx, models.PortfolioEvent{EventType: models.EventTagDeleted, TagID: "tag-9"}))
		assert.Equal(t, "tag-9", string(w.msgs[0].Key))
	})

	t.Run("wraps write errors", func(t *testing.T) {
		p := &Producer{writer: &mockWriter{err: errors.New("no brokers")}}

		err := p.Publish(ctx, models.PortfolioEvent{EventType: models.EventPositionDeleted, PositionID: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write message to kafka")
	})
}
