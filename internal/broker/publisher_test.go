package appkafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tweetfeed/internal/models"
)

func TestPublisher_WritesKeyedEvent(t *testing.T) {
	mk := &MockKafka{}
	p := NewPublisher(mk)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), models.Event{
		Type:     models.EventUserFollowed,
		ActorID:  "follower",
		TargetID: "followee",
	})
	require.NoError(t, err)

	written := mk.Written()
	require.Len(t, written, 1)
	assert.Equal(t, "follower", string(written[0].Key))
	require.Len(t, written[0].Headers, 1)
	assert.Equal(t, "user_followed", string(written[0].Headers[0].Value))

	ev, err := DecodeEvent(written[0].Value)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, models.EventUserFollowed, ev.Type)
	assert.Equal(t, "followee", ev.TargetID)
	assert.True(t, ev.OccurredAt.Equal(fixed))
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisher(&MockKafkaFail{})
	err := p.Publish(context.Background(), models.Event{Type: models.EventTweetCreated, ActorID: "a"})
	assert.ErrorContains(t, err, "write event")
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte("{invalid-json}"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type":"post_liked","actor_id":"a"}`))
	assert.ErrorContains(t, err, "unknown type")

	_, err = DecodeEvent([]byte(`{"type":"tweet_created"}`))
	assert.ErrorContains(t, err, "missing actor_id")
}

func TestMockKafka_ReadBlocksUntilContextDone(t *testing.T) {
	mk := &MockKafka{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mk.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
