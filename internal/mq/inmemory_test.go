package mq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReceive(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Publish(context.Background(), "t", []byte("hello")))

	message, err := q.Receive(context.Background(), "t")
	require.NoError(t, err)

	data, err := q.GetMessageData(message)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestPublishFullTopic(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Publish(context.Background(), "t", []byte("a")))
	assert.ErrorIs(t, q.Publish(context.Background(), "t", []byte("b")), ErrQueueFull)
}

func TestReceiveAfterClose(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	require.NoError(t, q.Close())

	_, err = q.Receive(context.Background(), "t")
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestReceiveCancelledContext(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = q.Receive(ctx, "t")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseTopic(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer q.Close()

	assert.ErrorIs(t, q.CloseTopic("missing"), ErrTopicNotExists)

	require.NoError(t, q.Publish(context.Background(), "t", []byte("a")))
	require.NoError(t, q.CloseTopic("t"))

	// Drain the buffered message, then observe the closed topic.
	_, err = q.Receive(context.Background(), "t")
	require.NoError(t, err)
	_, err = q.Receive(context.Background(), "t")
	assert.ErrorIs(t, err, ErrTopicClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
