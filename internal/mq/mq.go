package mq

import (
	"context"
	"errors"

	"github.com/zimage-studio/zimage-server/internal/config"
)

var (
	ErrTopicNotExists = errors.New("topic does not exist")
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueClosed    = errors.New("queue closed")
	ErrTopicClosed    = errors.New("topic closed")
)

// TopicNotifications carries serialized notifications from producers to the
// WebSocket hub dispatcher.
const TopicNotifications = "notifications"

type MQ interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Receive(ctx context.Context, topic string) (interface{}, error)
	GetMessageData(message interface{}) ([]byte, error)
	Ack(topic string, message interface{}) error
	CloseTopic(topic string) error
	Close() error
}

// NewMQ returns the Pulsar queue when a broker is configured and the
// in-process queue otherwise.
func NewMQ(cfg *config.Config) (MQ, error) {
	if cfg != nil && cfg.Pulsar != nil && cfg.Pulsar.URL != "" {
		return NewPulsarMQ(cfg.Pulsar)
	}
	return NewInMemoryMQ(64)
}
