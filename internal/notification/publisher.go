package notification

import (
	"context"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zimage-studio/zimage-server/internal/mq"
	"go.uber.org/zap"
)

// Publisher pushes notifications onto the queue instead of into the hub
// directly, so emitting one never blocks or fails the operation that
// triggered it.
type Publisher struct {
	queue  mq.MQ
	logger *zap.Logger
}

func NewPublisher(queue mq.MQ, logger *zap.Logger) *Publisher {
	return &Publisher{
		queue:  queue,
		logger: logger.Named("notifier"),
	}
}

func (p *Publisher) Publish(n Notification) {
	data, err := msgpack.Marshal(&n)
	if err != nil {
		p.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	if err := p.queue.Publish(context.Background(), mq.TopicNotifications, data); err != nil {
		p.logger.Warn("Failed to enqueue notification", zap.Error(err))
	}
}

// RunDispatcher drains the notification topic into the hub until the context
// is cancelled or the queue closes.
func RunDispatcher(ctx context.Context, queue mq.MQ, hub *Hub, logger *zap.Logger) error {
	log := logger.Named("dispatcher")

	for {
		message, err := queue.Receive(ctx, mq.TopicNotifications)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, mq.ErrQueueClosed) || errors.Is(err, mq.ErrTopicClosed) {
				return nil
			}
			return err
		}

		data, err := queue.GetMessageData(message)
		if err != nil {
			log.Error("Failed to read notification message", zap.Error(err))
			continue
		}

		var n Notification
		if err := msgpack.Unmarshal(data, &n); err != nil {
			log.Error("Failed to unmarshal notification", zap.Error(err))
			continue
		}

		queue.Ack(mq.TopicNotifications, message)
		hub.Broadcast(n)
	}
}
