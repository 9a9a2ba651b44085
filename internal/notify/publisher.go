package notify

import (
	"context"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Fanout delivers a batch to every configured transport. Each target fails
// independently; one dead transport never blocks the others or the write
// path.
type Fanout struct {
	targets []Publisher
	logger  *zap.Logger
}

// NewFanout creates a Fanout over the given transports.
func NewFanout(logger *zap.Logger, targets ...Publisher) *Fanout {
	return &Fanout{
		targets: targets,
		logger:  logger.Named("fanout"),
	}
}

func (f *Fanout) Publish(ctx context.Context, channel string, batch *Batch) error {
	for _, target := range f.targets {
		if err := target.Publish(ctx, channel, batch); err != nil {
			f.logger.Warn("publish target failed",
				zap.String("channel", channel), zap.Error(err))
		}
	}
	return nil
}

// FCMPublisher pushes aggregated batches to a Firebase Cloud Messaging topic
// named after the channel, for clients subscribed to mobile push.
type FCMPublisher struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMPublisher creates an FCMPublisher.
func NewFCMPublisher(client *messaging.Client, logger *zap.Logger) *FCMPublisher {
	return &FCMPublisher{
		client: client,
		logger: logger.Named("fcm"),
	}
}

func (p *FCMPublisher) Publish(ctx context.Context, channel string, batch *Batch) error {
	msg := &messaging.Message{
		Topic: channel,
		Data: map[string]string{
			"event":      "new-" + channel,
			"count":      strconv.Itoa(len(batch.Posts)),
			"totalCount": strconv.FormatInt(batch.TotalCount, 10),
		},
		Notification: &messaging.Notification{
			Title: "New posts",
			Body:  fmt.Sprintf("%d new posts in your feed", batch.TotalCount),
		},
	}

	id, err := p.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send to topic %q: %w", channel, err)
	}

	p.logger.Debug("sent fcm topic message",
		zap.String("channel", channel), zap.String("messageID", id))
	return nil
}
