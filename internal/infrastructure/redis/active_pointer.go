package redis

import (
	"context"
	stderrors "errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/pkg/logger"
)

var _ service.PointerPublisher = (*ActivePointer)(nil)

// VersionHandler is called with every version id announced on the channel.
type VersionHandler func(ctx context.Context, versionID string) error

// ActivePointer stores the serving version under a key and announces changes on a
// pub/sub channel.
type ActivePointer struct {
	conn    *RedisConnection
	key     string
	channel string
	logger  logger.Logger
}

// NewActivePointer creates a pointer bound to the configured key and channel.
func NewActivePointer(conn *RedisConnection, log logger.Logger) *ActivePointer {
	return &ActivePointer{
		conn:    conn,
		key:     conn.config.Key,
		channel: conn.config.Channel,
		logger:  log.WithComponent("ActivePointer"),
	}
}

// PublishActive sets the key and publishes the id in one transaction.
func (p *ActivePointer) PublishActive(ctx context.Context, versionID string) error {
	_, err := p.conn.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.key, versionID, 0)
		pipe.Publish(ctx, p.channel, versionID)
		return nil
	})
	if err != nil {
		p.logger.Error(ctx, "Failed to publish active version", err, logger.Fields{"version_id": versionID})
		return err
	}
	p.logger.Debug(ctx, "Published active version", logger.Fields{"version_id": versionID, "channel": p.channel})
	return nil
}

// ActiveVersion returns the last published id, "" when none was published.
func (p *ActivePointer) ActiveVersion(ctx context.Context) (string, error) {
	id, err := p.conn.client.Get(ctx, p.key).Result()
	if stderrors.Is(err, goredis.Nil) {
		return "", nil
	}
	return id, err
}

// Subscribe blocks delivering announced ids to handler until ctx is cancelled.
// Handler errors are logged and do not stop the subscription.
func (p *ActivePointer) Subscribe(ctx context.Context, handler VersionHandler) error {
	pubsub := p.conn.client.Subscribe(ctx, p.channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed before consuming
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	p.logger.Info(ctx, "Subscribed to active version channel", logger.Fields{"channel": p.channel})

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			versionID := strings.TrimSpace(msg.Payload)
			if versionID == "" {
				continue
			}
			if err := handler(ctx, versionID); err != nil {
				p.logger.Warn(ctx, "Handling announced version failed", logger.Fields{
					"error":      err.Error(),
					"version_id": versionID,
				})
			}
		}
	}
}

//Personal.AI order the ending
