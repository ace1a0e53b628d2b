package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// VersionHandler reacts to a version created by another process.
type VersionHandler func(ctx context.Context, versionID string) error

// VersionConsumer listens for version-created and version-activated events from other
// replicas and the admin trainer and hands each version id to a handler. Every replica uses its own consumer
// group so each one sees every event.
type VersionConsumer struct {
	reader  messageReader
	handler VersionHandler
	logger  logger.Logger
}

// NewVersionConsumer creates a consumer on the lifecycle topic.
func NewVersionConsumer(cfg config.KafkaConfig, handler VersionHandler, log logger.Logger) *VersionConsumer {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        fmt.Sprintf("riskserve-reload-%s", host),
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	return newVersionConsumer(reader, handler, log)
}

func newVersionConsumer(r messageReader, handler VersionHandler, log logger.Logger) *VersionConsumer {
	return &VersionConsumer{
		reader:  r,
		handler: handler,
		logger:  log.WithComponent("VersionConsumer"),
	}
}

// Run consumes until ctx is cancelled. It is a blocking call.
func (c *VersionConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "starting version event consumer")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info(ctx, "stopping version event consumer")
				return nil
			}
			c.logger.Error(ctx, "failed to fetch message from kafka", err)
			continue
		}

		var event service.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error(ctx, "failed to unmarshal lifecycle event", err, logger.Fields{"kafka_message": string(msg.Value)})
			// commit poison pills so they are not redelivered
			c.commit(ctx, msg)
			continue
		}

		if reloadsOn(event.Type) && event.VersionID != "" {
			if err := c.handler(ctx, event.VersionID); err != nil {
				c.logger.Error(ctx, "failed to handle version event", err, logger.Fields{"version_id": event.VersionID})
				continue
			}
		}
		c.commit(ctx, msg)
	}
}

func reloadsOn(t constants.EventType) bool {
	return t == constants.EventVersionCreated || t == constants.EventVersionActivated
}

func (c *VersionConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Warn(ctx, "failed to commit kafka message", logger.Fields{"error": err.Error(), "offset": msg.Offset})
	}
}

//Personal.AI order the ending
