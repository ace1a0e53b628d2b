package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

// scriptedReader replays messages, then blocks until the context ends.
type scriptedReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func eventMessage(t *testing.T, offset int64, event service.LifecycleEvent) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: raw}
}

func TestVersionConsumer_Run(t *testing.T) {
	reader := &scriptedReader{msgs: []kafka.Message{
		eventMessage(t, 1, service.LifecycleEvent{Type: constants.EventVersionCreated, VersionID: "v1"}),
		{Offset: 2, Value: []byte("not json")},
		eventMessage(t, 3, service.LifecycleEvent{Type: constants.EventCorrectionFailed}),
		eventMessage(t, 4, service.LifecycleEvent{Type: constants.EventVersionCreated, VersionID: "v2"}),
		eventMessage(t, 5, service.LifecycleEvent{Type: constants.EventVersionActivated, VersionID: "v3"}),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	handler := func(_ context.Context, id string) error {
		handled = append(handled, id)
		if id == "v3" {
			cancel()
		}
		return nil
	}

	c := newVersionConsumer(reader, handler, logger.NewNoopLogger())
	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []string{"v1", "v2", "v3"}, handled)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, reader.committed)
	assert.True(t, reader.closed)
}
