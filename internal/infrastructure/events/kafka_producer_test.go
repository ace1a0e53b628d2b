package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaProducer_Publish(t *testing.T) {
	w := &mockWriter{}
	var captured []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).([]kafka.Message) }).
		Return(nil)

	p := newKafkaProducer(w, logger.NewNoopLogger())
	err := p.Publish(context.Background(), service.LifecycleEvent{
		Type:          constants.EventVersionCreated,
		VersionID:     "20260101T000000.000000001Z",
		ParentVersion: "20260101T000000.000000000Z",
		Label:         "high risk",
		Metrics:       map[string]float64{constants.MetricLoss: 0.12},
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)

	msg := captured[0]
	assert.Equal(t, "20260101T000000.000000001Z", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, string(constants.EventVersionCreated), string(msg.Headers[0].Value))

	var decoded service.LifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, constants.EventVersionCreated, decoded.Type)
	assert.Equal(t, "high risk", decoded.Label)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestKafkaProducer_PublishError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(assert.AnError)
	w.On("Close").Return(nil)

	p := newKafkaProducer(w, logger.NewNoopLogger())
	err := p.Publish(context.Background(), service.LifecycleEvent{Type: constants.EventCorrectionFailed})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, p.Close())
	w.AssertExpectations(t)
}
