package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/logger"
)

func newTestPointer(t *testing.T) (*ActivePointer, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.RedisConfig{Key: "riskserve:model:active", Channel: "riskserve:model:activated"}
	conn := NewRedisConnectionFromClient(client, cfg, logger.NewNoopLogger())
	require.NoError(t, conn.Ping(context.Background()))
	return NewActivePointer(conn, logger.NewNoopLogger()), s
}

func TestActivePointer_PublishAndRead(t *testing.T) {
	p, s := newTestPointer(t)
	ctx := context.Background()

	id, err := p.ActiveVersion(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, p.PublishActive(ctx, "20260101T000000.000000001Z"))
	id, err = p.ActiveVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20260101T000000.000000001Z", id)

	got, err := s.Get("riskserve:model:active")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestActivePointer_Subscribe(t *testing.T) {
	p, _ := newTestPointer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []string
	done := make(chan error, 1)
	go func() {
		done <- p.Subscribe(ctx, func(_ context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, id)
			return nil
		})
	}()

	// publish until the subscriber is attached and has seen the id
	assert.Eventually(t, func() bool {
		_ = p.PublishActive(context.Background(), "20260102T000000.000000000Z")
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "20260102T000000.000000000Z", received[0])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
