package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedHandler struct {
	mu    sync.Mutex
	fail  int
	calls []string
}

func (h *scriptedHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, msg.ID)
	if h.fail > 0 {
		h.fail--
		return errors.New("transient")
	}
	return nil
}

func (h *scriptedHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func newTestConsumer(t *testing.T, h MessageHandler, claim time.Duration) (*Consumer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewConsumer(client, Options{
		Stream:        "mail:outbox",
		Group:         "mailers",
		Consumer:      "mailer-test",
		ClaimInterval: claim,
		Block:         10 * time.Millisecond,
	}, zerolog.Nop(), h)
	require.NoError(t, c.EnsureGroup(context.Background()))
	return c, client
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	p, err := client.XPending(context.Background(), "mail:outbox", "mailers").Result()
	require.NoError(t, err)
	return p.Count
}

func TestConsumer_EnsureGroupIdempotent(t *testing.T) {
	c, _ := newTestConsumer(t, &scriptedHandler{}, time.Second)
	assert.NoError(t, c.EnsureGroup(context.Background()))
}

func TestConsumer_ReadAcksHandled(t *testing.T) {
	ctx := context.Background()
	h := &scriptedHandler{}
	c, client := newTestConsumer(t, h, time.Second)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"kind": "activation"}}).Err())
	}

	n, err := c.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, h.count())
	assert.Zero(t, pendingCount(t, client))
}

func TestConsumer_EmptyStream(t *testing.T) {
	c, _ := newTestConsumer(t, &scriptedHandler{}, time.Second)
	n, err := c.read(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsumer_FailedEntryIsReclaimed(t *testing.T) {
	ctx := context.Background()
	h := &scriptedHandler{fail: 1}
	c, client := newTestConsumer(t, h, 5*time.Millisecond)

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"kind": "activation"}}).Err())

	n, err := c.read(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 1, pendingCount(t, client))

	time.Sleep(20 * time.Millisecond)

	n, err = c.claimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, h.count())
	assert.Zero(t, pendingCount(t, client))
}

func TestConsumer_StartStopsOnCancel(t *testing.T) {
	h := &scriptedHandler{}
	c, client := newTestConsumer(t, h, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"kind": "activation"}}).Err())

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return h.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
