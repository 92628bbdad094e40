package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPublisher_WritesEnvelopeToStream(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	err := NewPublisher(client, PublisherConfig{Source: "user-service"}).Publish(ctx, UserEventsStream, UserCreated, UserCreatedEvent{
		UserID: "acc-1",
		Email:  "john@example.com",
		Name:   "John Doe",
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, UserEventsStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Values["event"], `"type":"user.created"`)
	assert.Contains(t, msgs[0].Values["event"], `"userId":"acc-1"`)
	assert.Contains(t, msgs[0].Values["event"], `"source":"user-service"`)
}

func TestPublisher_TrimsStream(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	pub := NewPublisher(client, PublisherConfig{MaxLen: 3})
	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Publish(ctx, UserEventsStream, UserDeleted, UserDeletedEvent{UserID: "x"}))
	}

	n, err := client.XLen(ctx, UserEventsStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSubscriber_DeliversAndAcks(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	var got []OrderPlacedEvent
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "user-service-group",
		Consumer:      "test-consumer",
		Stream:        OrderEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			require.Equal(t, OrderPlaced, event.Type)
			var data OrderPlacedEvent
			if err := event.Decode(&data); err != nil {
				return err
			}
			got = append(got, data)
			return nil
		},
	})
	require.NoError(t, client.XGroupCreateMkStream(ctx, OrderEventsStream, "user-service-group", "0").Err())

	pub := NewPublisher(client, PublisherConfig{Source: "user-service"})
	require.NoError(t, pub.Publish(ctx, OrderEventsStream, OrderPlaced, OrderPlacedEvent{UserID: "acc-1", OrderID: "ord-1"}))
	require.NoError(t, pub.Publish(ctx, OrderEventsStream, OrderPlaced, OrderPlacedEvent{UserID: "acc-2"}))

	require.NoError(t, sub.ReadOnce(ctx))
	assert.Equal(t, []OrderPlacedEvent{{UserID: "acc-1", OrderID: "ord-1"}, {UserID: "acc-2"}}, got)

	pending, err := client.XPending(ctx, OrderEventsStream, "user-service-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestSubscriber_FailedMessageStaysPending(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "user-service-group",
		Consumer:      "test-consumer",
		Stream:        BillingEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			return errors.New("boom")
		},
	})
	require.NoError(t, client.XGroupCreateMkStream(ctx, BillingEventsStream, "user-service-group", "0").Err())
	require.NoError(t, NewPublisher(client, PublisherConfig{Source: "user-service"}).Publish(ctx, BillingEventsStream, BillingPeriodClosed, BillingPeriodClosedEvent{Period: "2026-02"}))

	require.NoError(t, sub.ReadOnce(ctx))

	pending, err := client.XPending(ctx, BillingEventsStream, "user-service-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestSubscriber_RetriesFailedMessage(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	calls := 0
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "user-service-group",
		Consumer:      "test-consumer",
		Stream:        BillingEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		},
	})
	require.NoError(t, sub.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, PublisherConfig{}).Publish(ctx, BillingEventsStream, BillingPeriodClosed, BillingPeriodClosedEvent{Period: "2026-02"}))

	require.NoError(t, sub.ReadOnce(ctx))
	require.NoError(t, sub.ReadOnce(ctx))
	require.NoError(t, sub.ReadOnce(ctx))

	assert.Equal(t, 2, calls)
	pending, err := client.XPending(ctx, BillingEventsStream, "user-service-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestSubscriber_DropsMalformedMessage(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	calls := 0
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "user-service-group",
		Consumer:      "test-consumer",
		Stream:        OrderEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(context.Context, Event) error {
			calls++
			return nil
		},
	})
	require.NoError(t, sub.EnsureGroup(ctx))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: OrderEventsStream,
		Values: map[string]any{"event": "{not json"},
	}).Err())

	require.NoError(t, sub.ReadOnce(ctx))
	require.NoError(t, sub.ReadOnce(ctx))

	assert.Zero(t, calls)
	pending, err := client.XPending(ctx, OrderEventsStream, "user-service-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestSubscriber_StartStopsOnCancel(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "user-service-group",
		Consumer:      "test-consumer",
		Stream:        OrderEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler:       func(context.Context, Event) error { return nil },
	})

	done := make(chan error, 1)
	go func() { done <- sub.Start(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestEventDecode(t *testing.T) {
	e := Event{Type: OrderPlaced, Data: map[string]any{"userId": "acc-9"}}
	var data OrderPlacedEvent
	require.NoError(t, e.Decode(&data))
	assert.Equal(t, "acc-9", data.UserID)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), UserEventsStream, UserDeleted, UserDeletedEvent{UserID: "x"}))
}
