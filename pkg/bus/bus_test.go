package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCloseIsIdempotent(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	mb.Close()

	select {
	case <-mb.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}

	if ok := mb.PublishEvent(context.Background(), Event{Type: EventRouteMatched}); ok {
		t.Fatal("expected event publish to fail after close")
	}
}

func TestPublishEventStampsTime(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	requestID := NewRequestID()
	mb.PublishEvent(ctx, Event{Type: EventCatalogChanged, RequestID: requestID})

	select {
	case got := <-events:
		if got.At.IsZero() {
			t.Fatal("expected event timestamp")
		}
		if got.RequestID != requestID {
			t.Fatalf("request id = %q, want %q", got.RequestID, requestID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber did not receive event")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := mb.SubscribeEvents(ctx, 1)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not end with its context")
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	if NewRequestID() == NewRequestID() {
		t.Fatal("expected distinct request ids")
	}
}

func TestEventFanout(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	eventsA, unsubA := mb.SubscribeEvents(ctx, 1)
	defer unsubA()
	eventsB, unsubB := mb.SubscribeEvents(ctx, 1)
	defer unsubB()

	event := Event{Type: EventRouteMatched, RequestID: "1"}
	if ok := mb.PublishEvent(ctx, event); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case got := <-eventsA:
		if got.Type != EventRouteMatched {
			t.Fatalf("event type = %q, want %q", got.Type, EventRouteMatched)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber A did not receive event")
	}

	select {
	case got := <-eventsB:
		if got.Type != EventRouteMatched {
			t.Fatalf("event type = %q, want %q", got.Type, EventRouteMatched)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber B did not receive event")
	}
}

func TestSlowSubscriberDoesNotBlockPublishEvent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventRouteMatched}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := mb.PublishEvent(ctx, Event{Type: EventRouteMissed}); !ok {
		t.Fatal("expected second event publish to succeed")
	}

	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish event blocked on slow subscriber")
	}

	select {
	case <-events:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventRouteMatched}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeEventsUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	ctx := context.Background()
	events, _ := mb.SubscribeEvents(ctx, 1)
	mb.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not unblock after close")
	}
}

func TestPublishEventDuringUnsubscribe(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				mb.PublishEvent(context.Background(), Event{Type: EventDeliveryFailed})
			}
		}()
	}

	for range 20000 {
		_, unsubscribe := mb.SubscribeEvents(ctx, 1)
		unsubscribe()
	}

	cancel()
	wg.Wait()
}
