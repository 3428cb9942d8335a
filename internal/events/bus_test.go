package events

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventServiceStarted)
	other := bus.Subscribe(EventPaymentCompleted)

	bus.Publish(EventServiceStarted, Payload{"service": "Main Service"})

	select {
	case p := <-sub:
		if p["service"] != "Main Service" {
			t.Fatalf("payload = %v", p)
		}
	default:
		t.Fatal("expected payload")
	}
	select {
	case p := <-other:
		t.Fatalf("unexpected payload on other subscriber: %v", p)
	default:
	}
}

func TestBusPublishDropsWhenFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventBrandUpdated)
	for i := 0; i < cap(sub)+4; i++ {
		bus.Publish(EventBrandUpdated, Payload{"i": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("buffered = %d, want %d", len(sub), cap(sub))
	}
}

func TestBusUnsubscribeCloses(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventBrandDeleted)
	bus.Unsubscribe(EventBrandDeleted, sub)
	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(EventBrandDeleted, Payload{})
	// unsubscribing twice must not panic
	bus.Unsubscribe(EventBrandDeleted, sub)
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(EventServiceStarted, Payload{})
}
