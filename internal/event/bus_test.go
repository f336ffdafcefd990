package event

import (
	"testing"
)

// TestPublishOrder verifies that subscribers run in registration order.
func TestPublishOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(PlayerJoined, func(Event) {
			order = append(order, i)
		})
	}

	bus.Publish(PlayerJoined, nil)

	if len(order) != 5 {
		t.Fatalf("got %d deliveries, want 5", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("delivery order %v, want ascending", order)
		}
	}
}

// TestPublishPayload verifies that the payload reaches subscribers unchanged.
func TestPublishPayload(t *testing.T) {
	bus := NewBus()

	var got Event
	bus.Subscribe(Chat, func(ev Event) { got = ev })

	bus.Publish(Chat, "hello")

	if got.Kind != Chat {
		t.Errorf("kind = %q, want %q", got.Kind, Chat)
	}
	if got.Payload != "hello" {
		t.Errorf("payload = %v, want hello", got.Payload)
	}
}

// TestSubscribeDuringDispatch verifies that subscribing from inside a handler
// does not affect the in-flight fan-out but takes effect on the next publish.
func TestSubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()

	lateCalls := 0
	bus.Subscribe(Fired, func(Event) {
		bus.Subscribe(Fired, func(Event) { lateCalls++ })
	})

	bus.Publish(Fired, nil)
	if lateCalls != 0 {
		t.Fatalf("late subscriber ran during the publish that registered it")
	}

	bus.Publish(Fired, nil)
	if lateCalls != 1 {
		t.Fatalf("late subscriber calls = %d, want 1", lateCalls)
	}
}

// TestKindsAreIndependent verifies that publishing one kind never reaches
// subscribers of another.
func TestKindsAreIndependent(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(Killed, func(Event) { calls++ })

	bus.Publish(Respawned, nil)
	bus.Publish(Damaged, nil)

	if calls != 0 {
		t.Errorf("killed subscriber ran %d times for other kinds", calls)
	}
}
