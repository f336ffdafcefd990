// Package event provides the typed publish/subscribe bus that connects the
// sync core to its collaborators (renderer, HUD, audio).
package event

import "sync"

// Kind names one event stream on the bus.
type Kind string

const (
	Connected    Kind = "connected"    // payload: string (local id)
	Disconnected Kind = "disconnected" // payload: error (nil on clean close)
	PlayerJoined Kind = "player-joined"
	PlayerLeft   Kind = "player-left"
	PlayerMoved  Kind = "player-moved"
	Fired        Kind = "fired"
	Damaged      Kind = "damaged"
	Killed       Kind = "killed"
	Respawned    Kind = "respawned"
	Chat         Kind = "chat"

	VoiceOffer    Kind = "voice-offer"
	VoiceAnswer   Kind = "voice-answer"
	VoiceICE      Kind = "voice-ice"
	VoiceSpeaking Kind = "voice-speaking"
)

// Event is one published occurrence.
type Event struct {
	Kind    Kind
	Payload any
}

// Handler consumes one event. Handlers run synchronously on the publishing
// goroutine, in registration order.
type Handler func(Event)

// Bus maps event kinds to ordered subscriber lists. Subscribing during a
// dispatch is safe and takes effect from the next Publish; the in-flight
// fan-out iterates a snapshot of the list.
type Bus struct {
	mu   sync.Mutex
	subs map[Kind][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]Handler)}
}

// Subscribe appends h to the subscriber list for kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], h)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber of kind, in registration
// order.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.subs[kind]))
	copy(handlers, b.subs[kind])
	b.mu.Unlock()

	ev := Event{Kind: kind, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
}
