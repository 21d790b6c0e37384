package events

import "sellerchain/core/types"

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can be rendered into the wire form
// stored in receipts.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects the events emitted while a single transaction executes. The
// processor drops the buffer when the transaction fails so reverted calls
// never surface events.
type Buffer struct {
	events []types.Event
}

// Emit implements the Emitter interface. Events without a payload are ignored.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	payload, ok := evt.(Payload)
	if !ok {
		return
	}
	rendered := payload.Event()
	if rendered == nil {
		return
	}
	b.events = append(b.events, rendered.Clone())
}

// Events returns a copy of the buffered events in emission order.
func (b *Buffer) Events() []types.Event {
	if b == nil {
		return nil
	}
	out := make([]types.Event, len(b.events))
	for i := range b.events {
		out[i] = b.events[i].Clone()
	}
	return out
}

// Len reports how many events are buffered.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// Reset drops every buffered event.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.events = nil
}
