// Package transport defines the polymorphic sink capability the protocol
// layers pass to each other, and a reusable asynchronous, non-blocking
// transmit funnel built on top of it.
package transport

// Sink is a single-operation capability: deliver one wire packet. The
// Channel holds one per destination; Sender exposes one for inbound ACKs;
// Receiver exposes one for inbound DATA. Modeling the connection this way
// (per the "callback chaining across threads" design note) removes
// implicit closure captures over mutable peer state — callers pass an
// explicit Sink rather than a raw function closed over a struct pointer.
type Sink interface {
	Deliver(packet []byte)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(packet []byte)

func (f SinkFunc) Deliver(packet []byte) { f(packet) }
