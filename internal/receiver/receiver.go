// Package receiver implements the Go-Back-N receiver side: in-order
// reassembly, cumulative ACK emission, and duplicate suppression.
package receiver

import (
	"log/slog"
	"sync"

	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/frame"
	"github.com/arqnet/linkarq/internal/logging"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/transport"
)

// Receiver reassembles an in-order byte stream from a sequence of DATA
// frames, re-synchronizing the sender via cumulative ACKs.
type Receiver struct {
	logger *slog.Logger

	mu           sync.Mutex
	expectedSeq  uint32
	delivered    map[uint32][]byte
	deliveredLen int
	ackSink      transport.Sink
	bus          *events.Bus
}

// Option configures a Receiver at construction time.
type Option func(*Receiver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Receiver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBus registers an events.Bus to receive ChunkDelivered/AckSent/
// FrameDuplicate/FrameOutOfOrder notifications as they occur.
func WithBus(bus *events.Bus) Option {
	return func(r *Receiver) { r.bus = bus }
}

func (r *Receiver) publish(kind events.Kind, seq uint32) {
	if r.bus != nil {
		r.bus.Publish(events.Event{Kind: kind, Seq: seq})
	}
}

// New constructs a Receiver with expected_seq initialized to 0.
func New(opts ...Option) *Receiver {
	r := &Receiver{
		delivered: make(map[uint32][]byte),
		logger:    logging.L(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetAckSink configures how ACK packets are emitted (typically the return
// Channel's Send entry point, wrapped as a transport.Sink).
func (r *Receiver) SetAckSink(sink transport.Sink) {
	r.mu.Lock()
	r.ackSink = sink
	r.mu.Unlock()
}

// Deliver implements transport.Sink; it is the forward channel's delivery
// target (on_packet in spec.md §4.6).
func (r *Receiver) Deliver(packet []byte) {
	r.OnPacket(packet)
}

// OnPacket processes one incoming wire packet per spec.md §4.6: framing
// and destuffing failures, CRC/kind failures, and non-DATA frames are all
// silently discarded with no NAK.
func (r *Receiver) OnPacket(packet []byte) {
	f, ok := frame.DecodeWire(packet)
	if !ok {
		metrics.IncMalformed()
		return
	}
	if f.Kind != frame.DATA {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case f.Seq == r.expectedSeq:
		r.delivered[f.Seq] = f.Payload
		r.deliveredLen += len(f.Payload)
		r.expectedSeq++
		metrics.IncFramesDelivered()
		r.publish(events.ChunkDelivered, f.Seq)
		r.emitAckLocked(f.Seq)
	case f.Seq < r.expectedSeq:
		metrics.IncFramesDuplicate()
		r.publish(events.FrameDuplicate, f.Seq)
		r.emitAckLocked(f.Seq)
	default:
		metrics.IncFramesOutOfOrder()
		r.publish(events.FrameOutOfOrder, f.Seq)
		if r.expectedSeq > 0 {
			r.emitAckLocked(r.expectedSeq - 1)
		}
	}
}

// emitAckLocked builds and sends an ACK(seq) frame. Caller must hold r.mu.
func (r *Receiver) emitAckLocked(seq uint32) {
	if r.ackSink == nil {
		return
	}
	ack := frame.Frame{Kind: frame.ACK, Seq: seq}
	r.ackSink.Deliver(frame.EncodeWire(ack))
	metrics.IncAcksSent()
	r.publish(events.AckSent, seq)
}

// ExpectedSeq returns the next in-order sequence number the receiver will
// accept.
func (r *Receiver) ExpectedSeq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expectedSeq
}

// Assemble returns the concatenation of delivered[0..expected_seq) in
// order. It is safe to call at any point; frames not yet delivered are
// simply absent from the prefix.
func (r *Receiver) Assemble() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, 0, r.deliveredLen)
	for i := uint32(0); i < r.expectedSeq; i++ {
		out = append(out, r.delivered[i]...)
	}
	return out
}
