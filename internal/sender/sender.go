// Package sender implements the Go-Back-N sliding-window sender side of
// the link-layer ARQ protocol.
package sender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/frame"
	"github.com/arqnet/linkarq/internal/logging"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/retransmit"
	"github.com/arqnet/linkarq/internal/transport"
)

const defaultPollInterval = 5 * time.Millisecond

// Sender transmits an ordered sequence of payload chunks with Go-Back-N
// retransmission. Construct with New, then call SendAll.
type Sender struct {
	window       int
	timeout      time.Duration
	pollInterval time.Duration
	sink         transport.Sink
	logger       *slog.Logger
	bus          *events.Bus

	mu      sync.Mutex
	buffer  [][]byte
	base    int
	nextSeq int
	timers  *retransmit.TimerWheel
}

// Option configures a Sender at construction time.
type Option func(*Sender)

func WithWindow(n int) Option {
	return func(s *Sender) {
		if n > 0 {
			s.window = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithSink(sink transport.Sink) Option {
	return func(s *Sender) { s.sink = sink }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithBus registers an events.Bus to receive FrameSent/FrameRetransmitted
// notifications as they occur.
func WithBus(bus *events.Bus) Option {
	return func(s *Sender) { s.bus = bus }
}

func (s *Sender) publish(kind events.Kind, seq uint32) {
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: kind, Seq: seq})
	}
}

// New constructs a Sender. The forward sink must be set either via
// WithSink or SetSink before SendAll is called.
func New(opts ...Option) *Sender {
	s := &Sender{
		window:       4,
		timeout:      500 * time.Millisecond,
		pollInterval: defaultPollInterval,
		logger:       logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	s.timers = retransmit.New(s.handleTimeout)
	return s
}

// SetSink configures the forward channel's entry point.
func (s *Sender) SetSink(sink transport.Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Deliver implements transport.Sink for inbound ACK packets arriving on
// the return channel.
func (s *Sender) Deliver(packet []byte) {
	f, ok := frame.DecodeWire(packet)
	if !ok {
		metrics.IncMalformed()
		return
	}
	if f.Kind != frame.ACK {
		return
	}
	s.OnAck(f.Seq)
}

// OnAck processes a cumulative ACK: it cancels timers for [base, a] and
// advances base to a+1. ACKs with a < base are ignored; base never
// decreases.
func (s *Sender) OnAck(a uint32) {
	metrics.IncAcksReceived()
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(a) < s.base {
		return
	}
	for seq := s.base; seq <= int(a); seq++ {
		s.timers.Cancel(uint32(seq))
	}
	s.base = int(a) + 1
	metrics.SetSenderWindow(s.base, s.nextSeq, s.timers.Outstanding())
}

// SendAll blocks until every chunk has been acknowledged or ctx is
// cancelled, returning true on success.
func (s *Sender) SendAll(ctx context.Context, chunks [][]byte) bool {
	s.mu.Lock()
	s.buffer = chunks
	s.base = 0
	s.nextSeq = 0
	s.mu.Unlock()

	twCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.timers.Run(twCtx)

	total := len(chunks)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		done := s.base >= total
		s.mu.Unlock()
		if done {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		s.refillWindow()
	}
}

// refillWindow transmits frames until the window or buffer is exhausted.
func (s *Sender) refillWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.buffer)
	for s.nextSeq < s.base+s.window && s.nextSeq < total {
		s.transmitLocked(s.nextSeq)
		s.nextSeq++
	}
	metrics.SetSenderWindow(s.base, s.nextSeq, s.timers.Outstanding())
}

// transmitLocked frames, bit-stuffs, and hands off seq's payload, then arms
// its timer. Caller must hold s.mu.
func (s *Sender) transmitLocked(seq int) {
	f := frame.Frame{Kind: frame.DATA, Seq: uint32(seq), Payload: s.buffer[seq]}
	packet := frame.EncodeWire(f)
	if s.sink != nil {
		s.sink.Deliver(packet)
	}
	metrics.IncFramesSent()
	s.timers.Arm(uint32(seq), s.timeout)
	s.logger.Debug("frame_sent", "seq", seq)
	s.publish(events.FrameSent, uint32(seq))
}

// handleTimeout is invoked by the TimerWheel's service goroutine when a
// still-live timer fires. If the frame is no longer outstanding (already
// acknowledged) this is a no-op; otherwise the whole outstanding window is
// retransmitted on the next refillWindow pass by resetting nextSeq to
// base, per the reference implementation's deferred-retransmission policy
// (see DESIGN.md Open Question #2).
func (s *Sender) handleTimeout(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(seq) < s.base {
		return // already acknowledged; stale timer, no-op
	}
	s.logger.Info("frame_timeout", "seq", seq, "base", s.base)
	s.nextSeq = s.base
	metrics.IncFramesRetransmitted()
	s.publish(events.FrameRetransmitted, seq)
}
