package sender

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/frame"
	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	mu   sync.Mutex
	seqs []uint32
}

func (c *capturingSink) Deliver(packet []byte) {
	f, ok := frame.DecodeWire(packet)
	if !ok {
		return
	}
	c.mu.Lock()
	c.seqs = append(c.seqs, f.Seq)
	c.mu.Unlock()
}

func (c *capturingSink) snapshot() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, len(c.seqs))
	copy(out, c.seqs)
	return out
}

func ackPacket(seq uint32) []byte {
	return frame.EncodeWire(frame.Frame{Kind: frame.ACK, Seq: seq})
}

func TestSenderSendAllWithImmediateAcks(t *testing.T) {
	sink := &capturingSink{}
	s := New(WithWindow(2), WithTimeout(time.Second), WithSink(sink), WithPollInterval(time.Millisecond))

	chunks := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	// Drive acks from a goroutine that watches what has been sent so far.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		acked := uint32(0)
		for acked < uint32(len(chunks)) {
			sent := sink.snapshot()
			if uint32(len(sent)) > acked {
				s.OnAck(acked)
				acked++
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()

	ok := s.SendAll(ctx, chunks)
	<-done
	require.True(t, ok)
}

func TestSenderOnAckIgnoresStaleAck(t *testing.T) {
	sink := &capturingSink{}
	s := New(WithWindow(4), WithTimeout(time.Second), WithSink(sink))
	s.SendAll(contextWithImmediateCancel(), [][]byte{[]byte("x")})
	s.OnAck(0)
	baseBefore := s.base
	s.OnAck(0) // stale, base already past 0
	require.Equal(t, baseBefore, s.base)
}

func TestSenderTimeoutTriggersRetransmission(t *testing.T) {
	sink := &capturingSink{}
	s := New(WithWindow(1), WithTimeout(20*time.Millisecond), WithSink(sink), WithPollInterval(2*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.SendAll(ctx, [][]byte{[]byte("only")})

	sent := sink.snapshot()
	require.GreaterOrEqual(t, len(sent), 2, "frame should be retransmitted at least once after timeout")
	for _, seq := range sent {
		require.Equal(t, uint32(0), seq)
	}
}

func TestSenderPublishesFrameSentAndRetransmitted(t *testing.T) {
	sink := &capturingSink{}
	bus := events.New()
	obs := bus.Subscribe()
	defer bus.Unsubscribe(obs)

	s := New(WithWindow(1), WithTimeout(20*time.Millisecond), WithSink(sink), WithPollInterval(2*time.Millisecond), WithBus(bus))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.SendAll(ctx, [][]byte{[]byte("only")})

	var sawSent, sawRetransmitted bool
	for !sawSent || !sawRetransmitted {
		select {
		case ev := <-obs.In:
			switch ev.Kind {
			case events.FrameSent:
				sawSent = true
			case events.FrameRetransmitted:
				sawRetransmitted = true
			}
		case <-time.After(time.Second):
			require.True(t, sawSent, "expected at least one FrameSent event")
			require.True(t, sawRetransmitted, "expected at least one FrameRetransmitted event")
			return
		}
	}
}

func contextWithImmediateCancel() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
