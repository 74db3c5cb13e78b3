package serialtransport

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/arqnet/linkarq/internal/frame"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu      sync.Mutex
	writes  [][]byte
	readBuf []byte
	readErr error
	closed  bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readBuf) == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, io.EOF
	}
	n := copy(p, f.readBuf)
	f.readBuf = f.readBuf[n:]
	return n, nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type captureDeliverSink struct {
	mu   sync.Mutex
	pkts [][]byte
}

func (s *captureDeliverSink) Deliver(packet []byte) {
	s.mu.Lock()
	s.pkts = append(s.pkts, packet)
	s.mu.Unlock()
}

func TestLinkDeliverQueuesWrite(t *testing.T) {
	port := &fakePort{}
	l := NewLink(context.Background(), port, nil)
	defer l.Close()

	packet := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 0, Payload: []byte("x")})
	l.Deliver(packet)

	require.Eventually(t, func() bool {
		port.mu.Lock()
		defer port.mu.Unlock()
		return len(port.writes) == 1
	}, time.Second, time.Millisecond)
}

func TestLinkRunRXDeliversScannedPackets(t *testing.T) {
	packet := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 0, Payload: []byte("y")})
	port := &fakePort{readBuf: packet, readErr: errors.New("exhausted")}
	l := NewLink(context.Background(), port, nil)
	defer l.Close()

	sink := &captureDeliverSink{}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.RunRX(ctx, sink)
		close(done)
	}()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.pkts) == 1
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}
