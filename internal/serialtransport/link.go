package serialtransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/arqnet/linkarq/internal/logging"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/transport"
)

const (
	txQueueSize  = 256
	readBufSize  = 4096
	rxBackoffMin = 20 * time.Millisecond
	rxBackoffMax = 500 * time.Millisecond
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// Link runs the sender/receiver wire protocol over a real serial cable: a
// single async writer funnels outgoing packets, and an RX loop scans the
// incoming byte stream for flag-delimited packets and hands each to sink.
type Link struct {
	port   Port
	tx     *transport.AsyncTx
	logger *slog.Logger
}

// NewLink wraps an already-open port (see Open) and starts the async TX
// worker. Call RunRX
// to start the receive loop once a sink is available.
func NewLink(ctx context.Context, port Port, logger *slog.Logger) *Link {
	if logger == nil {
		logger = logging.L()
	}
	l := &Link{port: port, logger: logger}
	write := func(pkt []byte) error {
		_, err := port.Write(pkt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		return nil
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(mapErrToMetric(err))
			logger.Error("serial_write_error", "error", err)
		},
		OnAfter: func() {},
		OnDrop: func() error {
			metrics.IncError(metrics.ErrTxOverflow)
			return errTxOverflow
		},
	}
	l.tx = transport.NewAsyncTx(ctx, txQueueSize, write, hooks)
	return l
}

var errTxOverflow = errors.New("serialtransport: tx overflow")

// Deliver implements transport.Sink: it queues packet for asynchronous
// write to the serial port.
func (l *Link) Deliver(packet []byte) {
	if err := l.tx.SendPacket(packet); err != nil && !errors.Is(err, errTxOverflow) {
		l.logger.Error("serial_enqueue_error", "error", err)
	}
}

// Close stops the TX worker and closes the underlying port.
func (l *Link) Close() {
	l.tx.Close()
	_ = l.port.Close()
}

// RunRX reads from the serial port until ctx is cancelled, scanning for
// flag-delimited packets and delivering each to sink. Read errors back off
// exponentially between rxBackoffMin and rxBackoffMax, mirroring the
// teacher's serial RX loop (go-ampio-server cmd/can-server/backend_serial.go).
func (l *Link) RunRX(ctx context.Context, sink transport.Sink) {
	buf := make([]byte, readBufSize)
	acc := bytes.NewBuffer(nil)
	backoff := rxBackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := l.port.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			ScanFrames(acc, sink.Deliver)
			backoff = rxBackoffMin
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var perr *os.PathError
			if errors.As(err, &perr) {
				return // device removed or fatal
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue
			}
			wrapped := fmt.Errorf("%w: %v", ErrRead, err)
			metrics.IncError(mapErrToMetric(wrapped))
			l.logger.Warn("serial_read_error", "error", wrapped, "backoff", backoff)
			sleepFn(backoff)
			backoff *= 2
			if backoff > rxBackoffMax {
				backoff = rxBackoffMax
			}
		}
	}
}
