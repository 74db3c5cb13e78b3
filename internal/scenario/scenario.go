// Package scenario wires a Sender, a Receiver, and a pair of simulated
// Channels (forward and return) into a runnable session, and reports the
// counters spec.md's driver surface defines. This is the "top-level
// scenario driver" spec.md scopes out as an external collaborator; it is
// supplemented here (see SPEC_FULL.md §4.2) following
// original_source/code/protocole.py's run_scenario.
package scenario

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/arqnet/linkarq/internal/channel"
	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/logging"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/receiver"
	"github.com/arqnet/linkarq/internal/segmenter"
	"github.com/arqnet/linkarq/internal/sender"
	"github.com/arqnet/linkarq/internal/transport"
	"github.com/rs/xid"
)

// Config parameterizes one scenario run.
type Config struct {
	Name            string
	PError          float64
	PLoss           float64
	MaxDelay        time.Duration
	Window          int
	Timeout         time.Duration
	ChunkSize       int
	SessionDeadline time.Duration // wall-clock safety bound; default 60s
	Logger          *slog.Logger
	Bus             *events.Bus // optional observability fan-out
}

// Result is the literal counter/outcome set spec.md §6 requires the driver
// to emit: frames sent, retransmitted, ACKs received, wall-clock duration,
// and success.
type Result struct {
	Name          string
	SessionID     string
	Success       bool
	Sent          int
	Retransmitted int
	AcksReceived  int
	Duration      time.Duration
	Delivered     []byte
}

// Presets are the four channel scenarios S1–S4 from spec.md §8. S5 (the
// stuffing vector) and S6 (duplicate suppression) are not channel parameter
// sets; they are tested in internal/bitcodec and internal/receiver.
var Presets = []Config{
	{Name: "S1-perfect", PError: 0, PLoss: 0, MaxDelay: 0, Window: 5, Timeout: 500 * time.Millisecond, ChunkSize: 100},
	{Name: "S2-noisy", PError: 0.05, PLoss: 0.10, MaxDelay: 200 * time.Millisecond, Window: 5, Timeout: 500 * time.Millisecond, ChunkSize: 100},
	{Name: "S3-unstable", PError: 0.10, PLoss: 0.15, MaxDelay: 300 * time.Millisecond, Window: 5, Timeout: 500 * time.Millisecond, ChunkSize: 100},
	{Name: "S4-long-delay", PError: 0, PLoss: 0, MaxDelay: 300 * time.Millisecond, Window: 5, Timeout: 200 * time.Millisecond, ChunkSize: 100},
}

// Run wires the protocol end to end and blocks until every chunk has been
// delivered or the session deadline elapses.
func Run(ctx context.Context, cfg Config, content []byte) Result {
	sessionID := xid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}
	logger = logger.With("session", sessionID, "scenario", cfg.Name)

	deadline := cfg.SessionDeadline
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	forward := channel.New(cfg.PLoss, cfg.PError, cfg.MaxDelay, channel.WithLogger(logger))
	ret := channel.New(cfg.PLoss, cfg.PError, cfg.MaxDelay, channel.WithLogger(logger))
	go forward.Run(runCtx)
	go ret.Run(runCtx)

	rx := receiver.New(receiver.WithLogger(logger), receiver.WithBus(cfg.Bus))
	tx := sender.New(
		sender.WithWindow(cfg.Window),
		sender.WithTimeout(cfg.Timeout),
		sender.WithLogger(logger),
		sender.WithBus(cfg.Bus),
	)

	var acksReceived int
	ackCounter := transport.SinkFunc(func(packet []byte) {
		acksReceived++
		if cfg.Bus != nil {
			cfg.Bus.Publish(events.Event{Kind: events.AckReceived})
		}
		tx.Deliver(packet)
	})

	// forward: sender -> forward channel -> receiver
	tx.SetSink(transport.SinkFunc(func(packet []byte) { forward.Send(packet, rx) }))
	// return: receiver -> return channel -> sender (wrapped to count acks)
	rx.SetAckSink(transport.SinkFunc(func(packet []byte) { ret.Send(packet, ackCounter) }))

	chunker := segmenter.FixedChunker{Size: cfg.ChunkSize}
	chunks := chunker.Segment(content)

	before := metrics.Snap()
	logger.Info("scenario_start", "chunks", len(chunks), "window", cfg.Window, "timeout", cfg.Timeout)
	start := time.Now()
	success := tx.SendAll(runCtx, chunks)
	duration := time.Since(start)
	after := metrics.Snap()

	delivered := rx.Assemble()
	if success {
		success = bytes.Equal(delivered, content)
	}

	res := Result{
		Name:          cfg.Name,
		SessionID:     sessionID,
		Success:       success,
		Sent:          int(after.Sent - before.Sent),
		Retransmitted: int(after.Retrans - before.Retrans),
		AcksReceived:  acksReceived,
		Duration:      duration,
		Delivered:     delivered,
	}
	if cfg.Bus != nil {
		cfg.Bus.Publish(events.Event{Kind: events.SessionDone})
	}
	logger.Info("scenario_done", "success", success, "duration", duration)
	return res
}
