package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/frame"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/receiver"
	"github.com/arqnet/linkarq/internal/scenario"
	"github.com/arqnet/linkarq/internal/segmenter"
	"github.com/arqnet/linkarq/internal/sender"
	"github.com/arqnet/linkarq/internal/serialtransport"
	"github.com/arqnet/linkarq/internal/transport"
	"github.com/rs/xid"
)

const serialReadTimeout = 200 * time.Millisecond

// runSerial drives one session of the same Sender/Receiver state machines
// scenario.Run uses, but over a real serial cable (--transport=serial)
// instead of the simulated channel pair. DATA and ACK frames share the
// single physical link; incoming packets are demultiplexed by frame.Kind
// since the wire format is unchanged from the simulated path.
func runSerial(ctx context.Context, cfg *appConfig, l *slog.Logger, bus *events.Bus, content []byte) (scenario.Result, error) {
	sessionID := xid.New().String()
	logger := l.With("session", sessionID, "transport", "serial", "device", cfg.serialDevice)

	port, err := serialtransport.Open(cfg.serialDevice, cfg.serialBaud, serialReadTimeout)
	if err != nil {
		return scenario.Result{}, fmt.Errorf("open serial device: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.sessionDeadline)
	defer cancel()

	link := serialtransport.NewLink(runCtx, port, logger)
	defer link.Close()

	rx := receiver.New(receiver.WithLogger(logger), receiver.WithBus(bus))
	tx := sender.New(
		sender.WithWindow(cfg.window),
		sender.WithTimeout(cfg.timeout),
		sender.WithLogger(logger),
		sender.WithBus(bus),
	)

	var acksReceived int
	tx.SetSink(transport.SinkFunc(link.Deliver))
	rx.SetAckSink(transport.SinkFunc(link.Deliver))

	demux := transport.SinkFunc(func(packet []byte) {
		f, ok := frame.DecodeWire(packet)
		if !ok {
			metrics.IncMalformed()
			return
		}
		if f.Kind != frame.ACK {
			rx.Deliver(packet)
			return
		}
		acksReceived++
		if bus != nil {
			bus.Publish(events.Event{Kind: events.AckReceived, Seq: f.Seq})
		}
		tx.Deliver(packet)
	})
	go link.RunRX(runCtx, demux)

	chunker := segmenter.FixedChunker{Size: cfg.chunkSize}
	chunks := chunker.Segment(content)

	before := metrics.Snap()
	logger.Info("scenario_start", "chunks", len(chunks), "window", cfg.window, "timeout", cfg.timeout)
	start := time.Now()
	success := tx.SendAll(runCtx, chunks)
	duration := time.Since(start)
	after := metrics.Snap()

	delivered := rx.Assemble()
	if success {
		success = bytes.Equal(delivered, content)
	}

	res := scenario.Result{
		Name:          "serial",
		SessionID:     sessionID,
		Success:       success,
		Sent:          int(after.Sent - before.Sent),
		Retransmitted: int(after.Retrans - before.Retrans),
		AcksReceived:  acksReceived,
		Duration:      duration,
		Delivered:     delivered,
	}
	if bus != nil {
		bus.Publish(events.Event{Kind: events.SessionDone})
	}
	logger.Info("scenario_done", "success", success, "duration", duration)
	return res, nil
}
