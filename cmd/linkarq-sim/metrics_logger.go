package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arqnet/linkarq/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"sent", snap.Sent,
					"retransmitted", snap.Retrans,
					"acks_sent", snap.AcksSent,
					"acks_received", snap.AcksReceived,
					"delivered", snap.Delivered,
					"duplicate", snap.Duplicate,
					"out_of_order", snap.OutOfOrder,
					"dropped", snap.Dropped,
					"corrupted", snap.Corrupted,
					"malformed", snap.Malformed,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
