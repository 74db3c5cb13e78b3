// Package metrics exposes Prometheus counters and gauges for the link-layer
// ARQ protocol, plus a small local-mirror snapshot for non-Prometheus
// deployments (periodic log lines).
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/arqnet/linkarq/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_frames_sent_total",
		Help: "Total DATA frames transmitted by the sender (first transmission + retransmissions).",
	})
	FramesRetransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_frames_retransmitted_total",
		Help: "Total retransmission events triggered by timer expiry.",
	})
	AcksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_acks_sent_total",
		Help: "Total ACK frames emitted by the receiver.",
	})
	AcksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_acks_received_total",
		Help: "Total ACK frames processed by the sender.",
	})
	FramesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_frames_delivered_total",
		Help: "Total in-order DATA frames accepted by the receiver.",
	})
	FramesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_frames_duplicate_total",
		Help: "Total duplicate (already-delivered) DATA frames seen by the receiver.",
	})
	FramesOutOfOrder = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_frames_out_of_order_total",
		Help: "Total out-of-order DATA frames discarded by the receiver.",
	})
	ChannelDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_channel_dropped_total",
		Help: "Total packets dropped by a Channel (simulated loss).",
	})
	ChannelCorrupted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_channel_corrupted_total",
		Help: "Total packets bit-flipped by a Channel (simulated corruption).",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkarq_malformed_frames_total",
		Help: "Total frames discarded for framing, destuffing, CRC, or kind errors.",
	})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkarq_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "linkarq_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	SenderBase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkarq_sender_base",
		Help: "Current sender window base (oldest unacknowledged sequence number).",
	})
	SenderNextSeq = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkarq_sender_next_seq",
		Help: "Current sender next sequence number to transmit.",
	})
	SenderOutstanding = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linkarq_sender_outstanding",
		Help: "Number of frames currently outstanding (armed timers).",
	})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrSerialRead  = "serial_read"
	ErrSerialWrite = "serial_write"
	ErrSerialOpen  = "serial_open"
	ErrMDNS        = "mdns"
	ErrTxOverflow  = "tx_overflow"
	ErrScenarioIO  = "scenario_io"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap periodic logging without scraping
// Prometheus in-process.
var (
	localSent       uint64
	localRetrans    uint64
	localAcksSent   uint64
	localAcksRecv   uint64
	localDelivered  uint64
	localDuplicate  uint64
	localOutOfOrder uint64
	localDropped    uint64
	localCorrupted  uint64
	localMalformed  uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Sent         uint64
	Retrans      uint64
	AcksSent     uint64
	AcksReceived uint64
	Delivered    uint64
	Duplicate    uint64
	OutOfOrder   uint64
	Dropped      uint64
	Corrupted    uint64
	Malformed    uint64
	Errors       uint64
}

func Snap() Snapshot {
	return Snapshot{
		Sent:         atomic.LoadUint64(&localSent),
		Retrans:      atomic.LoadUint64(&localRetrans),
		AcksSent:     atomic.LoadUint64(&localAcksSent),
		AcksReceived: atomic.LoadUint64(&localAcksRecv),
		Delivered:    atomic.LoadUint64(&localDelivered),
		Duplicate:    atomic.LoadUint64(&localDuplicate),
		OutOfOrder:   atomic.LoadUint64(&localOutOfOrder),
		Dropped:      atomic.LoadUint64(&localDropped),
		Corrupted:    atomic.LoadUint64(&localCorrupted),
		Malformed:    atomic.LoadUint64(&localMalformed),
		Errors:       atomic.LoadUint64(&localErrors),
	}
}

func IncFramesSent() {
	FramesSent.Inc()
	atomic.AddUint64(&localSent, 1)
}

func IncFramesRetransmitted() {
	FramesRetransmitted.Inc()
	atomic.AddUint64(&localRetrans, 1)
}

func IncAcksSent() {
	AcksSent.Inc()
	atomic.AddUint64(&localAcksSent, 1)
}

func IncAcksReceived() {
	AcksReceived.Inc()
	atomic.AddUint64(&localAcksRecv, 1)
}

func IncFramesDelivered() {
	FramesDelivered.Inc()
	atomic.AddUint64(&localDelivered, 1)
}

func IncFramesDuplicate() {
	FramesDuplicate.Inc()
	atomic.AddUint64(&localDuplicate, 1)
}

func IncFramesOutOfOrder() {
	FramesOutOfOrder.Inc()
	atomic.AddUint64(&localOutOfOrder, 1)
}

func IncChannelDropped() {
	ChannelDropped.Inc()
	atomic.AddUint64(&localDropped, 1)
}

func IncChannelCorrupted() {
	ChannelCorrupted.Inc()
	atomic.AddUint64(&localCorrupted, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func SetSenderWindow(base, nextSeq, outstanding int) {
	SenderBase.Set(float64(base))
	SenderNextSeq.Set(float64(nextSeq))
	SenderOutstanding.Set(float64(outstanding))
}

// InitBuildInfo sets the build info gauge and pre-registers the error label
// series so the first error logged doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrSerialRead, ErrSerialWrite, ErrSerialOpen, ErrMDNS, ErrTxOverflow, ErrScenarioIO} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function, defaulting to ready.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
