package main

import (
	"errors"

	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/serialtransport"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is,
// following the teacher's internal/server/errors.go pattern.
var (
	ErrInputRead   = errors.New("input_read")
	ErrOutputWrite = errors.New("output_write")
	ErrMDNSStart   = errors.New("mdns_start")
)

// mapErrToMetric maps a wrapped sentinel error to a bounded-cardinality
// Prometheus label value, never the dynamic error string itself. It also
// recognizes internal/serialtransport's own sentinels so a single
// classifier can be used for the --transport=serial startup path.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrInputRead), errors.Is(err, ErrOutputWrite):
		return metrics.ErrScenarioIO
	case errors.Is(err, ErrMDNSStart):
		return metrics.ErrMDNS
	case errors.Is(err, serialtransport.ErrOpen):
		return metrics.ErrSerialOpen
	case errors.Is(err, serialtransport.ErrRead):
		return metrics.ErrSerialRead
	case errors.Is(err, serialtransport.ErrWrite):
		return metrics.ErrSerialWrite
	default:
		return "other"
	}
}
