package serialtransport

import (
	"errors"

	"github.com/arqnet/linkarq/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is,
// following the teacher's internal/server/errors.go pattern.
var (
	ErrOpen  = errors.New("serial_open")
	ErrRead  = errors.New("serial_read")
	ErrWrite = errors.New("serial_write")
)

// mapErrToMetric maps a wrapped sentinel error to a bounded-cardinality
// Prometheus label value, never the dynamic error string itself.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrOpen):
		return metrics.ErrSerialOpen
	case errors.Is(err, ErrRead):
		return metrics.ErrSerialRead
	case errors.Is(err, ErrWrite):
		return metrics.ErrSerialWrite
	default:
		return "other"
	}
}
