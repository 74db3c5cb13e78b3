// Package serialtransport lets the Sender and Receiver run over a real
// serial cable instead of the simulated channel package, selected with
// --transport=serial. The wire format is unchanged: flag-delimited,
// bit-stuffed frames are self-framing, so the serial link only needs to
// locate flag bytes in the incoming byte stream, not reimplement a
// separate device framing like the teacher's CAN-over-UART preamble codec.
package serialtransport

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens a real serial port at the given device path and baud rate.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, name, err)
	}
	return port, nil
}
