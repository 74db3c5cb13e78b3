package serialtransport

import (
	"bytes"

	"github.com/arqnet/linkarq/internal/frame"
)

// ScanFrames extracts complete flag-delimited packets from buf, invoking
// onPacket for each, and leaves any trailing partial packet in buf for the
// next read. Bytes before the first flag (line noise, a stray partial
// flag) are discarded, mirroring the resync-on-garbage behavior of
// internal/frame.DecodeWire's teacher analogue
// (go-ampio-server's internal/serial/codec.go DecodeStream).
func ScanFrames(buf *bytes.Buffer, onPacket func([]byte)) {
	for {
		data := buf.Bytes()
		i := bytes.IndexByte(data, frame.Flag)
		if i < 0 {
			buf.Reset()
			return
		}
		if i > 0 {
			buf.Next(i)
			data = buf.Bytes()
		}
		j := bytes.IndexByte(data[1:], frame.Flag)
		if j < 0 {
			return // closing flag not yet arrived; wait for more bytes
		}
		end := j + 1 // index of the closing flag within data
		packet := make([]byte, end+1)
		copy(packet, data[:end+1])
		buf.Next(end + 1)
		onPacket(packet)
	}
}
