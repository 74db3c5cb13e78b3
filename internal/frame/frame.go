// Package frame implements the typed frame header, CRC-32 trailer, and
// HDLC flag/bit-stuffing wire delimiting used by the link-layer ARQ
// protocol.
package frame

import "encoding/binary"

// Kind identifies the frame type carried in the header's first byte.
type Kind uint8

const (
	DATA Kind = 0
	ACK  Kind = 1
)

// MaxPayload is the largest payload a DATA frame can carry: the header's
// length field is 16 bits.
const MaxPayload = 65535

// headerSize is kind(1) + seq(4) + length(2).
const headerSize = 7

// crcSize is the trailing CRC-32.
const crcSize = 4

// minFrameSize is the smallest possible serialized frame: header + CRC,
// zero-length payload.
const minFrameSize = headerSize + crcSize

// Frame is a typed record: kind, sequence number, and payload. ACK frames
// always carry an empty payload.
type Frame struct {
	Kind    Kind
	Seq     uint32
	Payload []byte
}

// Serialize emits header(7B) ∥ payload ∥ crc32(4B), big-endian throughout.
func (f Frame) Serialize() []byte {
	out := make([]byte, headerSize+len(f.Payload)+crcSize)
	out[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(out[1:5], f.Seq)
	binary.BigEndian.PutUint16(out[5:7], uint16(len(f.Payload)))
	copy(out[headerSize:], f.Payload)
	crc := crcOf(out[:headerSize+len(f.Payload)])
	binary.BigEndian.PutUint32(out[headerSize+len(f.Payload):], crc)
	return out
}

// Parse decodes a serialized frame. It requires at least 11 bytes, tolerates
// trailing padding bytes beyond the declared length (discarding them), and
// fails (ok=false) on short input, an unknown kind, or a CRC mismatch. Parse
// never returns an error value: per the protocol's error-handling design,
// framing/integrity failures are silently discarded by the caller, not
// propagated.
func Parse(raw []byte) (f Frame, ok bool) {
	if len(raw) < minFrameSize {
		return Frame{}, false
	}
	kind := Kind(raw[0])
	if kind != DATA && kind != ACK {
		return Frame{}, false
	}
	seq := binary.BigEndian.Uint32(raw[1:5])
	length := int(binary.BigEndian.Uint16(raw[5:7]))
	expected := headerSize + length + crcSize
	if len(raw) < expected {
		return Frame{}, false
	}
	raw = raw[:expected] // truncate framing pad bits beyond the declared length
	payload := raw[headerSize : headerSize+length]
	wantCRC := binary.BigEndian.Uint32(raw[headerSize+length:])
	if crcOf(raw[:headerSize+length]) != wantCRC {
		return Frame{}, false
	}
	var pcopy []byte
	if length > 0 {
		pcopy = make([]byte, length)
		copy(pcopy, payload)
	}
	return Frame{Kind: kind, Seq: seq, Payload: pcopy}, true
}
