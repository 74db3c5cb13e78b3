package frame

import "github.com/arqnet/linkarq/internal/bitcodec"

// Flag is the literal HDLC delimiter. It never appears inside the stuffed
// interior because bit stuffing guarantees no run of six or more
// consecutive '1's survives there, and 0x7E (01111110) contains such a run.
const Flag byte = 0x7E

// EncodeWire serializes f, bit-stuffs the result, and wraps it with leading
// and trailing flag bytes — the packet as it travels over a Channel.
func EncodeWire(f Frame) []byte {
	raw := f.Serialize()
	stuffed := bitcodec.Stuff(bitcodec.BytesToBits(raw))
	body := bitcodec.BitsToBytes(stuffed)
	out := make([]byte, 0, len(body)+2)
	out = append(out, Flag)
	out = append(out, body...)
	out = append(out, Flag)
	return out
}

// DecodeWire reverses EncodeWire: it requires leading and trailing flag
// bytes, destuffs the interior, and parses the resulting frame. Any
// failure (missing flags, destuffing producing garbage, short frame, bad
// CRC, unknown kind) yields ok=false with no error surfaced — framing and
// integrity failures are silently discarded per the protocol's error
// handling design.
func DecodeWire(packet []byte) (f Frame, ok bool) {
	if len(packet) < 2 || packet[0] != Flag || packet[len(packet)-1] != Flag {
		return Frame{}, false
	}
	interior := packet[1 : len(packet)-1]
	destuffed := bitcodec.Destuff(bitcodec.BytesToBits(interior))
	raw := bitcodec.BitsToBytes(destuffed)
	return Parse(raw)
}
