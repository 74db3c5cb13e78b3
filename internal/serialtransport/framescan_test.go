package serialtransport

import (
	"bytes"
	"testing"

	"github.com/arqnet/linkarq/internal/frame"
	"github.com/stretchr/testify/require"
)

func TestScanFramesExtractsCompletePackets(t *testing.T) {
	p1 := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 0, Payload: []byte("a")})
	p2 := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 1, Payload: []byte("b")})
	buf := bytes.NewBuffer(nil)
	buf.Write(p1)
	buf.Write(p2)

	var got [][]byte
	ScanFrames(buf, func(pkt []byte) { got = append(got, append([]byte(nil), pkt...)) })

	require.Len(t, got, 2)
	require.Equal(t, p1, got[0])
	require.Equal(t, p2, got[1])
	require.Zero(t, buf.Len())
}

func TestScanFramesDiscardsGarbageBeforeFirstFlag(t *testing.T) {
	p1 := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 0, Payload: []byte("a")})
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte{0x01, 0x02, 0x03})
	buf.Write(p1)

	var got [][]byte
	ScanFrames(buf, func(pkt []byte) { got = append(got, pkt) })

	require.Len(t, got, 1)
	require.Equal(t, p1, got[0])
}

func TestScanFramesLeavesPartialPacketInBuffer(t *testing.T) {
	p1 := frame.EncodeWire(frame.Frame{Kind: frame.DATA, Seq: 0, Payload: []byte("a")})
	buf := bytes.NewBuffer(nil)
	buf.Write(p1[:len(p1)-1]) // withhold the closing flag

	var got [][]byte
	ScanFrames(buf, func(pkt []byte) { got = append(got, pkt) })

	require.Empty(t, got)
	require.Equal(t, len(p1)-1, buf.Len())
}
