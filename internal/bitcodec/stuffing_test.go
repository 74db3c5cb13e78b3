package bitcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStuffNoSixConsecutiveOnes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOfN(rapid.Bool(), 0, 200).Draw(t, "bits")
		in := BitString{}
		for _, b := range bits {
			in.Append(b)
		}
		out := Stuff(in)
		run := 0
		for i := 0; i < out.Len; i++ {
			if out.At(i) {
				run++
				require.Less(t, run, 6, "stuffed output must never carry 6 consecutive 1s")
			} else {
				run = 0
			}
		}
	})
}

func TestStuffDestuffRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOfN(rapid.Bool(), 0, 200).Draw(t, "bits")
		in := BitString{}
		for _, b := range bits {
			in.Append(b)
		}
		out := Destuff(Stuff(in))
		require.True(t, in.Equal(out))
	})
}

func TestBytesBitsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "data")
		bits := BytesToBits(data)
		require.Equal(t, data, BitsToBytes(bits))
	})
}

// bitsFromString builds a BitString from a literal '0'/'1' string, for
// expressing spec vectors directly in test source.
func bitsFromString(s string) BitString {
	out := BitString{}
	for _, c := range s {
		out.Append(c == '1')
	}
	return out
}

// TestStuffS5Vector is the literal S5 stuffing vector: a run of five
// consecutive 1s gets a stuffing 0 inserted after it, and destuffing
// recovers the original bit string exactly.
func TestStuffS5Vector(t *testing.T) {
	in := bitsFromString("011111101111101111110111110")
	wantStuffed := bitsFromString("0111110101111100111110101111100")

	stuffed := Stuff(in)
	require.True(t, wantStuffed.Equal(stuffed))

	destuffed := Destuff(stuffed)
	require.True(t, in.Equal(destuffed))
}

// TestDestuffPermissivePolicy exercises Open Question #1's resolution: a
// run of five 1s followed directly by another 1 (no stuffing 0) is not
// rejected; the extra 1 starts a fresh run instead of being consumed.
func TestDestuffPermissivePolicy(t *testing.T) {
	in := BitString{}
	for _, b := range []bool{true, true, true, true, true, true, false} {
		in.Append(b)
	}
	out := Destuff(in)
	require.Equal(t, 7, out.Len)
	for i := 0; i < 6; i++ {
		require.True(t, out.At(i))
	}
	require.False(t, out.At(6))
}
