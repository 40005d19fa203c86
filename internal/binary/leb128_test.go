package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7f, 0x80, 0xffffffff, 0x12345678, 624485}
	for _, v := range values {
		enc := EncodeUint32(v)
		got, n, err := DecodeUint32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(enc)), n)
	}
}

func TestEncodeUint32ShortestForm(t *testing.T) {
	// 624485 is the canonical LEB128 spec example.
	require.Equal(t, []byte{0xe5, 0x8e, 0x26}, EncodeUint32(624485))
}

func TestEncodeDecodeInt32RoundTrip(t *testing.T) {
	values := []int32{0, -1, 1, -64, 63, -128, 127, -0x80000000, 0x7fffffff}
	for _, v := range values {
		enc := EncodeInt32(v)
		got, n, err := DecodeInt32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(enc)), n)
	}
}

func TestEncodeInt32NegativeCanonicalForm(t *testing.T) {
	// -624485 is the canonical LEB128 spec example for signed encoding.
	require.Equal(t, []byte{0x9b, 0xf1, 0x59}, EncodeInt32(-624485))
}

func TestDecodeUint32RejectsOverflow(t *testing.T) {
	// The 5th byte can only contribute the top 4 bits of a uint32: 0x0f is
	// the maximum valid value (encoding math.MaxUint32), 0x1f overflows it.
	maxUint32 := []byte{0xff, 0xff, 0xff, 0xff, 0x0f}
	got, _, err := DecodeUint32(bytes.NewReader(maxUint32))
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), got)

	tooWide := []byte{0xff, 0xff, 0xff, 0xff, 0x1f}
	_, _, err = DecodeUint32(bytes.NewReader(tooWide))
	require.Error(t, err)
}

func TestDecodeUint32RejectsTruncated(t *testing.T) {
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
}

func TestDecodeInt32RejectsOverflow(t *testing.T) {
	// Sign-extension bits beyond width must match the truncated value.
	tooWide := []byte{0x80, 0x80, 0x80, 0x80, 0x40} // sign-extends to a value outside int32 range
	_, _, err := DecodeInt32(bytes.NewReader(tooWide))
	require.Error(t, err)
}
