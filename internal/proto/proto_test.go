package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndianDecoders(t *testing.T) {
	require.Equal(t, uint32(0x0102), U16BE([]byte{0x01, 0x02}))
	require.Equal(t, uint32(0x0201), U16LE([]byte{0x01, 0x02}))
	require.Equal(t, uint32(0x010203), U24BE([]byte{0x01, 0x02, 0x03}))
	require.Equal(t, uint32(0x030201), U24LE([]byte{0x01, 0x02, 0x03}))
	require.Equal(t, uint32(0x01020304), U32BE([]byte{0x01, 0x02, 0x03, 0x04}))
	require.Equal(t, uint32(0x04030201), U32LE([]byte{0x01, 0x02, 0x03, 0x04}))
}

func TestChecksums(t *testing.T) {
	data := []byte{0x01, 0x02, 0xFF}

	require.Equal(t, byte(0x02), Sum8(data, 0))
	require.Equal(t, byte(0xFC), Xor8(data, 0))
	require.Equal(t, uint16(0x01FF+0x02), Sum16(data, 0))
	require.Equal(t, byte(0x01+0x02+0x0F+0x0F), SumNibbles(data, 0))
}

func TestReverseBits(t *testing.T) {
	b := []byte{0b10000000, 0b00000001}
	ReverseBits(b)
	require.Equal(t, []byte{0b00000001, 0b10000000}, b)
}

func TestReverseBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ReverseBytes(b)
	require.Equal(t, []byte{4, 3, 2, 1}, b)
}

func TestDistance(t *testing.T) {
	// ring [0, 10)
	require.Equal(t, uint32(3), Distance(2, 5, 0, 10, false))
	require.Equal(t, uint32(10), Distance(4, 4, 0, 10, true))
	require.Equal(t, uint32(0), Distance(4, 4, 0, 10, false))
	// wraps past hi back to lo
	require.Equal(t, uint32(8), Distance(8, 6, 0, 10, false))
}

func TestIncrement(t *testing.T) {
	require.Equal(t, uint32(7), Increment(5, 2, 0, 10))
	require.Equal(t, uint32(1), Increment(9, 2, 0, 10))
}

func TestMatchPattern(t *testing.T) {
	pattern := []byte("MOD\x00\x00OK_V2.00")
	require.True(t, MatchPattern([]byte("MOD12OK_V2.00"), pattern))
	require.False(t, MatchPattern([]byte("XXX12OK_V2.00"), pattern))
	require.False(t, MatchPattern([]byte("too short"), pattern))
}
