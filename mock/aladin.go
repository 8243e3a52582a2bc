package mock

import "github.com/divewire/godive/internal/proto"

// aladinPreamble mirrors internal/framing.aladinPreamble: the Uwatec
// Aladin/Memomouse sync sequence.
var aladinPreamble = []byte{0x55, 0x55, 0x55, 0x00}

// NewAladin returns a Transport preloaded with the exact wire bytes
// internal/framing.AladinFramer.Dump expects to read: the literal sync
// preamble, followed by the bit-reversed payload and trailing checksum.
// plainImage is the MemSize-byte buffer ExtractAladin will ultimately
// see (its first HeaderSize bytes are never inspected by extraction and
// may be left zero).
// reversedPreamble is ReverseBits(aladinPreamble): what the decoded
// payload's first four bytes actually are, since AladinFramer.Dump
// bit-reverses the whole receive buffer including the bytes it already
// matched literally against the preamble during resync.
var reversedPreamble = []byte{0xAA, 0xAA, 0xAA, 0x00}

func NewAladin(plainImage []byte) *Transport {
	memSize := len(plainImage)

	decoded := append([]byte(nil), plainImage...)
	copy(decoded[:len(aladinPreamble)], reversedPreamble)
	checksum := proto.Sum16(decoded, 0)
	checksumLE := []byte{byte(checksum), byte(checksum >> 8)}

	wire := make([]byte, 0, memSize+2)
	wire = append(wire, aladinPreamble...)
	body := append(append([]byte(nil), plainImage[len(aladinPreamble):]...), checksumLE...)
	proto.ReverseBits(body)
	wire = append(wire, body...)

	t := New(nil)
	t.Inject(wire)
	return t
}

// NewAladinWithFalseStart returns the same stream as NewAladin, but with
// junk bytes spliced in before the real preamble, exercising the
// resynchronisation path (and its WAITING event) of spec scenario 6.
func NewAladinWithFalseStart(plainImage []byte, junk []byte) *Transport {
	t := NewAladin(plainImage)
	t.queue = append(append([]byte(nil), junk...), t.queue...)
	return t
}
