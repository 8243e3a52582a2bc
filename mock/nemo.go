package mock

import (
	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/proto"
)

// NewNemo returns a Transport preloaded with the exact wire bytes
// internal/framing.NemoFramer.Dump expects: a 20-byte 0xEE preamble
// followed by dual-packet reads, each carrying its own Sum8 checksum.
// plainImage's length must be a multiple of constants.NemoPacketSize.
func NewNemo(plainImage []byte) *Transport {
	packetSize := constants.NemoPacketSize

	wire := make([]byte, 0, 20+len(plainImage)/packetSize*(packetSize+1)*2)
	for i := 0; i < 20; i++ {
		wire = append(wire, 0xEE)
	}

	for off := 0; off < len(plainImage); off += packetSize {
		half1 := plainImage[off : off+packetSize]
		crc1 := proto.Sum8(half1, 0)
		half2 := make([]byte, packetSize) // unused: half1's checksum always matches first
		crc2 := proto.Sum8(half2, 0)

		wire = append(wire, half1...)
		wire = append(wire, crc1)
		wire = append(wire, half2...)
		wire = append(wire, crc2)
	}

	t := New(nil)
	t.Inject(wire)
	return t
}
