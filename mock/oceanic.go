package mock

import (
	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/engine"
	"github.com/divewire/godive/internal/proto"
)

// NewOceanicVTPro returns a Transport that answers the Oceanic VTPro
// probe/read commands (internal/framing.VTProFramer) by serving pages
// directly out of image, a full MemSize-byte flat memory image. version
// is the 16-byte identification block returned for the 0x88/0x72
// version-read sequence.
func NewOceanicVTPro(image []byte, layout engine.OceanicLayout, version []byte) *Transport {
	pageSize := layout.PageSize
	if pageSize == 0 {
		pageSize = constants.PageSize
	}

	return New(func(cmd []byte) []byte {
		switch cmd[0] {
		case 0xAA: // Init: no ACK byte, direct handshake string.
			return []byte("MOD--OK_V2.00")

		case 0x88: // Version probe switch; response format matches ReadPages.
			half := pageSize / 2
			probe := make([]byte, half)
			crc := proto.SumNibbles(probe, 0)
			return append([]byte{constants.ACK}, append(probe, crc)...)

		case 0x72: // Version page half, i = cmd[2]/0x10.
			half := pageSize / 2
			i := uint32(cmd[2]) / 0x10
			page := make([]byte, half)
			copy(page, version[i*half:(i+1)*half])
			crc := proto.SumNibbles(page, 0)
			out := append([]byte{constants.ACK}, page...)
			out = append(out, crc, constants.END)
			return out

		case 0x18: // Calibrate.
			return []byte{constants.ACK, 0x00, 0x00}

		case 0x34: // Multipage read: cmd = [0x34, firstHi, firstLo, lastHi, lastLo, 0x00].
			first := uint32(cmd[1])<<8 | uint32(cmd[2])
			last := uint32(cmd[3])<<8 | uint32(cmd[4])
			out := []byte{constants.ACK}
			for pg := first; pg <= last; pg++ {
				addr := pg * pageSize
				page := image[addr : addr+pageSize]
				crc := proto.Sum8(page, 0)
				out = append(out, page...)
				out = append(out, crc)
			}
			return out

		case 0x6A: // Quit.
			return []byte{constants.ACK, constants.END}
		}
		return nil
	})
}
