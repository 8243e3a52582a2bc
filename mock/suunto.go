package mock

import (
	"github.com/divewire/godive/internal/engine"
	"github.com/divewire/godive/internal/proto"
)

// NewSuunto returns a Transport that answers the Suunto Vyper2/D9-family
// request/response protocol (internal/framing.SuuntoFramer) directly out
// of image, a full MemSize-byte flat memory image, and version, the
// 4-byte firmware identification block.
func NewSuunto(image []byte, layout engine.SuuntoLayout, version []byte) *Transport {
	return New(func(cmd []byte) []byte {
		switch cmd[0] {
		case 0x0F: // Version: 3 zero header bytes + version + checksum.
			out := make([]byte, 3+len(version)+1)
			copy(out[3:3+len(version)], version)
			out[len(out)-1] = proto.Xor8(out[:len(out)-1], 0)
			return out

		case 0x05: // ReadAt: cmd = [0x05,0x00,0x03,addrHi,addrLo,length,checksum].
			address := uint32(cmd[3])<<8 | uint32(cmd[4])
			length := uint32(cmd[5])
			out := make([]byte, 6+length+1)
			copy(out[6:6+length], image[address:address+length])
			out[len(out)-1] = proto.Xor8(out[:len(out)-1], 0)
			return out

		case 0x06: // WriteAt: cmd = [0x06,0x00,length+3,addrHi,addrLo,length,data...,checksum].
			address := uint32(cmd[3])<<8 | uint32(cmd[4])
			length := uint32(cmd[5])
			copy(image[address:address+length], cmd[6:6+length])
			out := make([]byte, 4)
			out[3] = proto.Xor8(out[:3], 0)
			return out
		}
		return nil
	})
}
