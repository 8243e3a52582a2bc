package framing

import (
	"context"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

// SuuntoFramer implements the Suunto Vyper2/D9-family request/response
// protocol, grounded on original_source/suunto_common2.c: a 4-byte
// command header (opcode, length, address-or-zero) followed by a
// trailing XOR-8 checksum, with the whole command/answer pair retried up
// to MaxRetries times on timeout or checksum failure.
type SuuntoFramer struct {
	Transport interfaces.Transport
}

// transfer writes command, reads exactly len(answer) bytes into answer,
// and verifies the trailing XOR-8 checksum over the received bytes
// (suunto_common2_transfer's retry policy: only TIMEOUT/PROTOCOL trigger
// a retry, everything else propagates immediately).
func (f *SuuntoFramer) transfer(ctx context.Context, command, answer []byte) error {
	var lastErr error
	for retry := 0; retry <= constants.MaxRetries; retry++ {
		if err := interfaces.CheckContext(ctx); err != nil {
			return err
		}

		if _, err := f.Transport.Write(ctx, command); err != nil {
			return err
		}
		n, err := f.Transport.Read(ctx, answer)
		if err != nil {
			if !interfaces.IsStatus(err, interfaces.StatusTimeout) && !interfaces.IsStatus(err, interfaces.StatusProtocol) {
				return err
			}
			lastErr = err
			continue
		}
		if n != len(answer) {
			lastErr = errProtocol("suunto.transfer", "short answer read")
			continue
		}
		got := proto.Xor8(answer[:len(answer)-1], 0)
		want := answer[len(answer)-1]
		if got != want {
			lastErr = errProtocol("suunto.transfer", "unexpected checksum")
			continue
		}
		return nil
	}
	return lastErr
}

// Version reads the 4-byte firmware version block.
func (f *SuuntoFramer) Version(ctx context.Context) ([]byte, error) {
	command := []byte{0x0F, 0x00, 0x00, 0x0F}
	answer := make([]byte, constants.SuuntoVersionSize+4)
	if err := f.transfer(ctx, command, answer); err != nil {
		return nil, err
	}
	return answer[3 : 3+constants.SuuntoVersionSize], nil
}

// ReadAt reads len(out) bytes from address in packets of at most
// SuuntoPacketSize, matching suunto_common2_device_read exactly.
func (f *SuuntoFramer) ReadAt(ctx context.Context, address uint32, out []byte) error {
	packetSize := uint32(constants.SuuntoPacketSize)
	size := uint32(len(out))
	var nbytes uint32
	for nbytes < size {
		length := size - nbytes
		if length > packetSize {
			length = packetSize
		}
		command := []byte{
			0x05, 0x00, 0x03,
			byte(address >> 8), byte(address),
			byte(length),
			0,
		}
		command[6] = proto.Xor8(command[:6], 0)

		answer := make([]byte, length+7)
		if err := f.transfer(ctx, command, answer); err != nil {
			return err
		}
		copy(out[nbytes:nbytes+length], answer[6:6+length])

		nbytes += length
		address += length
	}
	return nil
}

// WriteAt writes len(in) bytes to address in packets of at most
// SuuntoPacketSize, matching suunto_common2_device_write.
func (f *SuuntoFramer) WriteAt(ctx context.Context, address uint32, in []byte) error {
	packetSize := uint32(constants.SuuntoPacketSize)
	size := uint32(len(in))
	var nbytes uint32
	for nbytes < size {
		length := size - nbytes
		if length > packetSize {
			length = packetSize
		}
		command := make([]byte, length+7)
		command[0], command[1], command[2] = 0x06, 0x00, byte(length+3)
		command[3] = byte(address >> 8)
		command[4] = byte(address)
		command[5] = byte(length)
		copy(command[6:6+length], in[nbytes:nbytes+length])
		command[6+length] = proto.Xor8(command[:6+length], 0)

		answer := make([]byte, 4)
		if err := f.transfer(ctx, command, answer); err != nil {
			return err
		}

		nbytes += length
		address += length
	}
	return nil
}
