// Package framing implements the per-family request/response state
// machines: ACK/NAK handshakes, checksum verification, and retry policy,
// built atop internal/interfaces.Transport.
package framing

import (
	"bytes"
	"context"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/internal/proto"
)

var vtproHandshake = []byte("MOD--OK_V2.00")

// wisdomIdentPattern is the Wisdom model's 16-byte identification block,
// with the '\0' bytes matched as wildcards by proto.MatchPattern (spec
// §9's VTPro-identity Open Question). VTPro itself has no separate
// pattern to check against: original_source/oceanic_vtpro.c's
// oceanic_vtpro_device_open falls through to the VTPro layout whenever
// the Wisdom pattern doesn't match.
var wisdomIdentPattern = []byte("WISDOM r\x00\x00  256K")

// VTProFramer implements the Oceanic VTPro/Wisdom probe and transfer
// state machine: init handshake, version block, calibration, and
// multipage reads, each guarded by the ACK/NAK retry loop.
type VTProFramer struct {
	Transport interfaces.Transport
}

// send writes command and expects a single ACK byte back, retrying up to
// constants.MaxRetries times when the device answers with NAK or the read
// times out.
func (f *VTProFramer) send(ctx context.Context, command []byte) error {
	var lastErr error
	for retry := 0; retry <= constants.MaxRetries; retry++ {
		if err := interfaces.CheckContext(ctx); err != nil {
			return err
		}
		if _, err := f.Transport.Write(ctx, command); err != nil {
			return err
		}

		resp := make([]byte, 1)
		n, err := f.Transport.Read(ctx, resp)
		if err != nil {
			lastErr = err
			continue
		}
		if n != 1 {
			lastErr = errProtocol("oceanic_vtpro.send", "short ACK read")
			continue
		}
		if resp[0] != constants.ACK {
			lastErr = errProtocol("oceanic_vtpro.send", "unexpected answer start byte")
			continue
		}
		return nil
	}
	return lastErr
}

// Transfer sends command, waits for the ACK/NAK handshake (with retry),
// then reads len(answer) bytes into answer.
func (f *VTProFramer) Transfer(ctx context.Context, command, answer []byte) error {
	if err := f.send(ctx, command); err != nil {
		return err
	}
	n, err := f.Transport.Read(ctx, answer)
	if err != nil {
		return err
	}
	if n != len(answer) {
		return errProtocol("oceanic_vtpro.transfer", "short answer read")
	}
	return nil
}

// Init performs the "MOD mode" handshake that switches the cable into
// download mode.
func (f *VTProFramer) Init(ctx context.Context) error {
	if _, err := f.Transport.Write(ctx, []byte{0xAA, 0x00}); err != nil {
		return err
	}
	answer := make([]byte, 13)
	n, err := f.Transport.Read(ctx, answer)
	if err != nil {
		return err
	}
	if n != len(answer) || !bytes.Equal(answer, vtproHandshake) {
		return errProtocol("oceanic_vtpro.init", "unexpected answer bytes")
	}
	return nil
}

// Quit switches the device back to surface mode.
func (f *VTProFramer) Quit(ctx context.Context) error {
	answer := make([]byte, 1)
	if err := f.Transfer(ctx, []byte{0x6A, 0x05, 0xA5, 0x00}, answer); err != nil {
		return err
	}
	if answer[0] != constants.END {
		return errProtocol("oceanic_vtpro.quit", "unexpected answer byte")
	}
	return nil
}

// Calibrate sends the slow calibration command under a temporarily
// elevated timeout; calibration considerably speeds up later transfers.
func (f *VTProFramer) Calibrate(ctx context.Context) error {
	if err := f.Transport.SetTimeout(int(constants.VTProCalibrateTimeout.Milliseconds())); err != nil {
		return err
	}
	answer := make([]byte, 2)
	err := f.Transfer(ctx, []byte{0x18, 0x00}, answer)
	_ = f.Transport.SetTimeout(int(constants.DefaultReadTimeout.Milliseconds()))
	if err != nil {
		return err
	}
	if answer[1] != 0x00 {
		return errProtocol("oceanic_vtpro.calibrate", "unexpected answer byte")
	}
	return nil
}

// Version reads the PAGESIZE-byte version/identification block, which is
// split over two packets on the wire and joined here.
func (f *VTProFramer) Version(ctx context.Context) ([]byte, error) {
	half := constants.PageSize / 2

	// Switch into download mode; response format matches but is discarded.
	probe := make([]byte, half+1)
	if err := f.Transfer(ctx, []byte{0x88, 0x00}, probe); err != nil {
		return nil, err
	}
	if probe[half] != proto.SumNibbles(probe[:half], 0) {
		return nil, errProtocol("oceanic_vtpro.version", "unexpected CRC")
	}

	data := make([]byte, constants.PageSize)
	for i := 0; i < 2; i++ {
		command := []byte{0x72, 0x03, byte(i * 0x10), 0x00}
		answer := make([]byte, half+2)
		if err := f.Transfer(ctx, command, answer); err != nil {
			return nil, err
		}
		if answer[half] != proto.SumNibbles(answer[:half], 0) {
			return nil, errProtocol("oceanic_vtpro.version", "unexpected CRC")
		}
		if answer[half+1] != constants.END {
			return nil, errProtocol("oceanic_vtpro.version", "unexpected trailing byte")
		}
		copy(data[i*half:(i+1)*half], answer[:half])
	}
	return data, nil
}

// Identify reads the 16-byte version/identification block and matches it
// against the known family patterns via proto.MatchPattern, returning
// "oceanic_wisdom" on a match and "oceanic_vtpro" otherwise.
func (f *VTProFramer) Identify(ctx context.Context) (string, error) {
	data, err := f.Version(ctx)
	if err != nil {
		return "", err
	}
	if proto.MatchPattern(data, wisdomIdentPattern) {
		return "oceanic_wisdom", nil
	}
	return "oceanic_vtpro", nil
}

// ReadPages reads size bytes (a multiple of PageSize) starting at address
// (also PageSize-aligned) in chunks of up to Multipage pages, verifying a
// per-page byte-sum checksum.
func (f *VTProFramer) ReadPages(ctx context.Context, address uint32, out []byte) error {
	pageSize := uint32(constants.PageSize)
	multipage := uint32(constants.Multipage)

	var nbytes uint32
	size := uint32(len(out))
	for nbytes < size {
		npackets := (size - nbytes) / pageSize
		if npackets > multipage {
			npackets = multipage
		}

		first := address / pageSize
		last := first + npackets - 1
		command := []byte{
			0x34,
			byte(first >> 8), byte(first),
			byte(last >> 8), byte(last),
			0x00,
		}

		answer := make([]byte, (pageSize+1)*npackets)
		if err := f.Transfer(ctx, command, answer); err != nil {
			return err
		}

		var offset uint32
		for i := uint32(0); i < npackets; i++ {
			page := answer[offset : offset+pageSize]
			crc := answer[offset+pageSize]
			if crc != proto.Sum8(page, 0) {
				return errProtocol("oceanic_vtpro.read", "unexpected CRC")
			}
			copy(out[nbytes:nbytes+pageSize], page)

			offset += pageSize + 1
			nbytes += pageSize
			address += pageSize
		}
	}
	return nil
}

func errProtocol(op, msg string) error {
	return protoError{op: op, msg: msg}
}

// protoError is a lightweight local error; callers at the engine/device
// layer translate it to *godive.Error via internal/interfaces so that
// internal/framing has no import-cycle dependency on the root package.
type protoError struct {
	op  string
	msg string
}

func (e protoError) Error() string {
	return e.op + ": " + e.msg
}
