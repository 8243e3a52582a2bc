//go:build linux

// Package serial implements the POSIX serial-port transport (spec §6):
// open, configure (baud/bits/parity/stopbits), DTR/RTS line control, and
// timeout-bounded reads/writes, backed directly by golang.org/x/sys/unix
// termios and TIOCM* ioctls. This mirrors the teacher's
// (internal/queue.Runner) style of talking to a device node through raw
// syscalls rather than a higher-level library, applied to a tty fd
// instead of a ublk char-device fd.
package serial

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/divewire/godive/internal/constants"
	"github.com/divewire/godive/internal/interfaces"
)

// Config carries the line settings spec §6 requires the serial
// collaborator to accept: baud, bits, parity, stop bits, and flow
// control, plus the initial read timeout.
type Config struct {
	Baud        int
	DataBits    int
	StopBits    int
	Parity      Parity
	RTSCTS      bool
	ReadTimeout time.Duration
}

// Parity selects the line's parity bit.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// DefaultsFor adapts a family's internal/constants.SerialDefaults into a
// Config, defaulting parity to none and read timeout to
// constants.DefaultReadTimeout.
func DefaultsFor(d constants.SerialDefaults) Config {
	return Config{
		Baud:        d.Baud,
		DataBits:    d.DataBits,
		StopBits:    d.StopBits,
		Parity:      ParityNone,
		ReadTimeout: constants.DefaultReadTimeout,
	}
}

// Port is a POSIX serial line implementing interfaces.Transport.
type Port struct {
	fd       int
	file     *os.File
	timeout  time.Duration
	orig     unix.Termios
}

var _ interfaces.Transport = (*Port)(nil)

// Open opens name (e.g. "/dev/ttyUSB0") and applies cfg's line settings.
func Open(name string, cfg Config) (*Port, error) {
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, interfaces.WrapError("serial.open", err)
	}
	fd := int(f.Fd())

	orig, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, interfaces.WrapError("serial.open", err)
	}

	p := &Port{fd: fd, file: f, orig: *orig, timeout: cfg.ReadTimeout}
	if err := p.configure(cfg); err != nil {
		f.Close()
		return nil, err
	}
	// Clear O_NONBLOCK now that the line is configured; Read uses
	// poll-style deadlines instead (see readDeadline).
	if err := unix.SetNonblock(fd, false); err != nil {
		f.Close()
		return nil, interfaces.WrapError("serial.open", err)
	}
	return p, nil
}

func baudConstant(baud int) (unix.Termios, error) {
	var t unix.Termios
	rate, ok := map[int]uint32{
		1200:   unix.B1200,
		2400:   unix.B2400,
		4800:   unix.B4800,
		9600:   unix.B9600,
		19200:  unix.B19200,
		38400:  unix.B38400,
		57600:  unix.B57600,
		115200: unix.B115200,
	}[baud]
	if !ok {
		return t, fmt.Errorf("unsupported baud rate %d", baud)
	}
	t.Ispeed = rate
	t.Ospeed = rate
	return t, nil
}

// configure applies cfg to the open line via TCSETS, matching the raw
// cfmakeraw-then-cfsetspeed shape every vendor protocol in spec §6
// assumes (no line discipline processing, no echo, no signal chars).
func (p *Port) configure(cfg Config) error {
	base, err := baudConstant(cfg.Baud)
	if err != nil {
		return interfaces.WrapError("serial.configure", err)
	}

	t := p.orig
	t.Ispeed, t.Ospeed = base.Ispeed, base.Ospeed
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CREAD | unix.CLOCAL

	switch cfg.DataBits {
	case 7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}
	if cfg.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}
	switch cfg.Parity {
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	}
	if cfg.RTSCTS {
		t.Cflag |= unix.CRTSCTS
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG
	t.Oflag &^= unix.OPOST

	// Non-canonical read with a byte-granular timeout in deciseconds;
	// the engine layer imposes its own per-call deadline on top via
	// context, this just keeps a blocking Read from hanging forever.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, &t); err != nil {
		return interfaces.WrapError("serial.configure", err)
	}
	return unix.IoctlSetTermios(p.fd, unix.TCSETS, &t) // re-apply speed (BSD/Linux quirk on some kernels)
}

// SetTimeout sets the per-Read deadline; ms < 0 means infinite.
func (p *Port) SetTimeout(ms int) error {
	if ms < 0 {
		p.timeout = 0
		return nil
	}
	p.timeout = time.Duration(ms) * time.Millisecond
	return nil
}

// SetDTR drives the DTR modem-control line via TIOCM.
func (p *Port) SetDTR(value bool) error {
	return p.setModemBit(unix.TIOCM_DTR, value)
}

// SetRTS drives the RTS modem-control line via TIOCM.
func (p *Port) SetRTS(value bool) error {
	return p.setModemBit(unix.TIOCM_RTS, value)
}

func (p *Port) setModemBit(bit int, value bool) error {
	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return interfaces.WrapError("serial.modem", err)
	}
	if value {
		status |= bit
	} else {
		status &^= bit
	}
	if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCMSET, status); err != nil {
		return interfaces.WrapError("serial.modem", err)
	}
	return nil
}

// Flush discards queued, unread (and unwritten) bytes.
func (p *Port) Flush() error {
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return interfaces.WrapError("serial.flush", err)
	}
	return nil
}

// Read blocks for at most the configured timeout. A timeout with zero
// bytes read returns (0, nil), distinguishable from EOF (n == 0 with a
// non-nil io.EOF-wrapping error would come from the underlying read
// itself, which unix.Read never returns for a tty).
func (p *Port) Read(ctx context.Context, buf []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	deadline := p.readDeadline()
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return 0, nil
		}
		n, err := unix.Read(p.fd, buf)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || (err == nil && n == 0 && len(buf) > 0) {
			if err := interfaces.CheckContext(ctx); err != nil {
				return 0, err
			}
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			return 0, interfaces.WrapError("serial.read", err)
		}
		return n, nil
	}
}

func (p *Port) readDeadline() time.Time {
	if p.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(p.timeout)
}

// Write writes p fully or returns an IO error on a short/partial write.
func (p *Port) Write(ctx context.Context, buf []byte) (int, error) {
	if err := interfaces.CheckContext(ctx); err != nil {
		return 0, err
	}
	n, err := unix.Write(p.fd, buf)
	if err != nil {
		return n, interfaces.WrapError("serial.write", err)
	}
	if n != len(buf) {
		return n, interfaces.NewError("serial.write", interfaces.StatusIO, "short write")
	}
	return n, nil
}

// Close restores the original termios settings and releases the fd.
func (p *Port) Close() error {
	_ = unix.IoctlSetTermios(p.fd, unix.TCSETS, &p.orig)
	return p.file.Close()
}
