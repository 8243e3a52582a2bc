//go:build linux

package serial

import (
	"testing"

	"github.com/divewire/godive/internal/constants"
)

func TestBaudConstantKnownRates(t *testing.T) {
	for _, baud := range []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200} {
		if _, err := baudConstant(baud); err != nil {
			t.Errorf("baudConstant(%d): unexpected error: %v", baud, err)
		}
	}
}

func TestBaudConstantUnknownRate(t *testing.T) {
	if _, err := baudConstant(31250); err == nil {
		t.Error("baudConstant(31250): expected error for unsupported rate")
	}
}

func TestDefaultsFor(t *testing.T) {
	cfg := DefaultsFor(constants.VTProSerialDefaults)
	if cfg.Baud != 9600 {
		t.Errorf("Baud = %d, want 9600", cfg.Baud)
	}
	if cfg.Parity != ParityNone {
		t.Errorf("Parity = %v, want ParityNone", cfg.Parity)
	}
}
