package mock

import (
	"context"
	"testing"
	"time"

	"github.com/divewire/godive/internal/engine"
	"github.com/divewire/godive/internal/interfaces"
	"github.com/stretchr/testify/require"
)

// TestNewAladinRoundTrips exercises AladinFramer.Dump end to end against
// the wire bytes NewAladin constructs: the decoded payload must match
// plainImage everywhere except the four header bytes the preamble
// overwrites, and the checksum embedded on the wire must verify.
func TestNewAladinRoundTrips(t *testing.T) {
	layout := engine.DefaultAladinLayout()
	image := make([]byte, layout.MemSize)
	for i := range image {
		image[i] = byte(i)
	}

	tr := NewAladin(image)
	backend := engine.NewAladin(tr, layout, "aladin_test")
	defer backend.Close()

	data, err := backend.Dump(context.Background(), interfaces.NoopEventSink{})
	require.NoError(t, err)
	require.Len(t, data, int(layout.MemSize))
	require.Equal(t, image[layout.HeaderSize:], data[layout.HeaderSize:])
}

func TestNewAladinWithFalseStartResyncs(t *testing.T) {
	layout := engine.DefaultAladinLayout()
	image := make([]byte, layout.MemSize)
	for i := range image {
		image[i] = byte(i * 3)
	}

	tr := NewAladinWithFalseStart(image, []byte{0x01, 0x02, 0x55, 0x55, 0x03})
	backend := engine.NewAladin(tr, layout, "aladin_test")
	defer backend.Close()

	var waited bool
	sink := &recordingSink{onWaiting: func() { waited = true }}
	data, err := backend.Dump(context.Background(), sink)
	require.NoError(t, err)
	require.Equal(t, image[layout.HeaderSize:], data[layout.HeaderSize:])
	require.True(t, waited, "junk before the preamble should trigger at least one Waiting event")
}

// TestNewAladinDumpEmitsHostClock checks that the Clock event's host side
// is a real timestamp captured at preamble completion, not a placeholder.
func TestNewAladinDumpEmitsHostClock(t *testing.T) {
	layout := engine.DefaultAladinLayout()
	image := make([]byte, layout.MemSize)

	before := time.Now().UnixNano()
	tr := NewAladin(image)
	backend := engine.NewAladin(tr, layout, "aladin_test")
	defer backend.Close()

	var clock *clockRecord
	sink := &recordingSink{onClock: func(hostTicks, deviceTicks int64) {
		clock = &clockRecord{hostTicks: hostTicks, deviceTicks: deviceTicks}
	}}
	_, err := backend.Dump(context.Background(), sink)
	require.NoError(t, err)
	after := time.Now().UnixNano()

	require.NotNil(t, clock, "Dump must emit a Clock event")
	require.GreaterOrEqual(t, clock.hostTicks, before)
	require.LessOrEqual(t, clock.hostTicks, after)
}

type clockRecord struct {
	hostTicks, deviceTicks int64
}

type recordingSink struct {
	onWaiting func()
	onClock   func(hostTicks, deviceTicks int64)
}

func (s *recordingSink) Progress(current, maximum uint64) {}
func (s *recordingSink) Waiting() {
	if s.onWaiting != nil {
		s.onWaiting()
	}
}
func (s *recordingSink) DevInfo(model, firmware, serial string) {}
func (s *recordingSink) Clock(hostTicks, deviceTicks int64) {
	if s.onClock != nil {
		s.onClock(hostTicks, deviceTicks)
	}
}
