package engine

import (
	"context"
	"testing"

	"github.com/divewire/godive/internal/interfaces"
	"github.com/divewire/godive/mock"
	"github.com/stretchr/testify/require"
)

func testOceanicLayout() OceanicLayout {
	return OceanicLayout{
		MemSize:             0x200,
		RBLogbookBegin:      0x40,
		RBLogbookEnd:        0x80,
		RBProfileBegin:      0x80,
		RBProfileEnd:        0x200,
		PtModeGlobal:        PointerFirstLast,
		PtModeLogbook:       PointerPacked12,
		DevInfoAddr:         0x00,
		PointersAddr:        0x10,
		PointersFirstOffset: 0,
		PointersLastOffset:  2,
		PageSize:            16,
		Multipage:           4,
	}
}

// TestOceanicVTProDumpRoundTrips exercises property P2: a Dump driven
// through the real VTProFramer against a scripted transport must
// reproduce the underlying image byte for byte.
func TestOceanicVTProDumpRoundTrips(t *testing.T) {
	layout := testOceanicLayout()
	image := make([]byte, layout.MemSize)
	for i := range image {
		image[i] = byte(i)
	}
	tr := mock.NewOceanicVTPro(image, layout, make([]byte, 16))

	backend, err := NewOceanicVTPro(context.Background(), tr, layout, "oceanic_test")
	require.NoError(t, err)
	defer backend.Close()

	data, err := backend.Dump(context.Background(), interfaces.NoopEventSink{})
	require.NoError(t, err)
	require.Equal(t, image, data)
}

func TestOceanicVTProVersionRoundTrips(t *testing.T) {
	layout := testOceanicLayout()
	image := make([]byte, layout.MemSize)
	version := []byte("MOD--OK_V2.00\x00\x00\x00")
	tr := mock.NewOceanicVTPro(image, layout, version)

	backend, err := NewOceanicVTPro(context.Background(), tr, layout, "oceanic_test")
	require.NoError(t, err)
	defer backend.Close()

	out := make([]byte, 16)
	require.NoError(t, backend.Version(context.Background(), out))
	require.Equal(t, version, out)
}

// TestOceanicVTProAutoDetectPicksVTProByDefault exercises the VTPro-identity
// Open Question resolution: a version block that doesn't match the
// Wisdom pattern selects the VTPro layout and family label.
func TestOceanicVTProAutoDetectPicksVTProByDefault(t *testing.T) {
	layout := VTProLayout()
	image := make([]byte, layout.MemSize)
	version := []byte("VTPRO  r\x00\x00  256K")
	tr := mock.NewOceanicVTPro(image, layout, version)

	backend, err := NewOceanicVTProAutoDetect(context.Background(), tr)
	require.NoError(t, err)
	defer backend.Close()

	require.Equal(t, "oceanic_vtpro", backend.Family())
	require.Equal(t, VTProLayout().RBLogbookBegin, backend.layout.RBLogbookBegin)
}

// TestOceanicVTProAutoDetectPicksWisdom exercises the Wisdom match arm of
// the same Open Question, driving internal/proto.MatchPattern's '\0'
// wildcard rule against the two wildcard bytes in the Wisdom pattern.
func TestOceanicVTProAutoDetectPicksWisdom(t *testing.T) {
	layout := WisdomLayout()
	image := make([]byte, layout.MemSize)
	version := []byte("WISDOM r\x12\x34  256K") // \x12\x34 exercise the pattern's wildcard bytes
	tr := mock.NewOceanicVTPro(image, layout, version)

	backend, err := NewOceanicVTProAutoDetect(context.Background(), tr)
	require.NoError(t, err)
	defer backend.Close()

	require.Equal(t, "oceanic_wisdom", backend.Family())
	require.Equal(t, WisdomLayout().RBLogbookBegin, backend.layout.RBLogbookBegin)
}
