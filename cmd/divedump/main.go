// Command divedump is the thin example CLI (spec §1's "out of scope"
// collaborator): it opens a device and writes either a raw memory dump
// or a stream of extracted dives to a file, delegating everything else
// to the library. Grounded on the teacher's cmd/ublk-mem/main.go shape
// (flag parsing, logger setup, context/signal wiring), rewired onto
// github.com/spf13/cobra per sakateka-yanet2's control-plane CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/divewire/godive"
	"github.com/divewire/godive/internal/engine"
	"github.com/divewire/godive/internal/logging"
	"github.com/divewire/godive/internal/transport/serial"
	"github.com/divewire/godive/mock"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		family   string
		devPath  string
		outPath  string
		useMock  bool
		dumpOnly bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "divedump",
		Short: "Download dive logs from a supported dive computer",
		RunE: func(cmd *cobra.Command, args []string) error {
			logConfig := logging.DefaultConfig()
			if verbose {
				logConfig.Level = logging.LevelDebug
			}
			logger := logging.NewLogger(logConfig)
			logging.SetDefault(logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				logger.Warn("interrupt received, cancelling")
				cancel()
			}()

			dev, err := openDevice(ctx, family, devPath, useMock)
			if err != nil {
				return fmt.Errorf("open %s: %w", family, err)
			}
			defer dev.Close()

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			if dumpOnly {
				return runDump(dev, out, logger)
			}
			return runForeach(dev, out, logger)
		},
	}

	cmd.Flags().StringVar(&family, "family", "oceanic_vtpro", "device family: oceanic_vtpro, suunto, aladin, nemo")
	cmd.Flags().StringVar(&devPath, "device", "/dev/ttyUSB0", "serial device path (ignored with --mock)")
	cmd.Flags().StringVar(&outPath, "out", "dive.dump", "output file path")
	cmd.Flags().BoolVar(&useMock, "mock", false, "use an in-memory synthetic device instead of a real transport")
	cmd.Flags().BoolVar(&dumpOnly, "dump", false, "write the raw memory image instead of extracted dives")
	cmd.Flags().BoolVar(&verbose, "v", false, "verbose logging")
	return cmd
}

func runDump(dev *godive.Device, out *os.File, logger *logging.Logger) error {
	buf := godive.NewBuffer(1 << 16)
	if err := dev.Dump(buf); err != nil {
		return err
	}
	_, err := out.Write(buf.Data())
	logger.Info("dump complete", "bytes", buf.Size())
	return err
}

func runForeach(dev *godive.Device, out *os.File, logger *logging.Logger) error {
	count := 0
	err := dev.Foreach(func(data, fingerprint []byte) bool {
		count++
		fmt.Fprintf(out, "--- dive %d (%d bytes, fp=%x) ---\n", count, len(data), fingerprint)
		out.Write(data)
		fmt.Fprintln(out)
		return true
	})
	logger.Info("foreach complete", "dives", count)
	return err
}

// openDevice opens either a real serial-attached device or, with
// --mock, an in-memory synthetic one useful for smoke-testing the CLI
// without hardware attached.
func openDevice(ctx context.Context, family, devPath string, useMock bool) (*godive.Device, error) {
	switch family {
	case "oceanic_vtpro":
		return openOceanic(ctx, devPath, useMock)
	case "suunto":
		return openSuunto(ctx, devPath, useMock)
	case "aladin":
		return openAladin(devPath, useMock)
	case "nemo":
		return openNemo(devPath, useMock)
	default:
		return nil, fmt.Errorf("unknown family %q", family)
	}
}

func defaultOceanicLayout() engine.OceanicLayout {
	return engine.VTProLayout()
}

func openOceanic(ctx context.Context, devPath string, useMock bool) (*godive.Device, error) {
	if useMock {
		layout := defaultOceanicLayout()
		image := make([]byte, layout.MemSize)
		for i := range image {
			image[i] = 0xFF
		}
		tr := mock.NewOceanicVTPro(image, layout, make([]byte, 16))
		backend, err := engine.NewOceanicVTProAutoDetect(ctx, tr)
		if err != nil {
			return nil, err
		}
		return godive.NewDevice(backend, nil), nil
	}

	port, err := serial.Open(devPath, serial.DefaultsFor(oceanicSerialDefaults()))
	if err != nil {
		return nil, err
	}
	backend, err := engine.NewOceanicVTProAutoDetect(ctx, port)
	if err != nil {
		return nil, err
	}
	return godive.NewDevice(backend, nil), nil
}

func openSuunto(ctx context.Context, devPath string, useMock bool) (*godive.Device, error) {
	layout := engine.SuuntoLayout{
		MemSize:        0x8000,
		HeaderAddr:     0x0190,
		RBProfileBegin: 0x019A,
		RBProfileEnd:   0x8000 - 2,
		FPOffset:       0x15,
	}
	if useMock {
		image := make([]byte, layout.MemSize)
		tr := mock.NewSuunto(image, layout, make([]byte, 4))
		backend := engine.NewSuunto(tr, layout, "suunto_mock")
		return godive.NewDevice(backend, nil), nil
	}
	port, err := serial.Open(devPath, serial.DefaultsFor(suuntoSerialDefaults()))
	if err != nil {
		return nil, err
	}
	backend := engine.NewSuunto(port, layout, "suunto_d9")
	return godive.NewDevice(backend, nil), nil
}

func openAladin(devPath string, useMock bool) (*godive.Device, error) {
	layout := engine.DefaultAladinLayout()
	if useMock {
		image := make([]byte, layout.MemSize)
		tr := mock.NewAladin(image)
		backend := engine.NewAladin(tr, layout, "aladin_mock")
		return godive.NewDevice(backend, nil), nil
	}
	port, err := serial.Open(devPath, serial.DefaultsFor(aladinSerialDefaults()))
	if err != nil {
		return nil, err
	}
	backend := engine.NewAladin(port, layout, "aladin")
	return godive.NewDevice(backend, nil), nil
}

func openNemo(devPath string, useMock bool) (*godive.Device, error) {
	layout := engine.DefaultNemoLayout()
	if useMock {
		image := make([]byte, layout.MemSize)
		tr := mock.NewNemo(image)
		backend := engine.NewNemo(tr, layout, "nemo_mock")
		return godive.NewDevice(backend, nil), nil
	}
	port, err := serial.Open(devPath, serial.DefaultsFor(nemoSerialDefaults()))
	if err != nil {
		return nil, err
	}
	backend := engine.NewNemo(port, layout, "nemo")
	return godive.NewDevice(backend, nil), nil
}
