// main.go - machinectl entry point
//
// Grounded in z80opt's cobra.Command root-plus-subcommand tree
// (oisee-z80-optimizer/cmd/z80opt/main.go): one rootCmd carrying the
// shared machine flags, dispatching to a windowed or headless frontend
// depending on --headless, rather than the teacher's commented-out
// GTK4/flag-package main().

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zotley/octabus65/machine"
)

var (
	flagROM       string
	flagCart      string
	flagStorage   string
	flagFrequency uint32
	flagBaud      uint32
	flagWarmReset bool
	flagHeadless  bool
	flagQuiet     bool
	flagScale     int
)

func main() {
	root := &cobra.Command{
		Use:   "machinectl",
		Short: "Run the 65C02 home computer emulator",
		RunE:  runMachine,
	}

	root.Flags().StringVar(&flagROM, "rom", "", "firmware ROM image to load")
	root.Flags().StringVar(&flagCart, "cart", "", "cartridge image to load (overlays $C000-$FFFF)")
	root.Flags().StringVar(&flagStorage, "storage", "", "CompactFlash backing file (created if absent)")
	root.Flags().Uint32Var(&flagFrequency, "frequency", 2_000_000, "CPU clock frequency in Hz")
	root.Flags().Uint32Var(&flagBaud, "baud", 0, "ACIA baud rate override (0 keeps the firmware's setting)")
	root.Flags().BoolVar(&flagWarmReset, "warm-reset", false, "reset without clearing RAM")
	root.Flags().BoolVar(&flagHeadless, "headless", false, "run without a graphical window (serial console only)")
	root.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress host-boundary notices on stderr")
	root.Flags().IntVar(&flagScale, "scale", 2, "window scale factor for the windowed frontend")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMachine(cmd *cobra.Command, args []string) error {
	resetMode := machine.ColdReset
	if flagWarmReset {
		resetMode = machine.WarmReset
	}

	cfg := machine.MachineConfig{
		CPUFrequencyHz: flagFrequency,
		DisplayScale:   flagScale,
		BaudOverride:   flagBaud,
		ResetMode:      resetMode,
		StoragePath:    flagStorage,
		Quiet:          flagQuiet,
	}

	m, err := machine.NewMachine(cfg)
	if err != nil {
		return fmt.Errorf("constructing machine: %w", err)
	}

	if flagROM != "" {
		m.LoadROM(flagROM)
	}
	if flagCart != "" {
		m.LoadCart(flagCart)
	}

	m.Start()
	defer m.End()

	if flagHeadless {
		return runHeadless(m)
	}
	return runWindowed(m)
}
