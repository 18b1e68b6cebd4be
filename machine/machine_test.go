// machine_test.go - end-to-end scheduler pacing, IRQ aggregation, ROM/storage lifecycle

package machine

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestMachine(t *testing.T, cfg MachineConfig) *Machine {
	t.Helper()
	m, err := NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	return m
}

func TestMachineConstructionWiresAllCards(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())

	if m.CPU == nil || m.Bus == nil {
		t.Fatalf("CPU or Bus not constructed")
	}
	for name, card := range map[string]interface{}{
		"ram1": m.ram1, "ram2": m.ram2, "rtc": m.rtc, "storage": m.storage,
		"serial": m.serial, "via": m.via, "sound": m.sound, "video": m.video,
	} {
		if card == nil {
			t.Fatalf("%s not constructed", name)
		}
	}
}

// TestMachineLoadROMRejectsWrongSize covers spec.md §7's size-mismatch
// behavior: the all-zero default ROM is left in place.
func TestMachineLoadROMRejectsWrongSize(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.rom")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	m.LoadROM(path)

	if got := m.Bus.Read(ROMStart); got != 0 {
		t.Fatalf("ROM byte at start = %02X, want 00 (rejected load)", got)
	}
}

// TestMachineLoadROMAcceptsCorrectSize confirms a properly-sized image
// lands in the ROM window, readable through the bus.
func TestMachineLoadROMAcceptsCorrectSize(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())
	dir := t.TempDir()
	path := filepath.Join(dir, "good.rom")
	image := make([]byte, ROMSize)
	image[0] = 0xEA
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	m.LoadROM(path)

	if got := m.Bus.Read(ROMStart); got != 0xEA {
		t.Fatalf("ROM byte at start = %02X, want EA", got)
	}
}

// TestMachineRunForAdvancesCyclesProportionally checks the wall-clock
// pacing math: 1ms at 1MHz should consume roughly 1000 cycles.
func TestMachineRunForAdvancesCyclesProportionally(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CPUFrequencyHz = 1_000_000
	m := newTestMachine(t, cfg)
	m.Start()
	defer m.End()

	before := m.CPU.Cycles
	m.RunFor(1.0, 0)
	after := m.CPU.Cycles

	delta := after - before
	if delta < 900 || delta > 1100 {
		t.Fatalf("cycles consumed for 1ms at 1MHz = %d, want ~1000", delta)
	}
}

// TestMachineRunForClampsAtCeiling covers the anti-spiral-of-death clamp:
// an enormous elapsed duration still only advances ~250ms worth of cycles.
func TestMachineRunForClampsAtCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CPUFrequencyHz = 1_000_000
	m := newTestMachine(t, cfg)
	m.Start()
	defer m.End()

	before := m.CPU.Cycles
	m.RunFor(10_000.0, 0)
	after := m.CPU.Cycles

	delta := after - before
	maxExpected := uint64(260_000) // 250ms at 1MHz plus slack
	if delta > maxExpected {
		t.Fatalf("cycles consumed for a 10s stall = %d, exceeds the 250ms ceiling (%d)", delta, maxExpected)
	}
	if delta < 240_000 {
		t.Fatalf("cycles consumed for a 10s stall = %d, want close to the 250ms ceiling", delta)
	}
}

// TestMachineRunForCarryAccumulatesFractionalCycles checks that the
// returned remainder, fed back into the next call, doesn't silently drop
// sub-cycle time across many short calls.
func TestMachineRunForCarryAccumulatesFractionalCycles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CPUFrequencyHz = 1_000_000
	m := newTestMachine(t, cfg)
	m.Start()
	defer m.End()

	before := m.CPU.Cycles
	carry := 0.0
	for i := 0; i < 1000; i++ {
		carry = m.RunFor(0.1, carry) // 0.1ms steps, sub-cycle-aligned at 1MHz
	}
	after := m.CPU.Cycles

	delta := after - before
	if delta < 99_000 || delta > 101_000 {
		t.Fatalf("cycles consumed across 1000 steps of 0.1ms = %d, want ~100000", delta)
	}
}

// TestMachineIRQAggregationAcrossSources covers the shared-pin semantics
// (spec.md §9): the line stays logically asserted as long as any source
// holds its bit, and clearing one source leaves the other sources' bits in
// place.
func TestMachineIRQAggregationAcrossSources(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())
	m.Start()

	setRTC := m.irqSetter(irqSourceRTC)
	setSerial := m.irqSetter(irqSourceSerial)

	setRTC(true)
	if m.irqLines&irqSourceRTC == 0 {
		t.Fatalf("RTC bit not set in aggregate after asserting")
	}
	setSerial(true)
	if m.irqLines != irqSourceRTC|irqSourceSerial {
		t.Fatalf("aggregate = %02X, want both RTC and serial bits set", m.irqLines)
	}

	setRTC(false)
	if m.irqLines != irqSourceSerial {
		t.Fatalf("clearing RTC left aggregate = %02X, want only serial bit", m.irqLines)
	}
}

// TestMachineServeInterruptsVectorsOnAssertedIRQ checks that
// serveInterrupts, which RunCycles calls at instruction boundaries, takes
// the IRQ and redirects PC while any source holds the aggregate line.
func TestMachineServeInterruptsVectorsOnAssertedIRQ(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())
	m.Start()
	m.CPU.setFlag(FlagIRQDis, false)
	m.CPU.PC = 0x1234 // differs from the all-zero ROM's IRQ vector

	setVIA := m.irqSetter(irqSourceVIA)
	setVIA(true)

	pcBefore := m.CPU.PC
	m.serveInterrupts()

	if m.CPU.PC == pcBefore {
		t.Fatalf("serveInterrupts did not redirect PC despite an asserted IRQ line")
	}
}

// TestMachineStartEndPersistsStorageAcrossInstances covers the documented
// storage lifecycle: data written through the bus survives an End/Start
// cycle against the same backing file on a fresh Machine.
func TestMachineStartEndPersistsStorageAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")

	cfg := DefaultConfig()
	cfg.StoragePath = path
	m1 := newTestMachine(t, cfg)
	m1.Start()

	m1.Bus.Write(StorageBase+ataLBA0, 0)
	m1.Bus.Write(StorageBase+ataLBA1, 0)
	m1.Bus.Write(StorageBase+ataLBA2, 0)
	m1.Bus.Write(StorageBase+ataLBA3, 0)
	m1.Bus.Write(StorageBase+ataSectorCnt, 1)
	m1.Bus.Write(StorageBase+ataCommand, cmdWriteSectors)
	for i := 0; i < StorageSectorSize; i++ {
		m1.Bus.Write(StorageBase+ataData, 0x5A)
	}
	m1.End()

	m2 := newTestMachine(t, cfg)
	m2.Start()
	defer m2.End()

	m2.Bus.Write(StorageBase+ataLBA0, 0)
	m2.Bus.Write(StorageBase+ataLBA1, 0)
	m2.Bus.Write(StorageBase+ataLBA2, 0)
	m2.Bus.Write(StorageBase+ataLBA3, 0)
	m2.Bus.Write(StorageBase+ataSectorCnt, 1)
	m2.Bus.Write(StorageBase+ataCommand, cmdReadSectors)
	for i := 0; i < StorageSectorSize; i++ {
		if got := m2.Bus.Read(StorageBase + ataData); got != 0x5A {
			t.Fatalf("byte %d after reload = %02X, want 5A", i, got)
		}
	}
}

// TestMachineResetPropagatesToEveryComponent spot-checks that Reset
// reaches a card nested behind the bus, using the RTC's cold-reset KSF
// flag as a witness.
func TestMachineResetPropagatesToEveryComponent(t *testing.T) {
	m := newTestMachine(t, DefaultConfig())
	m.rtc.ctrlA = 0

	m.Reset(ColdReset)

	if m.rtc.ctrlA&ctrlAKSF == 0 {
		t.Fatalf("RTC did not observe the cold reset propagated from Machine.Reset")
	}
}
