// machine.go - Top-level assembly: CPU, bus, eight cards, the run loop
//
// Grounded in main.go's GUIConfig/NewEmulator wiring convention
// (IntuitionAmiga-IntuitionEngine): one struct owning every component,
// constructed once, driven by a single wall-clock-paced loop. The
// cross-component wiring rule (devices hold only outbound function
// objects, never pointers to each other) follows spec.md §9.

package machine

import (
	"os"

	"golang.org/x/sync/errgroup"
)

// MachineConfig is the enumerated, recognized configuration surface
// (spec.md §6) — no environment variables are part of the core contract.
type MachineConfig struct {
	CPUFrequencyHz uint32
	DisplayScale   int
	BaudOverride   uint32
	ResetMode      ResetMode
	StoragePath    string
	Quiet          bool
}

// DefaultConfig returns the documented defaults (spec.md §6).
func DefaultConfig() MachineConfig {
	return MachineConfig{
		CPUFrequencyHz: 2_000_000,
		DisplayScale:   2,
		ResetMode:      ColdReset,
	}
}

// Machine owns the CPU, the bus, and all eight cards, and implements the
// cooperative single-threaded scheduler from spec.md §5.
type Machine struct {
	cfg MachineConfig

	CPU *CPU
	Bus *Bus

	ram  *SystemRAM
	rom  *ROM
	cart *Cart

	ram1    *BankedRAMCard
	ram2    *BankedRAMCard
	rtc     *RTC
	storage *StorageCard
	serial  *ACIA
	via     *VIA
	sound   *SoundCard
	video   *VDP

	keyMatrix *KeyboardMatrix
	keyEnc    *KeyboardEncoder
	joystick  *Joystick

	deviceAcc uint32
	alive     bool

	irqLines uint8 // bitmask of asserted IRQ sources, cleared per-source
}

const (
	irqSourceVIA = 1 << iota
	irqSourceRTC
	irqSourceSerial
	irqSourceVideo
)

// NewMachine constructs every card, wires interrupt callbacks back to the
// CPU, and returns a machine at its post-construction (not yet reset)
// state. Card construction is parallelised with errgroup since each card
// only allocates its own backing storage and shares nothing until the
// MapIO calls below wire them onto the bus (spec.md's AMBIENT STACK: errgroup is
// construction/teardown-only, never on the run loop).
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.CPUFrequencyHz == 0 {
		cfg.CPUFrequencyHz = 2_000_000
	}

	m := &Machine{cfg: cfg}

	m.ram = NewSystemRAM()
	m.rom = NewROM()
	m.cart = NewCart()
	m.Bus = NewBus(m.ram, m.rom, m.cart)
	m.CPU = NewCPU(m.Bus.Read, m.Bus.Write)

	var g errgroup.Group
	g.Go(func() error { m.ram1 = NewBankedRAMCard(); return nil })
	g.Go(func() error { m.ram2 = NewBankedRAMCard(); return nil })
	g.Go(func() error {
		m.rtc = NewRTC(m.irqSetter(irqSourceRTC), m.CPU.NMI)
		return nil
	})
	g.Go(func() error { m.storage = NewStorageCard(); return nil })
	g.Go(func() error {
		m.serial = NewACIA(m.irqSetter(irqSourceSerial))
		return nil
	})
	g.Go(func() error {
		m.via = NewVIA(m.irqSetter(irqSourceVIA))
		return nil
	})
	g.Go(func() error { m.sound = NewSoundCard(44100); return nil })
	g.Go(func() error {
		m.video = NewVDP(m.irqSetter(irqSourceVideo))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.keyMatrix = NewKeyboardMatrix(0)
	m.keyEnc = NewKeyboardEncoder(1)
	m.joystick = NewJoystick(2)
	m.via.AttachPortA(m.keyMatrix)
	m.via.AttachPortB(m.keyMatrix)
	m.via.AttachPortA(m.keyEnc)
	m.via.AttachPortB(m.keyEnc)
	m.via.AttachPortB(m.joystick)

	m.Bus.MapIO(slotRAM1, m.ram1.Read, m.ram1.Write)
	m.Bus.MapIO(slotRAM2, m.ram2.Read, m.ram2.Write)
	m.Bus.MapIO(slotRTC, m.rtc.Read, m.rtc.Write)
	m.Bus.MapIO(slotStorage, m.storage.Read, m.storage.Write)
	m.Bus.MapIO(slotSerial, m.serial.Read, m.serial.Write)
	m.Bus.MapIO(slotVIA, m.via.Read, m.via.Write)
	m.Bus.MapIO(slotSound, m.sound.Read, m.sound.Write)
	m.Bus.MapIO(slotVideo, m.video.Read, m.video.Write)

	return m, nil
}

// irqSetter returns an IRQSource closure that ORs/clears one bit of the
// aggregate interrupt line; serveInterrupts polls that aggregate at the
// next instruction boundary. Multiple devices share the single 65C02 IRQ
// pin, so it stays asserted as long as any source still holds its bit
// (spec.md §9 "devices own only callbacks").
func (m *Machine) irqSetter(bit uint8) IRQSource {
	return func(assert bool) {
		if assert {
			m.irqLines |= bit
		} else {
			m.irqLines &^= bit
		}
	}
}

func baudControlFor(baud uint32) byte {
	for i, b := range aciaBaudTable {
		if b == baud {
			return byte(i)
		}
	}
	return 0x0F
}

// SetRenderFunc, SetAudioFunc and SetTransmitFunc wire the three optional
// host-facing outputs (spec.md §6).
func (m *Machine) SetRenderFunc(f RenderFunc)     { m.video.SetRenderFunc(f) }
func (m *Machine) SetAudioFunc(f AudioFunc)       { m.sound.SetAudioFunc(f) }
func (m *Machine) SetTransmitFunc(f TransmitFunc) { m.serial.SetTransmitFunc(f) }

// OnReceive, OnKeyDown, OnKeyUp and OnJoystick are the four host-facing
// inputs (spec.md §6). They run between CPU ticks on the same thread as
// the run loop, so no lock is needed (spec.md §5).
func (m *Machine) OnReceive(b byte)         { m.serial.OnReceive(b) }
func (m *Machine) OnKeyDown(hidCode byte)   { m.keyMatrix.KeyDown(hidCode); m.keyEnc.KeyDown(hidCode) }
func (m *Machine) OnKeyUp(hidCode byte)     { m.keyMatrix.KeyUp(hidCode); m.keyEnc.KeyUp(hidCode) }
func (m *Machine) OnJoystick(buttonMask byte) { m.joystick.SetButtons(buttonMask) }

// LoadROM loads a firmware image; a size mismatch is refused and logged,
// leaving the all-zero default in place (spec.md §7).
func (m *Machine) LoadROM(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.logf("rom: %v (using all-zero ROM)", err)
		return
	}
	if len(data) != ROMSize {
		m.logf("rom: %s is %d bytes, want %d (using all-zero ROM)", path, len(data), ROMSize)
		return
	}
	m.rom.Load(data)
}

// LoadCart loads a cartridge image overlaying 0xC000-0xFFFF.
func (m *Machine) LoadCart(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.logf("cart: %v (no cart present)", err)
		return
	}
	if !m.cart.Load(data) {
		m.logf("cart: %s is %d bytes, want %d (no cart present)", path, len(data), CartSize)
	}
}

func (m *Machine) logf(format string, args ...interface{}) {
	hostLog(m.cfg.Quiet, format, args...)
}

// Start resets every component, applies the configured baud override, and
// then loads the optional CF backing file (if configured) so the reset does
// not wipe the loaded image (spec.md §5 "Resource acquisition... scoped to
// the machine's lifetime: open on start").
func (m *Machine) Start() {
	m.Reset(m.cfg.ResetMode)
	if m.cfg.BaudOverride != 0 {
		m.serial.control = baudControlFor(m.cfg.BaudOverride)
	}
	if m.cfg.StoragePath != "" {
		if err := m.storage.Load(m.cfg.StoragePath); err != nil {
			m.logf("storage: %v (using empty store)", err)
		}
	}
	m.alive = true
}

// End saves the optional CF backing file and marks the loop as no longer
// alive; the run loop exits at its next iteration (spec.md §5).
func (m *Machine) End() {
	m.alive = false
	if m.cfg.StoragePath == "" {
		return
	}
	var g errgroup.Group
	g.Go(func() error { return m.storage.Save(m.cfg.StoragePath) })
	if err := g.Wait(); err != nil {
		m.logf("storage: save failed: %v", err)
	}
}

func (m *Machine) Alive() bool { return m.alive }

// Reset propagates a cold or warm reset to every component in bus order.
func (m *Machine) Reset(mode ResetMode) {
	m.ram.Reset(mode)
	m.ram1.Reset(mode)
	m.ram2.Reset(mode)
	m.rtc.Reset(mode)
	m.storage.Reset(mode)
	m.serial.Reset(mode)
	m.via.Reset(mode)
	m.sound.Reset(mode)
	m.video.Reset(mode)
	m.CPU.Reset(mode)
}

// RunCycles advances the machine by exactly n CPU cycles, applying the
// scheduler ordering rules of spec.md §5: serial every cycle, other
// devices every TickInterval cycles via an accumulator, IRQs observed only
// at instruction boundaries (the RTC's NMI callback is CPU.NMI itself, so
// it is taken as soon as the RTC ticks), and the render callback
// invoked only via the video card's own internal per-frame pacing
// (never re-entrantly mid-tick).
func (m *Machine) RunCycles(n uint32) {
	for i := uint32(0); i < n; i++ {
		if m.CPU.AtInstructionBoundary() {
			m.serveInterrupts()
		}
		m.CPU.Tick()
		m.serial.Tick(m.cfg.CPUFrequencyHz)

		m.deviceAcc++
		if m.deviceAcc >= TickInterval {
			m.deviceAcc -= TickInterval
			m.via.Tick(m.cfg.CPUFrequencyHz)
			m.rtc.Tick(m.cfg.CPUFrequencyHz)
			m.sound.Tick(m.cfg.CPUFrequencyHz)
			m.video.Tick(m.cfg.CPUFrequencyHz)
		}
	}
}

func (m *Machine) serveInterrupts() {
	if m.irqLines != 0 {
		m.CPU.IRQ()
	}
}

// RunFor advances the machine to cover elapsedMs of wall-clock time at the
// configured CPU frequency, clamping the pending accumulator at the
// documented ~250ms ceiling to avoid a spiral of death, and returning the
// fractional cycle remainder, in milliseconds, so the caller can carry it
// into the next call (spec.md §5 "Catch-up and pacing").
func (m *Machine) RunFor(elapsedMs float64, carry float64) float64 {
	const ceilingMs = 250.0
	owedMs := elapsedMs + carry
	if owedMs > ceilingMs {
		owedMs = ceilingMs
	}
	owedCyclesF := owedMs / 1000.0 * float64(m.cfg.CPUFrequencyHz)
	owedCycles := uint32(owedCyclesF)
	remainder := owedCyclesF - float64(owedCycles)
	m.RunCycles(owedCycles)
	return remainder * 1000.0 / float64(m.cfg.CPUFrequencyHz)
}
