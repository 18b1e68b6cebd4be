// cpu.go - Cycle-accurate 65C02 CPU core
//
// Grounded in cpu_six5go2.go (IntuitionAmiga-IntuitionEngine): register
// layout, addressing-mode helpers (getAbsolute/getZeroPageX/...), the
// push/pop stack helpers and the binary/BCD adc/sbc split are all adapted
// from that file, narrowed to the plain 16-bit 6502 bus spec.md §6 requires
// (no 32-bit bank-window adapter) and extended with the BRK/IRQ/NMI
// semantics and cycle-accurate tick() scheduling spec.md §4.1 demands.

package machine

// BusReader and BusWriter are the two callbacks the CPU is constructed
// with — it holds function objects, not a pointer to the bus, so ownership
// stays acyclic (spec.md §9).
type BusReader func(addr uint16) byte
type BusWriter func(addr uint16, value byte)

var nzTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		if i == 0 {
			nzTable[i] |= FlagZero
		}
		if i&0x80 != 0 {
			nzTable[i] |= FlagNegative
		}
	}
}

// CPU implements a MOS 65C02-family processor: program counter, the three
// general registers, the status register, and the two cycle counters
// spec.md §3 requires — a monotonic total and a per-instruction remaining
// count used by Tick's cycle-at-a-time scheduling.
type CPU struct {
	PC uint16
	SP byte
	A  byte
	X  byte
	Y  byte
	SR byte

	Cycles    uint64 // monotonic total, never decreases
	remaining int    // cycles left in the instruction currently being metered

	read  BusReader
	write BusWriter
}

func NewCPU(read BusReader, write BusWriter) *CPU {
	return &CPU{read: read, write: write}
}

// Reset sets SP to 0xFD, SR to only the Unused bit, A/X/Y to 0, loads PC
// from the reset vector and schedules the seven-cycle reset prologue
// (spec.md §4.1).
func (c *CPU) Reset(mode ResetMode) {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.SR = FlagUnused
	c.PC = c.read16(ResetVectorLow)
	c.Cycles += ResetCycles
	c.remaining = 0
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read(addr))
	hi := uint16(c.read(addr + 1))
	return lo | hi<<8
}

func (c *CPU) push(v byte) {
	c.write(StackBase|uint16(c.SP), v)
	c.SP--
}

func (c *CPU) push16(v uint16) {
	c.push(byte(v >> 8))
	c.push(byte(v))
}

func (c *CPU) pop() byte {
	c.SP++
	return c.read(StackBase | uint16(c.SP))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return lo | hi<<8
}

func (c *CPU) setFlag(flag byte, on bool) {
	if on {
		c.SR |= flag
	} else {
		c.SR &^= flag
	}
}

func (c *CPU) getFlag(flag byte) bool { return c.SR&flag != 0 }

func (c *CPU) updateNZ(v byte) {
	c.SR = (c.SR &^ (FlagZero | FlagNegative)) | nzTable[v]
}

// IRQ pushes PC, then status with Break clear and Unused set, sets the
// IRQ-disable flag and loads PC from the IRQ vector. No-op if IRQ-disable
// is already set (spec.md §4.1).
func (c *CPU) IRQ() {
	if c.getFlag(FlagIRQDis) {
		return
	}
	c.handleInterrupt(IRQVectorLow, FlagBreak, false)
}

// NMI behaves like IRQ but uses the NMI vector and ignores IRQ-disable.
func (c *CPU) NMI() {
	c.handleInterrupt(NMIVectorLow, FlagBreak, true)
}

func (c *CPU) handleInterrupt(vector uint16, clearBreak byte, _ bool) {
	c.push16(c.PC)
	status := (c.SR | FlagUnused) &^ clearBreak
	c.push(status)
	c.setFlag(FlagIRQDis, true)
	c.PC = c.read16(vector)
	c.Cycles += InterruptCost
}

// Step runs one complete instruction and returns the number of cycles it
// consumed. The caller must be at an instruction boundary (remaining == 0);
// Step is the atomic, non-interleaved entry point used by tests and by any
// host that doesn't need cycle-level Tick granularity (spec.md §8 E1/E2).
func (c *CPU) Step() int {
	before := c.Cycles
	cost := c.execute()
	c.Cycles += uint64(cost)
	c.remaining = 0
	_ = before
	return cost
}

// Tick consumes one cycle of whatever instruction is current. When no
// instruction is in flight it fetches and fully executes the next one,
// "spending" its first cycle immediately and leaving the rest queued in
// remaining — side effects are atomic per spec.md §4.1 ("step never yields
// mid-instruction"), but Tick still lets the scheduler account for elapsed
// cycles one at a time, which is what the interrupt-observation and serial
// baud-pacing rules in spec.md §5 depend on.
func (c *CPU) Tick() {
	if c.remaining <= 0 {
		cost := c.execute()
		if cost < 1 {
			cost = 1
		}
		c.remaining = cost - 1
	} else {
		c.remaining--
	}
	c.Cycles++
}

// AtInstructionBoundary reports whether the next Tick will fetch a new
// opcode — the point at which the scheduler is allowed to let a posted
// IRQ/NMI be observed (spec.md §5, point 4).
func (c *CPU) AtInstructionBoundary() bool { return c.remaining <= 0 }
