// debugmonitor.go - Breakpoints, single-step, register/memory inspection
//
// Grounded in debug_monitor.go's MachineMonitor state-machine convention
// (IntuitionAmiga-IntuitionEngine) and debug_commands.go's command-table
// pattern, scaled down from that file's multi-architecture/multi-CPU
// design to the single 65C02 core this system has, and re-exposed as Lua
// functions via yuin/gopher-lua instead of the teacher's bespoke parser.

package machine

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Breakpoint is a single PC-address stop point.
type Breakpoint struct {
	Addr    uint16
	Enabled bool
}

// Monitor wraps a Machine with breakpoints, single-step control and
// inspection helpers (spec.md's supplemented debug monitor).
type Monitor struct {
	m *Machine

	breakpoints map[uint16]*Breakpoint
	history     []uint16 // PC values at each completed Step, most recent last
	maxHistory  int
}

func NewMonitor(m *Machine) *Monitor {
	return &Monitor{m: m, breakpoints: make(map[uint16]*Breakpoint), maxHistory: 64}
}

// SetBreakpoint arms a stop point at addr.
func (mon *Monitor) SetBreakpoint(addr uint16) {
	mon.breakpoints[addr] = &Breakpoint{Addr: addr, Enabled: true}
}

// ClearBreakpoint disarms a stop point.
func (mon *Monitor) ClearBreakpoint(addr uint16) {
	delete(mon.breakpoints, addr)
}

// Breakpoints returns the currently armed addresses.
func (mon *Monitor) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(mon.breakpoints))
	for addr, bp := range mon.breakpoints {
		if bp.Enabled {
			out = append(out, addr)
		}
	}
	return out
}

func (mon *Monitor) atBreakpoint() bool {
	bp, ok := mon.breakpoints[mon.m.CPU.PC]
	return ok && bp.Enabled
}

// Step executes exactly one CPU instruction via the atomic Step() entry
// point and records the PC in the backtrace history.
func (mon *Monitor) Step() int {
	mon.history = append(mon.history, mon.m.CPU.PC)
	if len(mon.history) > mon.maxHistory {
		mon.history = mon.history[len(mon.history)-mon.maxHistory:]
	}
	return mon.m.CPU.Step()
}

// RunUntilBreakpoint steps the CPU until an armed breakpoint's address is
// reached or maxSteps instructions have executed, whichever comes first.
func (mon *Monitor) RunUntilBreakpoint(maxSteps int) (stopped bool, steps int) {
	for steps = 0; steps < maxSteps; steps++ {
		if mon.atBreakpoint() && steps > 0 {
			return true, steps
		}
		mon.Step()
	}
	return mon.atBreakpoint(), steps
}

// Backtrace returns the most recent instruction-boundary PCs, oldest
// first (grounded in debug_backtrace.go's call-stack-as-PC-history
// convention, simplified to one CPU).
func (mon *Monitor) Backtrace() []uint16 {
	out := make([]uint16, len(mon.history))
	copy(out, mon.history)
	return out
}

// RegisterDump is a snapshot of the visible CPU state.
type RegisterDump struct {
	PC         uint16
	SP, A, X, Y, SR byte
	Cycles     uint64
}

func (mon *Monitor) Registers() RegisterDump {
	c := mon.m.CPU
	return RegisterDump{PC: c.PC, SP: c.SP, A: c.A, X: c.X, Y: c.Y, SR: c.SR, Cycles: c.Cycles}
}

// MemoryDump reads count bytes starting at addr through the bus.
func (mon *Monitor) MemoryDump(addr uint16, count int) []byte {
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		out[i] = mon.m.Bus.Read(addr + uint16(i))
	}
	return out
}

// PokeMemory writes a single byte through the bus (subject to the same
// ROM write-immunity as any other bus write).
func (mon *Monitor) PokeMemory(addr uint16, v byte) {
	mon.m.Bus.Write(addr, v)
}

// Disassemble decodes count instructions starting at addr.
func (mon *Monitor) Disassemble(addr uint16, count int) []DisassembledLine {
	return Disassemble(mon.m.Bus.Read, addr, count)
}

// NewLuaState returns a gopher-lua VM with the monitor's capabilities
// exposed as script functions: cpu.step(), cpu.registers(), mem.peek(addr),
// mem.poke(addr, v), bp.set(addr), bp.clear(addr), via.attach is left to
// Go-side wiring since attachments are constructed, not scripted.
func (mon *Monitor) NewLuaState() *lua.LState {
	L := lua.NewState()

	cpuTable := L.NewTable()
	L.SetField(cpuTable, "step", L.NewFunction(func(L *lua.LState) int {
		cost := mon.Step()
		L.Push(lua.LNumber(cost))
		return 1
	}))
	L.SetField(cpuTable, "registers", L.NewFunction(func(L *lua.LState) int {
		r := mon.Registers()
		t := L.NewTable()
		L.SetField(t, "pc", lua.LNumber(r.PC))
		L.SetField(t, "sp", lua.LNumber(r.SP))
		L.SetField(t, "a", lua.LNumber(r.A))
		L.SetField(t, "x", lua.LNumber(r.X))
		L.SetField(t, "y", lua.LNumber(r.Y))
		L.SetField(t, "sr", lua.LNumber(r.SR))
		L.SetField(t, "cycles", lua.LNumber(r.Cycles))
		L.Push(t)
		return 1
	}))
	L.SetField(cpuTable, "run", L.NewFunction(func(L *lua.LState) int {
		max := int(L.CheckNumber(1))
		stopped, steps := mon.RunUntilBreakpoint(max)
		L.Push(lua.LBool(stopped))
		L.Push(lua.LNumber(steps))
		return 2
	}))
	L.SetGlobal("cpu", cpuTable)

	memTable := L.NewTable()
	L.SetField(memTable, "peek", L.NewFunction(func(L *lua.LState) int {
		addr := uint16(L.CheckNumber(1))
		L.Push(lua.LNumber(mon.m.Bus.Read(addr)))
		return 1
	}))
	L.SetField(memTable, "poke", L.NewFunction(func(L *lua.LState) int {
		addr := uint16(L.CheckNumber(1))
		v := byte(L.CheckNumber(2))
		mon.PokeMemory(addr, v)
		return 0
	}))
	L.SetField(memTable, "disasm", L.NewFunction(func(L *lua.LState) int {
		addr := uint16(L.CheckNumber(1))
		count := int(L.CheckNumber(2))
		lines := mon.Disassemble(addr, count)
		t := L.NewTable()
		for i, ln := range lines {
			t.RawSetInt(i+1, lua.LString(fmt.Sprintf("%04X  %-9s %s", ln.Address, ln.HexBytes, ln.Mnemonic)))
		}
		L.Push(t)
		return 1
	}))
	L.SetGlobal("mem", memTable)

	bpTable := L.NewTable()
	L.SetField(bpTable, "set", L.NewFunction(func(L *lua.LState) int {
		mon.SetBreakpoint(uint16(L.CheckNumber(1)))
		return 0
	}))
	L.SetField(bpTable, "clear", L.NewFunction(func(L *lua.LState) int {
		mon.ClearBreakpoint(uint16(L.CheckNumber(1)))
		return 0
	}))
	L.SetGlobal("bp", bpTable)

	return L
}
