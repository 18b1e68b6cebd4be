// registers.go - Bus map, register offsets and shared status-flag constants
//
// Mirrors the teacher's registers.go convention: named const blocks grouped
// by subsystem rather than one flat enum, so each card's file only imports
// the block it needs.

package machine

// ------------------------------------------------------------------------------
// Bus map (fixed, bit-exact — see spec.md §6)
// ------------------------------------------------------------------------------
const (
	RAMStart     = 0x0000
	RAMEnd       = 0x7FFF
	IOStart      = 0x8000
	IOEnd        = 0x9FFF
	IOSlotSize   = 0x0400 // 1KB per card window
	ROMStart     = 0xA000
	ROMEnd       = 0xFFFF
	CartStart    = 0xC000
	CartEnd      = 0xFFFF
	CartWindow   = CartEnd - CartStart + 1
	ROMWindow    = ROMEnd - ROMStart + 1
	RAMCardStart = 0x8000 // slot 0 and 1: banked RAM cards
	RAMCard1Base = 0x8000
	RAMCard2Base = 0x8400
	RTCBase      = 0x8800
	StorageBase  = 0x8C00
	SerialBase   = 0x9000
	VIABase      = 0x9400
	SoundBase    = 0x9800
	VideoBase    = 0x9C00
)

// Interrupt vectors, top of ROM.
const (
	NMIVectorLow    = 0xFFFA
	NMIVectorHigh   = 0xFFFB
	ResetVectorLow  = 0xFFFC
	ResetVectorHigh = 0xFFFD
	IRQVectorLow    = 0xFFFE
	IRQVectorHigh   = 0xFFFF
)

// ------------------------------------------------------------------------------
// 65C02 status register flags
// ------------------------------------------------------------------------------
const (
	FlagCarry     = 0x01
	FlagZero      = 0x02
	FlagIRQDis    = 0x04
	FlagDecimal   = 0x08
	FlagBreak     = 0x10
	FlagUnused    = 0x20
	FlagOverflow  = 0x40
	FlagNegative  = 0x80
	StackBase     = 0x0100
	ResetCycles   = 7
	InterruptCost = 7
)

// TickInterval is the recommended coarse device-tick granularity in CPU
// cycles (spec.md §5, point 3). Serial is ticked every cycle instead.
const TickInterval = 128

// ------------------------------------------------------------------------------
// ResetMode selects cold vs warm startup, per spec.md §3/§6.
// ------------------------------------------------------------------------------
type ResetMode int

const (
	ColdReset ResetMode = iota
	WarmReset
)
