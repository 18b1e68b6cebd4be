// disasm6502.go - table-driven 65C02 disassembler for the debug monitor
//
// Grounded in debug_disasm_6502.go (IntuitionAmiga-IntuitionEngine): same
// opInfo/addressing-mode table shape and mnemonic-formatting switch,
// narrowed to a 16-bit address space and driven by a BusReader instead of
// the teacher's readMem(addr uint64, size int) callback.

package machine

import (
	"fmt"
	"strings"
)

type disasmMode int

const (
	disImp disasmMode = iota
	disAcc
	disImm
	disZp
	disZpX
	disZpY
	disAbs
	disAbsX
	disAbsY
	disInd
	disIndX
	disIndY
	disRel
)

type disasmOp struct {
	name string
	mode disasmMode
	size int
}

// disasmTable mirrors cpu_opcodes.go's execute() switch exactly: every
// opcode it treats as a one-cycle NOP is left unlisted here and rendered
// as a raw byte.
var disasmTable = [256]disasmOp{
	0x00: {"BRK", disImp, 1}, 0x01: {"ORA", disIndX, 2},
	0x05: {"ORA", disZp, 2}, 0x06: {"ASL", disZp, 2},
	0x08: {"PHP", disImp, 1}, 0x09: {"ORA", disImm, 2},
	0x0A: {"ASL", disAcc, 1}, 0x0D: {"ORA", disAbs, 3},
	0x0E: {"ASL", disAbs, 3},
	0x10: {"BPL", disRel, 2}, 0x11: {"ORA", disIndY, 2},
	0x15: {"ORA", disZpX, 2}, 0x16: {"ASL", disZpX, 2},
	0x18: {"CLC", disImp, 1}, 0x19: {"ORA", disAbsY, 3},
	0x1D: {"ORA", disAbsX, 3}, 0x1E: {"ASL", disAbsX, 3},
	0x20: {"JSR", disAbs, 3}, 0x21: {"AND", disIndX, 2},
	0x24: {"BIT", disZp, 2}, 0x25: {"AND", disZp, 2},
	0x26: {"ROL", disZp, 2}, 0x28: {"PLP", disImp, 1},
	0x29: {"AND", disImm, 2}, 0x2A: {"ROL", disAcc, 1},
	0x2C: {"BIT", disAbs, 3}, 0x2D: {"AND", disAbs, 3},
	0x2E: {"ROL", disAbs, 3},
	0x30: {"BMI", disRel, 2}, 0x31: {"AND", disIndY, 2},
	0x35: {"AND", disZpX, 2}, 0x36: {"ROL", disZpX, 2},
	0x38: {"SEC", disImp, 1}, 0x39: {"AND", disAbsY, 3},
	0x3D: {"AND", disAbsX, 3}, 0x3E: {"ROL", disAbsX, 3},
	0x40: {"RTI", disImp, 1}, 0x41: {"EOR", disIndX, 2},
	0x45: {"EOR", disZp, 2}, 0x46: {"LSR", disZp, 2},
	0x48: {"PHA", disImp, 1}, 0x49: {"EOR", disImm, 2},
	0x4A: {"LSR", disAcc, 1}, 0x4C: {"JMP", disAbs, 3},
	0x4D: {"EOR", disAbs, 3}, 0x4E: {"LSR", disAbs, 3},
	0x50: {"BVC", disRel, 2}, 0x51: {"EOR", disIndY, 2},
	0x55: {"EOR", disZpX, 2}, 0x56: {"LSR", disZpX, 2},
	0x58: {"CLI", disImp, 1}, 0x59: {"EOR", disAbsY, 3},
	0x5D: {"EOR", disAbsX, 3}, 0x5E: {"LSR", disAbsX, 3},
	0x60: {"RTS", disImp, 1}, 0x61: {"ADC", disIndX, 2},
	0x65: {"ADC", disZp, 2}, 0x66: {"ROR", disZp, 2},
	0x68: {"PLA", disImp, 1}, 0x69: {"ADC", disImm, 2},
	0x6A: {"ROR", disAcc, 1}, 0x6C: {"JMP", disInd, 3},
	0x6D: {"ADC", disAbs, 3}, 0x6E: {"ROR", disAbs, 3},
	0x70: {"BVS", disRel, 2}, 0x71: {"ADC", disIndY, 2},
	0x75: {"ADC", disZpX, 2}, 0x76: {"ROR", disZpX, 2},
	0x78: {"SEI", disImp, 1}, 0x79: {"ADC", disAbsY, 3},
	0x7D: {"ADC", disAbsX, 3}, 0x7E: {"ROR", disAbsX, 3},
	0x81: {"STA", disIndX, 2}, 0x84: {"STY", disZp, 2},
	0x85: {"STA", disZp, 2}, 0x86: {"STX", disZp, 2},
	0x88: {"DEY", disImp, 1}, 0x8A: {"TXA", disImp, 1},
	0x8C: {"STY", disAbs, 3}, 0x8D: {"STA", disAbs, 3},
	0x8E: {"STX", disAbs, 3},
	0x90: {"BCC", disRel, 2}, 0x91: {"STA", disIndY, 2},
	0x94: {"STY", disZpX, 2}, 0x95: {"STA", disZpX, 2},
	0x96: {"STX", disZpY, 2}, 0x98: {"TYA", disImp, 1},
	0x99: {"STA", disAbsY, 3}, 0x9A: {"TXS", disImp, 1},
	0x9D: {"STA", disAbsX, 3},
	0xA0: {"LDY", disImm, 2}, 0xA1: {"LDA", disIndX, 2},
	0xA2: {"LDX", disImm, 2}, 0xA4: {"LDY", disZp, 2},
	0xA5: {"LDA", disZp, 2}, 0xA6: {"LDX", disZp, 2},
	0xA8: {"TAY", disImp, 1}, 0xA9: {"LDA", disImm, 2},
	0xAA: {"TAX", disImp, 1}, 0xAC: {"LDY", disAbs, 3},
	0xAD: {"LDA", disAbs, 3}, 0xAE: {"LDX", disAbs, 3},
	0xB0: {"BCS", disRel, 2}, 0xB1: {"LDA", disIndY, 2},
	0xB4: {"LDY", disZpX, 2}, 0xB5: {"LDA", disZpX, 2},
	0xB6: {"LDX", disZpY, 2}, 0xB8: {"CLV", disImp, 1},
	0xB9: {"LDA", disAbsY, 3}, 0xBA: {"TSX", disImp, 1},
	0xBC: {"LDY", disAbsX, 3}, 0xBD: {"LDA", disAbsX, 3},
	0xBE: {"LDX", disAbsY, 3},
	0xC0: {"CPY", disImm, 2}, 0xC1: {"CMP", disIndX, 2},
	0xC4: {"CPY", disZp, 2}, 0xC5: {"CMP", disZp, 2},
	0xC6: {"DEC", disZp, 2}, 0xC8: {"INY", disImp, 1},
	0xC9: {"CMP", disImm, 2}, 0xCA: {"DEX", disImp, 1},
	0xCC: {"CPY", disAbs, 3}, 0xCD: {"CMP", disAbs, 3},
	0xCE: {"DEC", disAbs, 3},
	0xD0: {"BNE", disRel, 2}, 0xD1: {"CMP", disIndY, 2},
	0xD5: {"CMP", disZpX, 2}, 0xD6: {"DEC", disZpX, 2},
	0xD8: {"CLD", disImp, 1}, 0xD9: {"CMP", disAbsY, 3},
	0xDD: {"CMP", disAbsX, 3}, 0xDE: {"DEC", disAbsX, 3},
	0xE0: {"CPX", disImm, 2}, 0xE1: {"SBC", disIndX, 2},
	0xE4: {"CPX", disZp, 2}, 0xE5: {"SBC", disZp, 2},
	0xE6: {"INC", disZp, 2}, 0xE8: {"INX", disImp, 1},
	0xE9: {"SBC", disImm, 2}, 0xEA: {"NOP", disImp, 1},
	0xEC: {"CPX", disAbs, 3}, 0xED: {"SBC", disAbs, 3},
	0xEE: {"INC", disAbs, 3},
	0xF0: {"BEQ", disRel, 2}, 0xF1: {"SBC", disIndY, 2},
	0xF5: {"SBC", disZpX, 2}, 0xF6: {"INC", disZpX, 2},
	0xF8: {"SED", disImp, 1}, 0xF9: {"SBC", disAbsY, 3},
	0xFD: {"SBC", disAbsX, 3}, 0xFE: {"INC", disAbsX, 3},
}

// DisassembledLine is one decoded instruction (spec.md's supplemented
// debug monitor).
type DisassembledLine struct {
	Address  uint16
	HexBytes string
	Mnemonic string
	Size     int
}

// Disassemble decodes count instructions starting at addr, reading bytes
// through the given BusReader.
func Disassemble(read BusReader, addr uint16, count int) []DisassembledLine {
	var lines []DisassembledLine
	for i := 0; i < count; i++ {
		op := read(addr)
		info := disasmTable[op]
		size := info.size
		if size == 0 {
			size = 1
		}

		data := make([]byte, size)
		for j := 0; j < size; j++ {
			data[j] = read(addr + uint16(j))
		}

		hexParts := make([]string, size)
		for j, b := range data {
			hexParts[j] = fmt.Sprintf("%02X", b)
		}

		var mnemonic string
		if info.name == "" {
			mnemonic = fmt.Sprintf("db $%02X", op)
		} else {
			mnemonic = formatMnemonic(info, data, addr)
		}

		lines = append(lines, DisassembledLine{
			Address:  addr,
			HexBytes: strings.Join(hexParts, " "),
			Mnemonic: mnemonic,
			Size:     size,
		})
		addr += uint16(size)
	}
	return lines
}

func formatMnemonic(info disasmOp, data []byte, addr uint16) string {
	switch info.mode {
	case disImp:
		return info.name
	case disAcc:
		return info.name + " A"
	case disImm:
		return fmt.Sprintf("%s #$%02X", info.name, data[1])
	case disZp:
		return fmt.Sprintf("%s $%02X", info.name, data[1])
	case disZpX:
		return fmt.Sprintf("%s $%02X,X", info.name, data[1])
	case disZpY:
		return fmt.Sprintf("%s $%02X,Y", info.name, data[1])
	case disAbs:
		nn := uint16(data[1]) | uint16(data[2])<<8
		return fmt.Sprintf("%s $%04X", info.name, nn)
	case disAbsX:
		nn := uint16(data[1]) | uint16(data[2])<<8
		return fmt.Sprintf("%s $%04X,X", info.name, nn)
	case disAbsY:
		nn := uint16(data[1]) | uint16(data[2])<<8
		return fmt.Sprintf("%s $%04X,Y", info.name, nn)
	case disInd:
		nn := uint16(data[1]) | uint16(data[2])<<8
		return fmt.Sprintf("%s ($%04X)", info.name, nn)
	case disIndX:
		return fmt.Sprintf("%s ($%02X,X)", info.name, data[1])
	case disIndY:
		return fmt.Sprintf("%s ($%02X),Y", info.name, data[1])
	case disRel:
		target := addr + 2 + uint16(int8(data[1]))
		return fmt.Sprintf("%s $%04X", info.name, target)
	default:
		return info.name
	}
}
