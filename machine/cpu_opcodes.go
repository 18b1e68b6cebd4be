// cpu_opcodes.go - Addressing modes and the instruction executor
//
// Grounded in cpu_six5go2.go's getAbsolute/getZeroPageX/getIndirectY family
// of addressing helpers and its adc/sbc binary-vs-BCD split; the opcode
// dispatch itself is a single switch rather than the teacher's generated
// [256]func table (op6502Unknown / cpu_6502_opcode_table_gen.go) because
// that table is produced by a code generator this exercise has no run-time
// access to — a hand-authored switch keeping the same cycle-cost-per-opcode
// contract is the faithful substitute spec.md §4.1 ("instruction timing is
// table-driven") actually needs.

package machine

func (c *CPU) fetch() byte {
	v := c.read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch())
	hi := uint16(c.fetch())
	return lo | hi<<8
}

func pageCrossed(a, b uint16) bool { return a&0xFF00 != b&0xFF00 }

func (c *CPU) addrZP() uint16  { return uint16(c.fetch()) }
func (c *CPU) addrZPX() uint16 { return uint16(byte(c.fetch() + c.X)) }
func (c *CPU) addrZPY() uint16 { return uint16(byte(c.fetch() + c.Y)) }
func (c *CPU) addrAbs() uint16 { return c.fetch16() }

func (c *CPU) addrAbsX() (uint16, bool) {
	base := c.fetch16()
	addr := base + uint16(c.X)
	return addr, pageCrossed(base, addr)
}

func (c *CPU) addrAbsY() (uint16, bool) {
	base := c.fetch16()
	addr := base + uint16(c.Y)
	return addr, pageCrossed(base, addr)
}

func (c *CPU) addrIndX() uint16 {
	zp := c.fetch() + c.X
	lo := uint16(c.read(uint16(zp)))
	hi := uint16(c.read(uint16(byte(zp + 1))))
	return lo | hi<<8
}

func (c *CPU) addrIndY() (uint16, bool) {
	zp := c.fetch()
	lo := uint16(c.read(uint16(zp)))
	hi := uint16(c.read(uint16(byte(zp + 1))))
	base := lo | hi<<8
	addr := base + uint16(c.Y)
	return addr, pageCrossed(base, addr)
}

// addrIndirect replicates the classic 6502 page-wrap bug used only by
// JMP (abs): if the pointer's low byte is 0xFF, the high byte is fetched
// from the start of the same page instead of the next one.
func (c *CPU) addrIndirect() uint16 {
	ptr := c.fetch16()
	lo := uint16(c.read(ptr))
	hiAddr := (ptr & 0xFF00) | uint16(byte(ptr)+1)
	hi := uint16(c.read(hiAddr))
	return lo | hi<<8
}

func (c *CPU) branch(cond bool) int {
	offset := int8(c.fetch())
	if !cond {
		return 2
	}
	target := uint16(int32(c.PC) + int32(offset))
	cost := 3
	if pageCrossed(c.PC, target) {
		cost = 4
	}
	c.PC = target
	return cost
}

func (c *CPU) adc(v byte) {
	if c.getFlag(FlagDecimal) {
		c.adcBCD(v)
		return
	}
	carry := uint16(0)
	if c.getFlag(FlagCarry) {
		carry = 1
	}
	sum := uint16(c.A) + uint16(v) + carry
	overflow := (^(uint16(c.A) ^ uint16(v)) & (uint16(c.A) ^ sum) & 0x80) != 0
	c.setFlag(FlagOverflow, overflow)
	c.setFlag(FlagCarry, sum > 0xFF)
	c.A = byte(sum)
	c.updateNZ(c.A)
}

func (c *CPU) adcBCD(v byte) {
	carry := byte(0)
	if c.getFlag(FlagCarry) {
		carry = 1
	}
	lo := (c.A & 0x0F) + (v & 0x0F) + carry
	hi := (c.A >> 4) + (v >> 4)
	if lo > 9 {
		lo += 6
		hi++
	}
	overflow := (^(uint16(c.A) ^ uint16(v)) & (uint16(c.A) ^ (uint16(hi)<<4 | uint16(lo&0x0F))) & 0x80) != 0
	if hi > 9 {
		hi += 6
	}
	c.setFlag(FlagCarry, hi > 15)
	c.setFlag(FlagOverflow, overflow)
	c.A = (hi << 4) | (lo & 0x0F)
	c.updateNZ(c.A)
}

func (c *CPU) sbc(v byte) {
	if c.getFlag(FlagDecimal) {
		c.sbcBCD(v)
		return
	}
	c.adc(^v)
}

func (c *CPU) sbcBCD(v byte) {
	carry := byte(0)
	if c.getFlag(FlagCarry) {
		carry = 1
	}
	diff := int16(c.A) - int16(v) - int16(1-carry)
	overflow := ((uint16(c.A) ^ uint16(v)) & (uint16(c.A) ^ uint16(diff)) & 0x80) != 0
	c.setFlag(FlagOverflow, overflow)
	c.setFlag(FlagCarry, diff >= 0)

	lo := int16(c.A&0x0F) - int16(v&0x0F) - int16(1-carry)
	hi := int16(c.A>>4) - int16(v>>4)
	if lo < 0 {
		lo -= 6
		hi--
	}
	if hi < 0 {
		hi -= 6
	}
	c.A = byte(hi<<4) | byte(lo&0x0F)
	c.updateNZ(byte(diff))
}

func (c *CPU) compare(reg, v byte) {
	result := reg - v
	c.setFlag(FlagCarry, reg >= v)
	c.updateNZ(result)
}

func (c *CPU) rmw(addr uint16, f func(byte) byte) {
	v := c.read(addr)
	c.write(addr, v) // spurious write, matches real 6502 read-modify-write bus behaviour
	r := f(v)
	c.write(addr, r)
}

func (c *CPU) asl(v byte) byte {
	c.setFlag(FlagCarry, v&0x80 != 0)
	r := v << 1
	c.updateNZ(r)
	return r
}

func (c *CPU) lsr(v byte) byte {
	c.setFlag(FlagCarry, v&0x01 != 0)
	r := v >> 1
	c.updateNZ(r)
	return r
}

func (c *CPU) rol(v byte) byte {
	carryIn := byte(0)
	if c.getFlag(FlagCarry) {
		carryIn = 1
	}
	c.setFlag(FlagCarry, v&0x80 != 0)
	r := (v << 1) | carryIn
	c.updateNZ(r)
	return r
}

func (c *CPU) ror(v byte) byte {
	carryIn := byte(0)
	if c.getFlag(FlagCarry) {
		carryIn = 0x80
	}
	c.setFlag(FlagCarry, v&0x01 != 0)
	r := (v >> 1) | carryIn
	c.updateNZ(r)
	return r
}

// execute fetches and runs exactly one instruction and returns its cycle
// cost, including any page-cross or branch-taken penalty (spec.md §4.1).
// The table covers the documented NMOS 6502 instruction set; every other
// opcode byte, including the 65C02 additions (BRA, STZ, PHX/PLX/PHY/PLY,
// TRB/TSB, INC A/DEC A, (zp) addressing, BIT #imm), behaves as a one-cycle NOP.
func (c *CPU) execute() int {
	op := c.fetch()

	switch op {
	// --- LDA ---
	case 0xA9:
		c.A = c.fetch()
		c.updateNZ(c.A)
		return 2
	case 0xA5:
		c.A = c.read(c.addrZP())
		c.updateNZ(c.A)
		return 3
	case 0xB5:
		c.A = c.read(c.addrZPX())
		c.updateNZ(c.A)
		return 4
	case 0xAD:
		c.A = c.read(c.addrAbs())
		c.updateNZ(c.A)
		return 4
	case 0xBD:
		addr, crossed := c.addrAbsX()
		c.A = c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0xB9:
		addr, crossed := c.addrAbsY()
		c.A = c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0xA1:
		c.A = c.read(c.addrIndX())
		c.updateNZ(c.A)
		return 6
	case 0xB1:
		addr, crossed := c.addrIndY()
		c.A = c.read(addr)
		c.updateNZ(c.A)
		return extra(5, crossed)

	// --- LDX ---
	case 0xA2:
		c.X = c.fetch()
		c.updateNZ(c.X)
		return 2
	case 0xA6:
		c.X = c.read(c.addrZP())
		c.updateNZ(c.X)
		return 3
	case 0xB6:
		c.X = c.read(c.addrZPY())
		c.updateNZ(c.X)
		return 4
	case 0xAE:
		c.X = c.read(c.addrAbs())
		c.updateNZ(c.X)
		return 4
	case 0xBE:
		addr, crossed := c.addrAbsY()
		c.X = c.read(addr)
		c.updateNZ(c.X)
		return extra(4, crossed)

	// --- LDY ---
	case 0xA0:
		c.Y = c.fetch()
		c.updateNZ(c.Y)
		return 2
	case 0xA4:
		c.Y = c.read(c.addrZP())
		c.updateNZ(c.Y)
		return 3
	case 0xB4:
		c.Y = c.read(c.addrZPX())
		c.updateNZ(c.Y)
		return 4
	case 0xAC:
		c.Y = c.read(c.addrAbs())
		c.updateNZ(c.Y)
		return 4
	case 0xBC:
		addr, crossed := c.addrAbsX()
		c.Y = c.read(addr)
		c.updateNZ(c.Y)
		return extra(4, crossed)

	// --- STA ---
	case 0x85:
		c.write(c.addrZP(), c.A)
		return 3
	case 0x95:
		c.write(c.addrZPX(), c.A)
		return 4
	case 0x8D:
		c.write(c.addrAbs(), c.A)
		return 4
	case 0x9D:
		addr, _ := c.addrAbsX()
		c.write(addr, c.A)
		return 5
	case 0x99:
		addr, _ := c.addrAbsY()
		c.write(addr, c.A)
		return 5
	case 0x81:
		c.write(c.addrIndX(), c.A)
		return 6
	case 0x91:
		addr, _ := c.addrIndY()
		c.write(addr, c.A)
		return 6

	// --- STX / STY ---
	case 0x86:
		c.write(c.addrZP(), c.X)
		return 3
	case 0x96:
		c.write(c.addrZPY(), c.X)
		return 4
	case 0x8E:
		c.write(c.addrAbs(), c.X)
		return 4
	case 0x84:
		c.write(c.addrZP(), c.Y)
		return 3
	case 0x94:
		c.write(c.addrZPX(), c.Y)
		return 4
	case 0x8C:
		c.write(c.addrAbs(), c.Y)
		return 4

	// --- register transfers ---
	case 0xAA: // TAX
		c.X = c.A
		c.updateNZ(c.X)
		return 2
	case 0x8A: // TXA
		c.A = c.X
		c.updateNZ(c.A)
		return 2
	case 0xA8: // TAY
		c.Y = c.A
		c.updateNZ(c.Y)
		return 2
	case 0x98: // TYA
		c.A = c.Y
		c.updateNZ(c.A)
		return 2
	case 0xBA: // TSX
		c.X = c.SP
		c.updateNZ(c.X)
		return 2
	case 0x9A: // TXS
		c.SP = c.X
		return 2

	// --- stack ops ---
	case 0x48: // PHA
		c.push(c.A)
		return 3
	case 0x68: // PLA
		c.A = c.pop()
		c.updateNZ(c.A)
		return 4
	case 0x08: // PHP
		c.push(c.SR | FlagUnused | FlagBreak)
		return 3
	case 0x28: // PLP
		c.SR = (c.pop() &^ FlagBreak) | FlagUnused
		return 4

	// --- ADC ---
	case 0x69:
		c.adc(c.fetch())
		return 2
	case 0x65:
		c.adc(c.read(c.addrZP()))
		return 3
	case 0x75:
		c.adc(c.read(c.addrZPX()))
		return 4
	case 0x6D:
		c.adc(c.read(c.addrAbs()))
		return 4
	case 0x7D:
		addr, crossed := c.addrAbsX()
		c.adc(c.read(addr))
		return extra(4, crossed)
	case 0x79:
		addr, crossed := c.addrAbsY()
		c.adc(c.read(addr))
		return extra(4, crossed)
	case 0x61:
		c.adc(c.read(c.addrIndX()))
		return 6
	case 0x71:
		addr, crossed := c.addrIndY()
		c.adc(c.read(addr))
		return extra(5, crossed)

	// --- SBC ---
	case 0xE9:
		c.sbc(c.fetch())
		return 2
	case 0xE5:
		c.sbc(c.read(c.addrZP()))
		return 3
	case 0xF5:
		c.sbc(c.read(c.addrZPX()))
		return 4
	case 0xED:
		c.sbc(c.read(c.addrAbs()))
		return 4
	case 0xFD:
		addr, crossed := c.addrAbsX()
		c.sbc(c.read(addr))
		return extra(4, crossed)
	case 0xF9:
		addr, crossed := c.addrAbsY()
		c.sbc(c.read(addr))
		return extra(4, crossed)
	case 0xE1:
		c.sbc(c.read(c.addrIndX()))
		return 6
	case 0xF1:
		addr, crossed := c.addrIndY()
		c.sbc(c.read(addr))
		return extra(5, crossed)

	// --- INC/DEC memory ---
	case 0xE6:
		addr := c.addrZP()
		c.rmw(addr, func(v byte) byte { r := v + 1; c.updateNZ(r); return r })
		return 5
	case 0xF6:
		addr := c.addrZPX()
		c.rmw(addr, func(v byte) byte { r := v + 1; c.updateNZ(r); return r })
		return 6
	case 0xEE:
		addr := c.addrAbs()
		c.rmw(addr, func(v byte) byte { r := v + 1; c.updateNZ(r); return r })
		return 6
	case 0xFE:
		addr, _ := c.addrAbsX()
		c.rmw(addr, func(v byte) byte { r := v + 1; c.updateNZ(r); return r })
		return 7
	case 0xC6:
		addr := c.addrZP()
		c.rmw(addr, func(v byte) byte { r := v - 1; c.updateNZ(r); return r })
		return 5
	case 0xD6:
		addr := c.addrZPX()
		c.rmw(addr, func(v byte) byte { r := v - 1; c.updateNZ(r); return r })
		return 6
	case 0xCE:
		addr := c.addrAbs()
		c.rmw(addr, func(v byte) byte { r := v - 1; c.updateNZ(r); return r })
		return 6
	case 0xDE:
		addr, _ := c.addrAbsX()
		c.rmw(addr, func(v byte) byte { r := v - 1; c.updateNZ(r); return r })
		return 7

	case 0xE8: // INX
		c.X++
		c.updateNZ(c.X)
		return 2
	case 0xC8: // INY
		c.Y++
		c.updateNZ(c.Y)
		return 2
	case 0xCA: // DEX
		c.X--
		c.updateNZ(c.X)
		return 2
	case 0x88: // DEY
		c.Y--
		c.updateNZ(c.Y)
		return 2

	// --- shifts/rotates ---
	case 0x0A:
		c.A = c.asl(c.A)
		return 2
	case 0x06:
		addr := c.addrZP()
		c.rmw(addr, c.asl)
		return 5
	case 0x16:
		addr := c.addrZPX()
		c.rmw(addr, c.asl)
		return 6
	case 0x0E:
		addr := c.addrAbs()
		c.rmw(addr, c.asl)
		return 6
	case 0x1E:
		addr, _ := c.addrAbsX()
		c.rmw(addr, c.asl)
		return 7
	case 0x4A:
		c.A = c.lsr(c.A)
		return 2
	case 0x46:
		addr := c.addrZP()
		c.rmw(addr, c.lsr)
		return 5
	case 0x56:
		addr := c.addrZPX()
		c.rmw(addr, c.lsr)
		return 6
	case 0x4E:
		addr := c.addrAbs()
		c.rmw(addr, c.lsr)
		return 6
	case 0x5E:
		addr, _ := c.addrAbsX()
		c.rmw(addr, c.lsr)
		return 7
	case 0x2A:
		c.A = c.rol(c.A)
		return 2
	case 0x26:
		addr := c.addrZP()
		c.rmw(addr, c.rol)
		return 5
	case 0x36:
		addr := c.addrZPX()
		c.rmw(addr, c.rol)
		return 6
	case 0x2E:
		addr := c.addrAbs()
		c.rmw(addr, c.rol)
		return 6
	case 0x3E:
		addr, _ := c.addrAbsX()
		c.rmw(addr, c.rol)
		return 7
	case 0x6A:
		c.A = c.ror(c.A)
		return 2
	case 0x66:
		addr := c.addrZP()
		c.rmw(addr, c.ror)
		return 5
	case 0x76:
		addr := c.addrZPX()
		c.rmw(addr, c.ror)
		return 6
	case 0x6E:
		addr := c.addrAbs()
		c.rmw(addr, c.ror)
		return 6
	case 0x7E:
		addr, _ := c.addrAbsX()
		c.rmw(addr, c.ror)
		return 7

	// --- logic ---
	case 0x29:
		c.A &= c.fetch()
		c.updateNZ(c.A)
		return 2
	case 0x25:
		c.A &= c.read(c.addrZP())
		c.updateNZ(c.A)
		return 3
	case 0x35:
		c.A &= c.read(c.addrZPX())
		c.updateNZ(c.A)
		return 4
	case 0x2D:
		c.A &= c.read(c.addrAbs())
		c.updateNZ(c.A)
		return 4
	case 0x3D:
		addr, crossed := c.addrAbsX()
		c.A &= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x39:
		addr, crossed := c.addrAbsY()
		c.A &= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x21:
		c.A &= c.read(c.addrIndX())
		c.updateNZ(c.A)
		return 6
	case 0x31:
		addr, crossed := c.addrIndY()
		c.A &= c.read(addr)
		c.updateNZ(c.A)
		return extra(5, crossed)

	case 0x09:
		c.A |= c.fetch()
		c.updateNZ(c.A)
		return 2
	case 0x05:
		c.A |= c.read(c.addrZP())
		c.updateNZ(c.A)
		return 3
	case 0x15:
		c.A |= c.read(c.addrZPX())
		c.updateNZ(c.A)
		return 4
	case 0x0D:
		c.A |= c.read(c.addrAbs())
		c.updateNZ(c.A)
		return 4
	case 0x1D:
		addr, crossed := c.addrAbsX()
		c.A |= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x19:
		addr, crossed := c.addrAbsY()
		c.A |= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x01:
		c.A |= c.read(c.addrIndX())
		c.updateNZ(c.A)
		return 6
	case 0x11:
		addr, crossed := c.addrIndY()
		c.A |= c.read(addr)
		c.updateNZ(c.A)
		return extra(5, crossed)

	case 0x49:
		c.A ^= c.fetch()
		c.updateNZ(c.A)
		return 2
	case 0x45:
		c.A ^= c.read(c.addrZP())
		c.updateNZ(c.A)
		return 3
	case 0x55:
		c.A ^= c.read(c.addrZPX())
		c.updateNZ(c.A)
		return 4
	case 0x4D:
		c.A ^= c.read(c.addrAbs())
		c.updateNZ(c.A)
		return 4
	case 0x5D:
		addr, crossed := c.addrAbsX()
		c.A ^= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x59:
		addr, crossed := c.addrAbsY()
		c.A ^= c.read(addr)
		c.updateNZ(c.A)
		return extra(4, crossed)
	case 0x41:
		c.A ^= c.read(c.addrIndX())
		c.updateNZ(c.A)
		return 6
	case 0x51:
		addr, crossed := c.addrIndY()
		c.A ^= c.read(addr)
		c.updateNZ(c.A)
		return extra(5, crossed)

	case 0x24: // BIT zp
		v := c.read(c.addrZP())
		c.setFlag(FlagZero, c.A&v == 0)
		c.setFlag(FlagOverflow, v&FlagOverflow != 0)
		c.setFlag(FlagNegative, v&FlagNegative != 0)
		return 3
	case 0x2C: // BIT abs
		v := c.read(c.addrAbs())
		c.setFlag(FlagZero, c.A&v == 0)
		c.setFlag(FlagOverflow, v&FlagOverflow != 0)
		c.setFlag(FlagNegative, v&FlagNegative != 0)
		return 4

	// --- compares ---
	case 0xC9:
		c.compare(c.A, c.fetch())
		return 2
	case 0xC5:
		c.compare(c.A, c.read(c.addrZP()))
		return 3
	case 0xD5:
		c.compare(c.A, c.read(c.addrZPX()))
		return 4
	case 0xCD:
		c.compare(c.A, c.read(c.addrAbs()))
		return 4
	case 0xDD:
		addr, crossed := c.addrAbsX()
		c.compare(c.A, c.read(addr))
		return extra(4, crossed)
	case 0xD9:
		addr, crossed := c.addrAbsY()
		c.compare(c.A, c.read(addr))
		return extra(4, crossed)
	case 0xC1:
		c.compare(c.A, c.read(c.addrIndX()))
		return 6
	case 0xD1:
		addr, crossed := c.addrIndY()
		c.compare(c.A, c.read(addr))
		return extra(5, crossed)

	case 0xE0:
		c.compare(c.X, c.fetch())
		return 2
	case 0xE4:
		c.compare(c.X, c.read(c.addrZP()))
		return 3
	case 0xEC:
		c.compare(c.X, c.read(c.addrAbs()))
		return 4
	case 0xC0:
		c.compare(c.Y, c.fetch())
		return 2
	case 0xC4:
		c.compare(c.Y, c.read(c.addrZP()))
		return 3
	case 0xCC:
		c.compare(c.Y, c.read(c.addrAbs()))
		return 4

	// --- branches ---
	case 0x10:
		return c.branch(!c.getFlag(FlagNegative))
	case 0x30:
		return c.branch(c.getFlag(FlagNegative))
	case 0x50:
		return c.branch(!c.getFlag(FlagOverflow))
	case 0x70:
		return c.branch(c.getFlag(FlagOverflow))
	case 0x90:
		return c.branch(!c.getFlag(FlagCarry))
	case 0xB0:
		return c.branch(c.getFlag(FlagCarry))
	case 0xD0:
		return c.branch(!c.getFlag(FlagZero))
	case 0xF0:
		return c.branch(c.getFlag(FlagZero))

	// --- jumps/calls ---
	case 0x4C:
		c.PC = c.addrAbs()
		return 3
	case 0x6C:
		c.PC = c.addrIndirect()
		return 5
	case 0x20: // JSR
		target := c.addrAbs()
		c.push16(c.PC - 1)
		c.PC = target
		return 6
	case 0x60: // RTS
		c.PC = c.pop16() + 1
		return 6
	case 0x40: // RTI
		c.SR = (c.pop() &^ FlagBreak) | FlagUnused
		c.PC = c.pop16()
		return 6
	case 0x00: // BRK
		c.PC++
		c.push16(c.PC)
		c.push(c.SR | FlagUnused | FlagBreak)
		c.setFlag(FlagIRQDis, true)
		c.PC = c.read16(IRQVectorLow)
		return 7

	// --- flags ---
	case 0x18:
		c.setFlag(FlagCarry, false)
		return 2
	case 0x38:
		c.setFlag(FlagCarry, true)
		return 2
	case 0x58:
		c.setFlag(FlagIRQDis, false)
		return 2
	case 0x78:
		c.setFlag(FlagIRQDis, true)
		return 2
	case 0xB8:
		c.setFlag(FlagOverflow, false)
		return 2
	case 0xD8:
		c.setFlag(FlagDecimal, false)
		return 2
	case 0xF8:
		c.setFlag(FlagDecimal, true)
		return 2

	case 0xEA: // NOP
		return 2

	default:
		// Any opcode not listed above, undocumented or a 65C02 addition:
		// treated as a one-cycle no-op (spec.md §4.1
		// explicitly allows this instead of modeling illegal-opcode behaviour).
		return 1
	}
}

func extra(base int, crossed bool) int {
	if crossed {
		return base + 1
	}
	return base
}
