// via.go - 65C22-style VIA: two ports, two timers, shift register, attachments
//
// Grounded in registers.go's const-block-per-subsystem layout and
// component_reset.go's Reset(mode) convention; no teacher file implements a
// 6522 (the pack's CPUs are 6502/Z80/m68k/x86 home-computer cores without
// a VIA), so the register semantics themselves are grounded directly in
// spec.md §4.4 and the well-documented 65C22 data sheet behavior it
// describes.

package machine

import "sort"

// VIA register offsets ($0-$F).
const (
	viaORB = 0x0
	viaORA = 0x1
	viaDDRB = 0x2
	viaDDRA = 0x3
	viaT1CL = 0x4
	viaT1CH = 0x5
	viaT1LL = 0x6
	viaT1LH = 0x7
	viaT2CL = 0x8
	viaT2CH = 0x9
	viaSR   = 0xA
	viaACR  = 0xB
	viaPCR  = 0xC
	viaIFR  = 0xD
	viaIER  = 0xE
	viaORANoHandshake = 0xF
)

// IFR/IER bit assignments.
const (
	ifrCA2    = 0x01
	ifrCA1    = 0x02
	ifrSR     = 0x04
	ifrCB2    = 0x08
	ifrCB1    = 0x10
	ifrT2     = 0x20
	ifrT1     = 0x40
	ifrMaster = 0x80
)

const (
	acrT1FreeRun = 0x40
	acrT1PB7     = 0x80
)

// ViaAttachment is the polymorphic capability set a plug-in device
// implements to sit on one of the VIA's two ports (spec.md §4.4, §9
// "Polymorphic dispatch").
type ViaAttachment interface {
	Reset()
	Tick()
	ReadPortA(ddr, or byte) byte
	ReadPortB(ddr, or byte) byte
	WritePortA(value, ddr byte)
	WritePortB(value, ddr byte)
	IsEnabled() bool
	Priority() int
	ClearInterrupts(ca1, ca2, cb1, cb2 bool)
	UpdateControlLines(ca1, ca2, cb1, cb2 bool)
	HasCA1Interrupt() bool
	HasCA2Interrupt() bool
	HasCB1Interrupt() bool
	HasCB2Interrupt() bool
}

// VIA implements the 16-register GPIO/timer card.
type VIA struct {
	ora, orb   byte
	ddra, ddrb byte

	t1c, t1l           uint16
	t2c                uint16
	t2ll               byte
	t1Halted, t2Halted bool

	sr       byte
	acr, pcr byte
	ifr, ier byte

	ca1, ca2, cb1, cb2 bool

	portA []ViaAttachment
	portB []ViaAttachment

	raiseIRQ IRQSource
}

func NewVIA(raiseIRQ IRQSource) *VIA {
	return &VIA{raiseIRQ: raiseIRQ}
}

func (v *VIA) Reset(mode ResetMode) {
	v.ora, v.orb, v.ddra, v.ddrb = 0, 0, 0, 0
	v.t1c, v.t1l, v.t2c, v.t2ll = 0, 0, 0, 0
	v.t1Halted, v.t2Halted = false, false
	v.sr, v.acr, v.pcr = 0, 0, 0
	v.ifr, v.ier = 0, 0
	v.ca1, v.ca2, v.cb1, v.cb2 = false, false, false, false
	for _, a := range v.portA {
		a.Reset()
	}
	for _, a := range v.portB {
		a.Reset()
	}
}

// AttachPortA registers an attachment on Port A and re-sorts the list by
// priority, notifying it of the current control-line state (spec.md §4.4
// "Attachment protocol").
func (v *VIA) AttachPortA(a ViaAttachment) {
	v.portA = append(v.portA, a)
	sort.SliceStable(v.portA, func(i, j int) bool { return v.portA[i].Priority() < v.portA[j].Priority() })
	a.UpdateControlLines(v.ca1, v.ca2, v.cb1, v.cb2)
}

func (v *VIA) AttachPortB(a ViaAttachment) {
	v.portB = append(v.portB, a)
	sort.SliceStable(v.portB, func(i, j int) bool { return v.portB[i].Priority() < v.portB[j].Priority() })
	a.UpdateControlLines(v.ca1, v.ca2, v.cb1, v.cb2)
}

func (v *VIA) updateIRQ() {
	v.raiseIRQ(v.ifr&v.ier&0x7F != 0)
}

func (v *VIA) setIFR(bit byte) {
	v.ifr |= bit
	v.updateIRQ()
}

func (v *VIA) clearIFR(bit byte) {
	v.ifr &^= bit
	v.updateIRQ()
}

func (v *VIA) readPortAExternal() byte {
	result := byte(0xFF)
	for _, a := range v.portA {
		if a.IsEnabled() {
			result &= a.ReadPortA(v.ddra, v.ora)
		}
	}
	return result
}

func (v *VIA) readPortBExternal() byte {
	result := byte(0xFF)
	for _, a := range v.portB {
		if a.IsEnabled() {
			result &= a.ReadPortB(v.ddrb, v.orb)
		}
	}
	return result
}

func (v *VIA) notifyClearA() {
	for _, a := range v.portA {
		a.ClearInterrupts(true, true, false, false)
	}
}

func (v *VIA) notifyClearB() {
	for _, a := range v.portB {
		a.ClearInterrupts(false, false, true, true)
	}
}

func (v *VIA) Read(offset uint16) byte {
	switch offset & 0x0F {
	case viaORB:
		v.clearIFR(ifrCB1 | ifrCB2)
		v.notifyClearB()
		return (v.orb & v.ddrb) | (v.readPortBExternal() &^ v.ddrb)
	case viaORA, viaORANoHandshake:
		val := (v.ora & v.ddra) | (v.readPortAExternal() &^ v.ddra)
		if offset&0x0F == viaORA {
			v.clearIFR(ifrCA1 | ifrCA2)
			v.notifyClearA()
		}
		return val
	case viaDDRB:
		return v.ddrb
	case viaDDRA:
		return v.ddra
	case viaT1CL:
		v.clearIFR(ifrT1)
		return byte(v.t1c)
	case viaT1CH:
		return byte(v.t1c >> 8)
	case viaT1LL:
		return byte(v.t1l)
	case viaT1LH:
		return byte(v.t1l >> 8)
	case viaT2CL:
		v.clearIFR(ifrT2)
		return byte(v.t2c)
	case viaT2CH:
		return byte(v.t2c >> 8)
	case viaSR:
		return v.sr
	case viaACR:
		return v.acr
	case viaPCR:
		return v.pcr
	case viaIFR:
		r := v.ifr
		if v.ifr&v.ier&0x7F != 0 {
			r |= ifrMaster
		}
		return r
	case viaIER:
		return v.ier | ifrMaster
	}
	return 0
}

func (v *VIA) Write(offset uint16, val byte) {
	switch offset & 0x0F {
	case viaORB:
		v.orb = val
		v.clearIFR(ifrCB1 | ifrCB2)
		v.notifyClearB()
		for _, a := range v.portB {
			a.WritePortB(val, v.ddrb)
		}
	case viaORA, viaORANoHandshake:
		v.ora = val
		if offset&0x0F == viaORA {
			v.clearIFR(ifrCA1 | ifrCA2)
			v.notifyClearA()
		}
		for _, a := range v.portA {
			a.WritePortA(val, v.ddra)
		}
	case viaDDRB:
		v.ddrb = val
	case viaDDRA:
		v.ddra = val
	case viaT1LL, viaT1CL:
		v.t1l = (v.t1l & 0xFF00) | uint16(val)
	case viaT1LH:
		v.t1l = (v.t1l & 0x00FF) | uint16(val)<<8
	case viaT1CH:
		v.t1l = (v.t1l & 0x00FF) | uint16(val)<<8
		v.t1c = v.t1l
		v.t1Halted = false
		v.clearIFR(ifrT1)
	case viaT2CL:
		v.t2ll = val
	case viaT2CH:
		v.t2c = uint16(val)<<8 | uint16(v.t2ll)
		v.t2Halted = false
		v.clearIFR(ifrT2)
	case viaSR:
		v.sr = val
	case viaACR:
		v.acr = val
	case viaPCR:
		v.pcr = val
	case viaIFR:
		v.ifr &^= val &^ ifrMaster
		v.updateIRQ()
	case viaIER:
		if val&ifrMaster != 0 {
			v.ier |= val &^ ifrMaster
		} else {
			v.ier &^= val
		}
		v.updateIRQ()
	}
}

// Tick advances the two timers by TickInterval cycles, the coarse device
// tick granularity the scheduler drives this card at. spec.md §4.4 still
// specifies the timers count down by 1 per CPU cycle; this runs that same
// countdown TickInterval cycles at a time, matching the frequencyHz/
// TickInterval accumulator scaling every other coarse device uses. It also
// polls every attachment for edge-triggered interrupt state.
func (v *VIA) Tick(frequencyHz uint32) {
	v.advanceTimer1(TickInterval)
	v.advanceTimer2(TickInterval)

	for _, a := range v.portA {
		a.Tick()
		if a.HasCA1Interrupt() {
			v.setIFR(ifrCA1)
		}
		if a.HasCA2Interrupt() {
			v.setIFR(ifrCA2)
		}
	}
	for _, a := range v.portB {
		a.Tick()
		if a.HasCB1Interrupt() {
			v.setIFR(ifrCB1)
		}
		if a.HasCB2Interrupt() {
			v.setIFR(ifrCB2)
		}
	}
}

// advanceTimer1 counts T1 down by cycles, firing on every zero crossing
// (not just the first) so a timer shorter than one coarse tick still
// raises its interrupt and reloads (free-run) or halts (one-shot) the
// right number of times.
func (v *VIA) advanceTimer1(cycles uint32) {
	for cycles > 0 && !v.t1Halted {
		if v.t1c == 0 {
			v.setIFR(ifrT1)
			if v.acr&acrT1PB7 != 0 {
				v.orb ^= 0x80
			}
			if v.acr&acrT1FreeRun != 0 {
				v.t1c = v.t1l
				if v.t1c == 0 {
					break // zero-period free-running timer: fire once per Tick, not forever
				}
				continue
			}
			v.t1Halted = true
			break
		}
		step := cycles
		if uint32(v.t1c) < step {
			step = uint32(v.t1c)
		}
		v.t1c -= uint16(step)
		cycles -= step
	}
}

// advanceTimer2 counts T2 down by cycles; T2 is always one-shot, so it
// halts (rather than reloading) the first time it reaches zero.
func (v *VIA) advanceTimer2(cycles uint32) {
	for cycles > 0 && !v.t2Halted {
		if v.t2c == 0 {
			v.setIFR(ifrT2)
			v.t2Halted = true
			break
		}
		step := cycles
		if uint32(v.t2c) < step {
			step = uint32(v.t2c)
		}
		v.t2c -= uint16(step)
		cycles -= step
	}
}
