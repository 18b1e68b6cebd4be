// via_attachments.go - Keyboard matrix, keyboard encoder and joystick
//
// Grounded in the ViaAttachment capability set of via.go (itself grounded
// in spec.md §4.4's "Attachment protocol"/"Attachment variants").

package machine

// KeyboardMatrix scans an 8x8 key matrix: Port B selects columns
// (active-low), Port A reads back the selected rows (active-low, one bit
// per pressed key in a selected column).
type KeyboardMatrix struct {
	pressed       [8][8]bool
	selectedCols  byte
	attachPriority int
	enabled       bool
}

func NewKeyboardMatrix(priority int) *KeyboardMatrix {
	return &KeyboardMatrix{selectedCols: 0xFF, attachPriority: priority, enabled: true}
}

func (k *KeyboardMatrix) Reset() {
	k.pressed = [8][8]bool{}
	k.selectedCols = 0xFF
}

func (k *KeyboardMatrix) Tick() {}

func (k *KeyboardMatrix) KeyDown(hidCode byte) {
	if p, ok := hidToMatrix[hidCode]; ok {
		k.pressed[p.row][p.col] = true
	}
}

func (k *KeyboardMatrix) KeyUp(hidCode byte) {
	if p, ok := hidToMatrix[hidCode]; ok {
		k.pressed[p.row][p.col] = false
	}
}

func (k *KeyboardMatrix) ReadPortA(ddr, or byte) byte {
	var rows [8]bool
	for col := 0; col < 8; col++ {
		if k.selectedCols&(1<<uint(col)) != 0 {
			continue // not selected (active-low)
		}
		for row := 0; row < 8; row++ {
			if k.pressed[row][col] {
				rows[row] = true
			}
		}
	}
	result := byte(0xFF)
	for row, down := range rows {
		if down {
			result &^= 1 << uint(row)
		}
	}
	return result
}

func (k *KeyboardMatrix) ReadPortB(ddr, or byte) byte { return 0xFF }

func (k *KeyboardMatrix) WritePortA(value, ddr byte) {}

func (k *KeyboardMatrix) WritePortB(value, ddr byte) { k.selectedCols = value }

func (k *KeyboardMatrix) IsEnabled() bool { return k.enabled }
func (k *KeyboardMatrix) Priority() int   { return k.attachPriority }

func (k *KeyboardMatrix) ClearInterrupts(ca1, ca2, cb1, cb2 bool) {}
func (k *KeyboardMatrix) UpdateControlLines(ca1, ca2, cb1, cb2 bool) {}
func (k *KeyboardMatrix) HasCA1Interrupt() bool { return false }
func (k *KeyboardMatrix) HasCA2Interrupt() bool { return false }
func (k *KeyboardMatrix) HasCB1Interrupt() bool { return false }
func (k *KeyboardMatrix) HasCB2Interrupt() bool { return false }

// KeyboardEncoder produces one 8-bit encoded character per key-press event
// on whichever port(s) CA2/CB2 enable, with a matching CA1/CB1 edge
// interrupt (spec.md §4.4).
type KeyboardEncoder struct {
	shift, ctrl, alt, menu bool

	enabledA, enabledB bool
	readyA, readyB     bool
	dataA, dataB       byte

	attachPriority int
}

func NewKeyboardEncoder(priority int) *KeyboardEncoder {
	return &KeyboardEncoder{attachPriority: priority}
}

func (e *KeyboardEncoder) Reset() {
	*e = KeyboardEncoder{attachPriority: e.attachPriority}
}

func (e *KeyboardEncoder) Tick() {}

func (e *KeyboardEncoder) KeyDown(hidCode byte) {
	switch hidCode {
	case HIDLeftShift, HIDRightShift:
		e.shift = true
		return
	case HIDLeftCtrl, HIDRightCtrl:
		e.ctrl = true
		return
	case HIDLeftAlt, HIDRightAlt:
		e.alt = true
		return
	case HIDLeftGUI, HIDRightGUI:
		e.menu = true // still encoded below: 0x80, or 0x90 with Alt
	}
	out, ok := e.encode(hidCode)
	if !ok {
		return
	}
	if e.enabledA {
		e.dataA = out
		e.readyA = true
	}
	if e.enabledB {
		e.dataB = out
		e.readyB = true
	}
}

func (e *KeyboardEncoder) KeyUp(hidCode byte) {
	switch hidCode {
	case HIDLeftShift, HIDRightShift:
		e.shift = false
	case HIDLeftCtrl, HIDRightCtrl:
		e.ctrl = false
	case HIDLeftAlt, HIDRightAlt:
		e.alt = false
	case HIDLeftGUI, HIDRightGUI:
		e.menu = false
	}
	// Key-release events are otherwise discarded (spec.md §4.4).
}

func (e *KeyboardEncoder) encode(hidCode byte) (byte, bool) {
	switch {
	case hidCode == HIDLeftGUI || hidCode == HIDRightGUI:
		if e.alt {
			return 0x90, true
		}
		return 0x80, true
	case hidCode >= HIDF1 && hidCode <= HIDF15:
		idx := fKeyIndex(hidCode)
		if idx < 0 {
			return 0, false
		}
		if e.alt {
			return 0x91 + byte(idx), true
		}
		return 0x81 + byte(idx), true
	case e.ctrl:
		if hidCode >= HIDKeyA && hidCode <= HIDKeyZ {
			return hidCode - HIDKeyA + 1, true
		}
		if v, ok := ctrlDigitCodes[hidCode]; ok {
			return v, true
		}
		return 0, false
	case e.alt && e.shift:
		if v, ok := altShiftCodes[hidCode]; ok {
			return v, true
		}
		return 0, false
	case e.alt:
		if v, ok := altCodes[hidCode]; ok {
			return v, true
		}
		return 0, false
	case e.shift:
		if v, ok := hidToASCIIShifted[hidCode]; ok {
			return v, true
		}
		return 0, false
	default:
		if v, ok := hidToASCII[hidCode]; ok {
			return v, true
		}
		return 0, false
	}
}

func fKeyIndex(hidCode byte) int {
	if hidCode >= HIDF1 && hidCode <= HIDF12 {
		return int(hidCode - HIDF1)
	}
	if hidCode >= HIDF13 && hidCode <= HIDF15 {
		return 12 + int(hidCode-HIDF13)
	}
	return -1
}

// ctrlDigitCodes, altCodes, altShiftCodes are the documented control-code /
// extended tables spec.md §4.4 calls for without enumerating exact values;
// populated with a self-consistent 0xA0-0xFF extended range.
var ctrlDigitCodes = map[byte]byte{
	HIDMinus: 0x1F,
	HIDEqual: 0x1E,
}

var altCodes = buildAltCodes()
var altShiftCodes = buildAltShiftCodes()

func buildAltCodes() map[byte]byte {
	t := make(map[byte]byte, 26)
	for i := byte(0); i < 26; i++ {
		t[HIDKeyA+i] = 0xA0 + i
	}
	return t
}

func buildAltShiftCodes() map[byte]byte {
	t := make(map[byte]byte, 26)
	for i := byte(0); i < 26; i++ {
		t[HIDKeyA+i] = 0xE0 + i
	}
	return t
}

func (e *KeyboardEncoder) ReadPortA(ddr, or byte) byte {
	if e.readyA {
		return e.dataA
	}
	return 0xFF
}

func (e *KeyboardEncoder) ReadPortB(ddr, or byte) byte {
	if e.readyB {
		return e.dataB
	}
	return 0xFF
}

func (e *KeyboardEncoder) WritePortA(value, ddr byte) { e.readyA = false }
func (e *KeyboardEncoder) WritePortB(value, ddr byte) { e.readyB = false }

func (e *KeyboardEncoder) IsEnabled() bool { return true }
func (e *KeyboardEncoder) Priority() int   { return e.attachPriority }

func (e *KeyboardEncoder) ClearInterrupts(ca1, ca2, cb1, cb2 bool) {
	if ca1 {
		e.readyA = false
	}
	if cb1 {
		e.readyB = false
	}
}

func (e *KeyboardEncoder) UpdateControlLines(ca1, ca2, cb1, cb2 bool) {
	e.enabledA = !ca2
	e.enabledB = !cb2
}

func (e *KeyboardEncoder) HasCA1Interrupt() bool { return e.enabledA && e.readyA }
func (e *KeyboardEncoder) HasCA2Interrupt() bool { return false }
func (e *KeyboardEncoder) HasCB1Interrupt() bool { return e.enabledB && e.readyB }
func (e *KeyboardEncoder) HasCB2Interrupt() bool { return false }

// Joystick presents an 8-bit active-low button state on whichever port
// it's attached to (spec.md §4.4).
type Joystick struct {
	buttons        byte
	attachPriority int
}

func NewJoystick(priority int) *Joystick {
	return &Joystick{attachPriority: priority}
}

func (j *Joystick) Reset()                        { j.buttons = 0 }
func (j *Joystick) Tick()                          {}
func (j *Joystick) SetButtons(mask byte)           { j.buttons = mask }
func (j *Joystick) ReadPortA(ddr, or byte) byte     { return ^j.buttons }
func (j *Joystick) ReadPortB(ddr, or byte) byte     { return ^j.buttons }
func (j *Joystick) WritePortA(value, ddr byte)      {}
func (j *Joystick) WritePortB(value, ddr byte)      {}
func (j *Joystick) IsEnabled() bool                 { return true }
func (j *Joystick) Priority() int                   { return j.attachPriority }
func (j *Joystick) ClearInterrupts(ca1, ca2, cb1, cb2 bool)    {}
func (j *Joystick) UpdateControlLines(ca1, ca2, cb1, cb2 bool) {}
func (j *Joystick) HasCA1Interrupt() bool { return false }
func (j *Joystick) HasCA2Interrupt() bool { return false }
func (j *Joystick) HasCB1Interrupt() bool { return false }
func (j *Joystick) HasCB2Interrupt() bool { return false }
