// serial_acia.go - ACIA-style serial UART with RX/TX FIFOs and baud pacing
//
// Grounded in terminal_io.go's byte-stream-over-callback convention
// (IntuitionAmiga-IntuitionEngine) and registers.go's const-block style;
// no teacher file implements a 6850, so the register semantics follow
// spec.md §4.6 directly.

package machine

const (
	aciaData    = 0x0
	aciaStatus  = 0x1 // read
	aciaReset   = 0x1 // write (programmed reset)
	aciaCommand = 0x2
	aciaControl = 0x3
)

const (
	statusRDRF    = 0x01
	statusTDRE    = 0x02
	statusDCD     = 0x04
	statusDSR     = 0x08
	statusFraming = 0x10
	statusOverrun = 0x20
	statusParity  = 0x40
	statusIRQ     = 0x80
)

const commandEcho = 0x20

// aciaBaudTable maps control[3:0] to bits-per-second (spec.md §4.6).
var aciaBaudTable = [16]uint32{
	0, 50, 75, 110, 135, 150, 300, 600,
	1200, 1800, 2400, 3600, 4800, 7200, 9600, 19200,
}

// ACIA implements the four-register serial card.
type ACIA struct {
	rx []byte
	tx []byte

	status  byte
	command byte
	control byte

	cyclesSinceLast uint64

	onTransmit TransmitFunc
	raiseIRQ   IRQSource
}

func NewACIA(raiseIRQ IRQSource) *ACIA {
	a := &ACIA{raiseIRQ: raiseIRQ}
	a.Reset(ColdReset)
	return a
}

func (a *ACIA) SetTransmitFunc(f TransmitFunc) { a.onTransmit = f }

func (a *ACIA) Reset(mode ResetMode) {
	a.rx = a.rx[:0]
	a.tx = a.tx[:0]
	a.status = statusTDRE
	a.command = 0
	a.control = 0
	a.cyclesSinceLast = 0
	a.raiseIRQ(false)
}

func (a *ACIA) baud() uint32 {
	b := aciaBaudTable[a.control&0x0F]
	if b == 0 {
		return 19200
	}
	return b
}

func (a *ACIA) Read(offset uint16) byte {
	switch offset & 0x03 {
	case aciaData:
		if len(a.rx) == 0 {
			return 0
		}
		v := a.rx[0]
		a.rx = a.rx[1:]
		a.status &^= statusRDRF
		if len(a.rx) == 0 {
			a.status &^= statusIRQ
		}
		a.updateIRQ()
		return v
	case aciaStatus:
		return a.status
	case aciaCommand:
		return a.command
	case aciaControl:
		return a.control
	}
	return 0
}

func (a *ACIA) Write(offset uint16, v byte) {
	switch offset & 0x03 {
	case aciaData:
		a.tx = append(a.tx, v)
		a.status &^= statusTDRE
		a.cyclesSinceLast = 0
	case aciaReset:
		a.Reset(WarmReset)
	case aciaCommand:
		a.command = v
	case aciaControl:
		a.control = v
	}
}

// OnReceive injects one byte from the host into the RX FIFO (spec.md §6).
// In echo mode the same byte is also queued for transmission, so it loops
// straight back out to the host (spec.md §4.6: echo is RX->TX).
func (a *ACIA) OnReceive(b byte) {
	if a.status&statusRDRF != 0 {
		a.status |= statusOverrun
	}
	a.rx = append(a.rx, b)
	a.status |= statusRDRF
	if a.command&0x02 != 0 {
		a.status |= statusIRQ
	}
	a.updateIRQ()
	if a.command&commandEcho != 0 {
		a.tx = append(a.tx, b)
		a.status &^= statusTDRE
	}
}

func (a *ACIA) updateIRQ() {
	a.raiseIRQ(a.status&statusIRQ != 0)
}

// Tick is called every CPU cycle (baud precision required, spec.md §5).
func (a *ACIA) Tick(frequencyHz uint32) {
	a.cyclesSinceLast++
	cyclesPerByte := uint64(frequencyHz) / uint64(a.baud()) * 10
	if cyclesPerByte == 0 {
		cyclesPerByte = 1
	}
	if a.cyclesSinceLast < cyclesPerByte {
		return
	}
	a.cyclesSinceLast = 0

	if len(a.tx) == 0 {
		a.status |= statusTDRE
		if a.command&0x04 == 0 && a.command&0x01 != 0 {
			a.status |= statusIRQ
			a.updateIRQ()
		}
		return
	}
	b := a.tx[0]
	a.tx = a.tx[1:]
	if a.onTransmit != nil {
		a.onTransmit(b)
	}
	if len(a.tx) == 0 {
		a.status |= statusTDRE
	}
}
