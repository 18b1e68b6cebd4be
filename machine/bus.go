// bus.go - Address decoder: 0x0000-0xFFFF mapped to RAM, eight I/O cards, ROM/Cart
//
// Grounded in machine_bus.go's IORegion/MapIO registration pattern
// (IntuitionAmiga-IntuitionEngine), narrowed from a 32-bit address space to
// the 6502's 16-bit bus and the fixed eight-slot layout of spec.md §6.

package machine

// ioCard is the registration surface a peripheral card's 1KB window
// presents to the Bus. The offset passed in is the full 10-bit slot-local
// address (0x000-0x3FF); each card decodes only the low bits it actually
// uses, per spec.md §6.
type ioCard struct {
	read  func(offset uint16) byte
	write func(offset uint16, value byte)
}

// Bus implements the fixed memory map from spec.md §6. Slot order matches
// the bus table: RAM1, RAM2, RTC, Storage, Serial, VIA, Sound, Video.
type Bus struct {
	ram  *SystemRAM
	rom  *ROM
	cart *Cart

	slots [8]ioCard
}

const (
	slotRAM1 = iota
	slotRAM2
	slotRTC
	slotStorage
	slotSerial
	slotVIA
	slotSound
	slotVideo
)

func NewBus(ram *SystemRAM, rom *ROM, cart *Cart) *Bus {
	return &Bus{ram: ram, rom: rom, cart: cart}
}

// MapIO installs the read/write handlers for one of the eight fixed 1KB
// slots. Called once at Machine construction time for each card.
func (b *Bus) MapIO(slot int, read func(uint16) byte, write func(uint16, byte)) {
	b.slots[slot] = ioCard{read: read, write: write}
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr <= RAMEnd:
		return b.ram.Read(addr)
	case addr >= IOStart && addr <= IOEnd:
		slot := int((addr - IOStart) / IOSlotSize)
		offset := (addr - IOStart) % IOSlotSize
		card := b.slots[slot]
		if card.read == nil {
			return 0
		}
		return card.read(offset)
	case addr >= CartStart && b.cart != nil && b.cart.Present():
		return b.cart.Read(addr)
	default: // ROM window, including 0xA000-0xBFFF beneath an active cart
		return b.rom.Read(addr)
	}
}

func (b *Bus) Write(addr uint16, v byte) {
	switch {
	case addr <= RAMEnd:
		b.ram.Write(addr, v)
	case addr >= IOStart && addr <= IOEnd:
		slot := int((addr - IOStart) / IOSlotSize)
		offset := (addr - IOStart) % IOSlotSize
		card := b.slots[slot]
		if card.write != nil {
			card.write(offset, v)
		}
	default:
		// ROM/Cart writes are ignored — both are read-only (spec.md §6).
	}
}
