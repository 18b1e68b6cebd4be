// bus_test.go - address decode, ROM write-immunity, banked RAM isolation

package machine

import "testing"

func newTestBus() (*Bus, *SystemRAM, *ROM, *Cart) {
	ram := NewSystemRAM()
	rom := NewROM()
	cart := NewCart()
	return NewBus(ram, rom, cart), ram, rom, cart
}

func TestBusRAMReadWrite(t *testing.T) {
	bus, _, _, _ := newTestBus()
	bus.Write(0x1234, 0x42)
	if got := bus.Read(0x1234); got != 0x42 {
		t.Fatalf("RAM read/write mismatch: got %02X want 42", got)
	}
}

// TestBusROMWriteImmune checks invariant 1: writes into the ROM window
// never change what a subsequent read returns.
func TestBusROMWriteImmune(t *testing.T) {
	bus, _, rom, _ := newTestBus()
	image := make([]byte, ROMSize)
	image[0] = 0xAA
	rom.Load(image)

	bus.Write(ROMStart, 0xFF)
	if got := bus.Read(ROMStart); got != 0xAA {
		t.Fatalf("ROM not write-immune: got %02X want AA", got)
	}
}

func TestBusIOSlotRouting(t *testing.T) {
	bus, _, _, _ := newTestBus()
	var lastOffset uint16
	var lastValue byte
	bus.MapIO(slotVIA, func(offset uint16) byte {
		lastOffset = offset
		return 0x55
	}, func(offset uint16, v byte) {
		lastOffset = offset
		lastValue = v
	})

	addr := uint16(VIABase + 0x10)
	bus.Write(addr, 0x77)
	if lastOffset != 0x10 || lastValue != 0x77 {
		t.Fatalf("VIA slot write routed wrong: offset=%02X value=%02X", lastOffset, lastValue)
	}
	if got := bus.Read(addr); got != 0x55 {
		t.Fatalf("VIA slot read mismatch: got %02X want 55", got)
	}
}

func TestBusUnmappedSlotReadsZero(t *testing.T) {
	bus, _, _, _ := newTestBus()
	if got := bus.Read(RTCBase); got != 0 {
		t.Fatalf("unmapped slot should read 0, got %02X", got)
	}
}

// TestBusCartOverlay checks that a present cart shadows ROM at
// 0xC000-0xFFFF but ROM remains visible at 0xA000-0xBFFF.
func TestBusCartOverlay(t *testing.T) {
	bus, _, rom, cart := newTestBus()
	romImage := make([]byte, ROMSize)
	romImage[0] = 0x11
	rom.Load(romImage)

	cartImage := make([]byte, CartSize)
	cartImage[0] = 0x22
	cart.Load(cartImage)

	if got := bus.Read(CartStart); got != 0x22 {
		t.Fatalf("cart should shadow ROM at %04X: got %02X want 22", CartStart, got)
	}
	if got := bus.Read(ROMStart); got != 0x11 {
		t.Fatalf("ROM should remain visible below the cart window: got %02X want 11", got)
	}
}

func TestBankedRAMCardIsolation(t *testing.T) {
	card1 := NewBankedRAMCard()
	card2 := NewBankedRAMCard()
	card1.Write(0x00, 0xAB)
	if got := card2.Read(0x00); got != 0 {
		t.Fatalf("banked RAM cards must not share storage: card2 read %02X want 00", got)
	}
	if got := card1.Read(0x00); got != 0xAB {
		t.Fatalf("card1 did not retain its own write: got %02X want AB", got)
	}
}
