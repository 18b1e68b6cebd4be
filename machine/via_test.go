// via_test.go - timer interrupts (E6), IER set/clear semantics, attachment port sharing

package machine

import "testing"

func newTestVIA() (*VIA, *bool) {
	asserted := false
	v := NewVIA(func(assert bool) { asserted = assert })
	return v, &asserted
}

// TestVIAT1TimerIRQ covers E6: loading T1 and ticking it to zero sets the
// IFR timer-1 bit and, with IER enabled, asserts the aggregate IRQ line.
func TestVIAT1TimerIRQ(t *testing.T) {
	v, asserted := newTestVIA()
	v.Write(viaIER, ifrMaster|ifrT1)
	v.Write(viaT1LL, 0x02)
	v.Write(viaT1CH, 0x00) // latch high + load counter, clears T1 IFR

	for i := 0; i < 3; i++ {
		v.Tick(1_000_000)
	}

	if !*asserted {
		t.Fatalf("IRQ line not asserted after T1 timer expired")
	}
	if v.ifr&ifrT1 == 0 {
		t.Fatalf("IFR T1 bit not set after timer expired")
	}
}

// TestVIAIERClearSuppressesIRQ checks that disabling a source in IER
// clears the aggregate line even though IFR remains set.
func TestVIAIERClearSuppressesIRQ(t *testing.T) {
	v, asserted := newTestVIA()
	v.Write(viaIER, ifrMaster|ifrT1)
	v.Write(viaT1LL, 0x01)
	v.Write(viaT1CH, 0x00)
	v.Tick(1_000_000)
	v.Tick(1_000_000)
	if !*asserted {
		t.Fatalf("precondition failed: IRQ not asserted before disabling IER")
	}

	v.Write(viaIER, ifrT1) // clear bit (bit7 clear means "disable these bits")

	if *asserted {
		t.Fatalf("IRQ line still asserted after IER bit cleared")
	}
}

// TestVIAReadT1CLClearsIFR checks the documented side effect: reading the
// low counter byte acknowledges the T1 interrupt.
func TestVIAReadT1CLClearsIFR(t *testing.T) {
	v, asserted := newTestVIA()
	v.Write(viaIER, ifrMaster|ifrT1)
	v.Write(viaT1LL, 0x01)
	v.Write(viaT1CH, 0x00)
	v.Tick(1_000_000)
	v.Tick(1_000_000)

	v.Read(viaT1CL)

	if v.ifr&ifrT1 != 0 {
		t.Fatalf("IFR T1 bit still set after reading T1CL")
	}
	if *asserted {
		t.Fatalf("IRQ line still asserted after acknowledging T1")
	}
}

// fakeAttachment is a minimal ViaAttachment stub for the port-read and
// port-write fan-out tests.
type fakeAttachment struct {
	priority int
	enabled  bool
	readA    byte
	writeLog []byte
}

func (f *fakeAttachment) Reset()                                  {}
func (f *fakeAttachment) Tick()                                   {}
func (f *fakeAttachment) ReadPortA(ddr, or byte) byte             { return f.readA }
func (f *fakeAttachment) ReadPortB(ddr, or byte) byte             { return 0xFF }
func (f *fakeAttachment) WritePortA(value, ddr byte)              { f.writeLog = append(f.writeLog, value) }
func (f *fakeAttachment) WritePortB(value, ddr byte)              {}
func (f *fakeAttachment) IsEnabled() bool                         { return f.enabled }
func (f *fakeAttachment) Priority() int                            { return f.priority }
func (f *fakeAttachment) ClearInterrupts(ca1, ca2, cb1, cb2 bool) {}
func (f *fakeAttachment) UpdateControlLines(ca1, ca2, cb1, cb2 bool) {}
func (f *fakeAttachment) HasCA1Interrupt() bool                    { return false }
func (f *fakeAttachment) HasCA2Interrupt() bool                    { return false }
func (f *fakeAttachment) HasCB1Interrupt() bool                    { return false }
func (f *fakeAttachment) HasCB2Interrupt() bool                    { return false }

func TestVIAPortAReadIsWiredANDOfAttachments(t *testing.T) {
	v, _ := newTestVIA()
	a1 := &fakeAttachment{priority: 0, enabled: true, readA: 0xF0}
	a2 := &fakeAttachment{priority: 1, enabled: true, readA: 0x0F}
	v.AttachPortA(a1)
	v.AttachPortA(a2)

	if got := v.Read(viaORA); got != 0x00 {
		t.Fatalf("Port A read = %02X, want 00 (wired-AND of F0 and 0F)", got)
	}
}

func TestVIAPortAWriteFansOutToAllAttachments(t *testing.T) {
	v, _ := newTestVIA()
	a1 := &fakeAttachment{priority: 0, enabled: true}
	a2 := &fakeAttachment{priority: 1, enabled: true}
	v.AttachPortA(a1)
	v.AttachPortA(a2)

	v.Write(viaORA, 0x42)

	if len(a1.writeLog) != 1 || a1.writeLog[0] != 0x42 {
		t.Fatalf("attachment 1 did not observe the write: %v", a1.writeLog)
	}
	if len(a2.writeLog) != 1 || a2.writeLog[0] != 0x42 {
		t.Fatalf("attachment 2 did not observe the write: %v", a2.writeLog)
	}
}
