package input

import "testing"

func TestController_StrobeHigh_AlwaysReturnsButtonA(t *testing.T) {
	c := NewController()
	c.write(0x01)

	if v := c.read(); v != 0 {
		t.Errorf("expected bit 0 clear with A unpressed, got %d", v)
	}

	c.SetButtons(uint8(ButtonA))
	if v := c.read(); v != 1 {
		t.Errorf("expected bit 0 set with A pressed, got %d", v)
	}
}

func TestController_StrobeLow_ShiftsOutStandardOrder(t *testing.T) {
	c := NewController()
	c.SetButtons(uint8(ButtonA) | uint8(ButtonStart))
	c.write(0x01)
	c.write(0x00)

	want := []uint8{1, 0, 0, 1, 0, 0, 0, 0} // A,B,Select,Start,Up,Down,Left,Right
	for i, w := range want {
		if got := c.read(); got != w {
			t.Errorf("read %d: want %d, got %d", i, w, got)
		}
	}
}

func TestController_ExtendedReads_ReturnOne(t *testing.T) {
	c := NewController()
	c.write(0x01)
	c.write(0x00)
	for i := 0; i < 8; i++ {
		c.read()
	}
	for i := 0; i < 3; i++ {
		if got := c.read(); got != 1 {
			t.Errorf("extended read %d: want 1 (open bus), got %d", i, got)
		}
	}
}

func TestController_ButtonChangeDuringStrobe_UsesLiveState(t *testing.T) {
	c := NewController()
	c.write(0x01) // strobe high: shift register tracks buttons live

	c.SetButtons(uint8(ButtonA))
	if v := c.read(); v != 1 {
		t.Errorf("expected live A press visible during strobe, got %d", v)
	}
}

func TestController_Reset_ClearsState(t *testing.T) {
	c := NewController()
	c.SetButtons(uint8(ButtonA))
	c.write(0x01)
	c.reset()

	if c.buttons != 0 || c.shiftRegister != 0 || c.strobe {
		t.Error("expected all state cleared after reset")
	}
}

func TestPorts_ReadRoutesToCorrectControllerWithBit6Set(t *testing.T) {
	p := New()
	p.Controller1.SetButtons(uint8(ButtonA))
	p.Controller2.SetButtons(uint8(ButtonB))
	p.Write(0x4016, 0x01)

	if v := p.Read(0x4016); v != 0x41 {
		t.Errorf("controller 1 read: want 0x41, got 0x%02X", v)
	}
	if v := p.Read(0x4017); v != 0x40 {
		t.Errorf("controller 2 read: want 0x40 (B is not bit 0), got 0x%02X", v)
	}
}

func TestPorts_WriteStrobesBothControllers(t *testing.T) {
	p := New()
	p.Controller1.SetButtons(uint8(ButtonA))
	p.Write(0x4016, 0x01)

	if !p.Controller1.strobe || !p.Controller2.strobe {
		t.Error("expected both controllers to latch strobe on a $4016 write")
	}
}

func TestPorts_WriteToOtherAddressIgnored(t *testing.T) {
	p := New()
	p.Write(0x4017, 0x01)
	if p.Controller1.strobe {
		t.Error("expected $4017 write to have no effect on controller strobe")
	}
}

func TestPorts_Reset(t *testing.T) {
	p := New()
	p.Controller1.SetButtons(uint8(ButtonA))
	p.Write(0x4016, 0x01)
	p.Reset()

	if p.Controller1.buttons != 0 || p.Controller1.strobe {
		t.Error("expected Reset to clear controller 1")
	}
	if p.Controller2.buttons != 0 || p.Controller2.strobe {
		t.Error("expected Reset to clear controller 2")
	}
}

func BenchmarkPorts_ReadSequence(b *testing.B) {
	p := New()
	p.Controller1.SetButtons(uint8(ButtonA) | uint8(ButtonRight))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Write(0x4016, 0x01)
		p.Write(0x4016, 0x00)
		for j := 0; j < 8; j++ {
			p.Read(0x4016)
		}
	}
}
