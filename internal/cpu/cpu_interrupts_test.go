package cpu

import (
	"testing"

	"nescore/internal/signals"
)

func TestResetSequence(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFC, 0x00, 0x80) // reset vector -> $8000

	h.CPU.A, h.CPU.X, h.CPU.Y = 0x55, 0xAA, 0xFF
	h.CPU.SP = 0x00
	h.CPU.PC = 0x1234
	h.CPU.I = false

	h.CPU.Reset()

	h.AssertRegisters(t, "Reset", 0x55, 0xAA, 0xFF, 0xFD, 0x8000)
	if !h.CPU.I {
		t.Error("expected I flag set after reset")
	}
}

func TestReset_ClearsAllSignals(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFC, 0x00, 0x80)
	h.Signals.Request(signals.VBlankNMI)
	h.Signals.Request(signals.APUFrameCounter)

	h.CPU.Reset()

	if h.Signals.AnyActive() {
		t.Error("expected Reset to clear all pending signals")
	}
}

func TestStep_NMI_PushesPCAndStatusWithBClear(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFA, 0x00, 0x90) // NMI vector -> $9000
	h.CPU.PC = 0x1234
	h.CPU.SP = 0xFD
	h.CPU.N = true

	h.Signals.Request(signals.VBlankNMI)
	cycles := h.CPU.Step()

	if cycles != 7 {
		t.Errorf("expected NMI sequence to take 7 cycles, got %d", cycles)
	}
	if h.CPU.PC != 0x9000 {
		t.Errorf("expected PC at NMI vector, got 0x%04X", h.CPU.PC)
	}
	if !h.CPU.I {
		t.Error("expected I flag set after NMI")
	}
	pushedStatus := h.Memory.data[0x01FB] // PCH at $01FD, PCL at $01FC, status at $01FB
	if pushedStatus&bFlagMask != 0 {
		t.Error("expected B flag clear in status pushed by a hardware NMI")
	}
	if pushedStatus&unusedMask == 0 {
		t.Error("expected unused bit set in pushed status")
	}
	if h.Signals.IsActive(signals.VBlankNMI) {
		t.Error("expected NMI to be acknowledged once serviced")
	}
}

func TestStep_IRQIgnoredWhenInterruptsDisabled(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0x8000, 0xEA) // NOP
	h.CPU.PC = 0x8000
	h.CPU.I = true

	h.Signals.Request(signals.APUFrameCounter)
	h.CPU.Step()

	if h.CPU.PC != 0x8001 {
		t.Errorf("expected IRQ to be masked by I flag and NOP to execute, PC=0x%04X", h.CPU.PC)
	}
	if !h.Signals.IsActive(signals.APUFrameCounter) {
		t.Error("expected IRQ source to remain asserted until acknowledged by its device")
	}
}

func TestStep_IRQServicedWhenEnabled(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFE, 0x00, 0xA0) // IRQ/BRK vector -> $A000
	h.CPU.PC = 0x8000
	h.CPU.I = false

	h.Signals.Request(signals.MMC3)
	cycles := h.CPU.Step()

	if cycles != 7 {
		t.Errorf("expected IRQ sequence to take 7 cycles, got %d", cycles)
	}
	if h.CPU.PC != 0xA000 {
		t.Errorf("expected PC at IRQ vector, got 0x%04X", h.CPU.PC)
	}
}

func TestStep_NMITakesPriorityOverIRQ(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFA, 0x00, 0x90)
	h.Memory.SetBytes(0xFFFE, 0x00, 0xA0)
	h.CPU.PC = 0x8000
	h.CPU.I = false

	h.Signals.Request(signals.VBlankNMI)
	h.Signals.Request(signals.APUFrameCounter)
	h.CPU.Step()

	if h.CPU.PC != 0x9000 {
		t.Errorf("expected NMI vector serviced first, got PC=0x%04X", h.CPU.PC)
	}
	if !h.Signals.IsActive(signals.APUFrameCounter) {
		t.Error("expected IRQ source to remain pending for the next instruction boundary")
	}
}

func TestStep_PendingIRQServicedAtNextBoundaryAfterNMI(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFA, 0x00, 0x90)
	h.Memory.SetBytes(0xFFFE, 0x00, 0xA0)
	h.Memory.SetBytes(0x9000, 0x40) // RTI at the NMI handler, so it returns immediately
	h.CPU.PC = 0x8000
	h.CPU.I = false
	h.CPU.SP = 0xFD

	h.Signals.Request(signals.VBlankNMI)
	h.Signals.Request(signals.APUFrameCounter)
	h.CPU.Step() // services NMI
	h.CPU.Step() // RTI back to original PC, re-enabling I per the pushed status
	h.CPU.Step() // IRQ now fires

	if h.CPU.PC != 0xA000 {
		t.Errorf("expected deferred IRQ to be serviced, got PC=0x%04X", h.CPU.PC)
	}
}

func TestBRK_PushesPCPlus2AndSetsBFlag(t *testing.T) {
	h := NewCPUTestHelper()
	h.Memory.SetBytes(0xFFFE, 0x00, 0xA0)
	h.LoadProgram(0x8000, 0x00) // BRK
	h.CPU.PC = 0x8000
	h.CPU.SP = 0xFD

	h.CPU.Step()

	if h.CPU.PC != 0xA000 {
		t.Errorf("expected BRK to jump through the IRQ vector, got 0x%04X", h.CPU.PC)
	}
	pushedStatus := h.Memory.data[0x01FB]
	if pushedStatus&bFlagMask == 0 {
		t.Error("expected B flag set in status pushed by BRK")
	}
	returnLow := h.Memory.data[0x01FC]
	returnHigh := h.Memory.data[0x01FD]
	returnAddr := uint16(returnHigh)<<8 | uint16(returnLow)
	if returnAddr != 0x8002 {
		t.Errorf("expected BRK to push PC+2 (0x8002), got 0x%04X", returnAddr)
	}
}
