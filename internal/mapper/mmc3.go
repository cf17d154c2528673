package mapper

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
	"nescore/internal/signals"
)

// newMMC3 wires mapper #4. The IRQ counter is clocked externally by
// OnCycleScanline, called from the PPU at dot 260 of rendering-enabled
// visible/pre-render scanlines.
func newMMC3(cart *cartridge.Cartridge, mm *memory.MemoryMap, sig *signals.Signals) *Mapper {
	m := &Mapper{Kind: KindMMC3, sig: sig}
	mm.MapPRG8k(3, -1)
	m.applyMMC3Banks(mm)
	return m
}

// writeMMC3 dispatches on the even/odd address within each of the four
// $2000-aligned register pairs ($8000/$8001, $A000/$A001, $C000/$C001,
// $E000/$E001).
func (m *Mapper) writeMMC3(mm *memory.MemoryMap, addr uint16, value uint8) {
	switch {
	case addr < 0xA000:
		if addr&1 == 0 {
			m.bankSelect = value
		} else {
			m.bankRegs[m.bankSelect&0x07] = value
		}
		m.applyMMC3Banks(mm)
	case addr < 0xC000:
		if addr&1 == 0 {
			if value&1 == 0 {
				mm.SetMirroring(cartridge.MirrorVertical)
			} else {
				mm.SetMirroring(cartridge.MirrorHorizontal)
			}
		}
		// $A001 PRG-RAM write-protect is not modeled.
	case addr < 0xE000:
		if addr&1 == 0 {
			m.irqLatch = value
		} else {
			m.irqCounter = 0
			m.irqReloadPending = true
		}
	default:
		if addr&1 == 0 {
			m.irqEnabled = false
			m.sig.Acknowledge(signals.MMC3)
		} else {
			m.irqEnabled = true
		}
	}
}

func (m *Mapper) applyMMC3Banks(mm *memory.MemoryMap) {
	r := m.bankRegs
	r0, r1 := int(r[0]&0xFE), int(r[1]&0xFE)
	r2, r3, r4, r5 := int(r[2]), int(r[3]), int(r[4]), int(r[5])
	r6, r7 := int(r[6]&0x3F), int(r[7]&0x3F)

	if m.bankSelect&0x80 == 0 {
		mm.MapCHR1k(0, r0)
		mm.MapCHR1k(1, r0+1)
		mm.MapCHR1k(2, r1)
		mm.MapCHR1k(3, r1+1)
		mm.MapCHR1k(4, r2)
		mm.MapCHR1k(5, r3)
		mm.MapCHR1k(6, r4)
		mm.MapCHR1k(7, r5)
	} else {
		mm.MapCHR1k(0, r2)
		mm.MapCHR1k(1, r3)
		mm.MapCHR1k(2, r4)
		mm.MapCHR1k(3, r5)
		mm.MapCHR1k(4, r0)
		mm.MapCHR1k(5, r0+1)
		mm.MapCHR1k(6, r1)
		mm.MapCHR1k(7, r1+1)
	}

	if m.bankSelect&0x40 == 0 {
		mm.MapPRG8k(0, r6)
		mm.MapPRG8k(1, r7)
		mm.MapPRG8k(2, -2)
	} else {
		mm.MapPRG8k(0, -2)
		mm.MapPRG8k(1, r7)
		mm.MapPRG8k(2, r6)
	}
	mm.MapPRG8k(3, -1)
}
