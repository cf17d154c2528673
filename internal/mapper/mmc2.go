package mapper

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
)

// newMMC2 wires mapper #9 (Punch-Out!!'s board). $8000-$9FFF is switchable
// 8 KiB PRG; the remaining three 8 KiB windows are fixed to the last three
// banks. CHR is split into two 4 KiB latches, each toggled between its FD
// and FE bank by pattern-table reads observed through AccessPPUBus.
func newMMC2(cart *cartridge.Cartridge, mm *memory.MemoryMap) *Mapper {
	m := &Mapper{Kind: KindMMC2}
	mm.MapPRG8k(0, 0)
	mm.MapPRG8k(1, -3)
	mm.MapPRG8k(2, -2)
	mm.MapPRG8k(3, -1)
	m.applyMMC2CHR(mm)
	return m
}

func (m *Mapper) writeMMC2(mm *memory.MemoryMap, addr uint16, value uint8) {
	switch {
	case addr < 0xB000:
		mm.MapPRG8k(0, int(value&0x1F))
	case addr < 0xC000:
		m.mmc2Regs[0] = value & 0x1F
		m.applyMMC2CHR(mm)
	case addr < 0xD000:
		m.mmc2Regs[1] = value & 0x1F
		m.applyMMC2CHR(mm)
	case addr < 0xE000:
		m.mmc2Regs[2] = value & 0x1F
		m.applyMMC2CHR(mm)
	case addr < 0xF000:
		m.mmc2Regs[3] = value & 0x1F
		m.applyMMC2CHR(mm)
	default:
		if value&1 == 0 {
			mm.SetMirroring(cartridge.MirrorVertical)
		} else {
			mm.SetMirroring(cartridge.MirrorHorizontal)
		}
	}
}

func (m *Mapper) applyMMC2CHR(mm *memory.MemoryMap) {
	var bank0, bank1 uint8
	if m.mmc2Latch0 == 0 {
		bank0 = m.mmc2Regs[0]
	} else {
		bank0 = m.mmc2Regs[1]
	}
	if m.mmc2Latch1 == 0 {
		bank1 = m.mmc2Regs[2]
	} else {
		bank1 = m.mmc2Regs[3]
	}
	mm.MapCHR4k(0, int(bank0))
	mm.MapCHR4k(1, int(bank1))
}
