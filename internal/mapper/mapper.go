// Package mapper implements the per-cartridge bank-switching, IRQ and
// PPU-bus-observation policy for the six supported boards. Each variant is
// a tag on a single Mapper struct rather than a family of types behind an
// interface, so dispatch is an exhaustive switch the compiler can inline.
package mapper

import (
	"fmt"

	"nescore/internal/cartridge"
	"nescore/internal/memory"
	"nescore/internal/signals"
)

// Kind tags which board's register policy a Mapper instance implements.
type Kind uint8

const (
	KindNROM Kind = iota
	KindMMC1
	KindUxROM
	KindCNROM
	KindMMC3
	KindMMC2
)

// Mapper is the tagged union of all six supported board behaviors. Only the
// fields relevant to Kind are meaningful at any time.
type Mapper struct {
	Kind Kind

	// MMC1
	mmc1Shift      uint8
	mmc1ShiftCount uint8
	mmc1Control    uint8
	mmc1CHRBank0   uint8
	mmc1CHRBank1   uint8
	mmc1PRGBank    uint8

	// UxROM
	uxPRGBank uint8

	// CNROM
	cnCHRBank uint8

	// MMC3
	bankSelect       uint8
	bankRegs         [8]uint8
	irqLatch         uint8
	irqCounter       uint8
	irqReloadPending bool
	irqEnabled       bool
	sig              *signals.Signals

	// MMC2
	mmc2Latch0 uint8 // 0 selects FD register, 1 selects FE register
	mmc2Latch1 uint8
	mmc2Regs   [4]uint8 // FD@$0000, FE@$0000, FD@$1000, FE@$1000
}

// New constructs the appropriate variant for the cartridge's mapper ID and
// wires its initial banking state into mm. sig is only consulted by MMC3.
func New(cart *cartridge.Cartridge, mm *memory.MemoryMap, sig *signals.Signals) (*Mapper, error) {
	var m *Mapper
	switch cart.MapperID {
	case 0:
		m = newNROM(cart, mm)
	case 1:
		m = newMMC1(cart, mm)
	case 2:
		m = newUxROM(cart, mm)
	case 3:
		m = newCNROM(cart, mm)
	case 4:
		m = newMMC3(cart, mm, sig)
	case 9:
		m = newMMC2(cart, mm)
	default:
		return nil, fmt.Errorf("mapper: #%d not supported", cart.MapperID)
	}
	mm.SetMapper(m)
	return m, nil
}

// WriteMainBus handles a CPU write in $8000-$FFFF (register writes for every
// variant except NROM, which ignores them).
func (m *Mapper) WriteMainBus(mm *memory.MemoryMap, addr uint16, value uint8) {
	switch m.Kind {
	case KindNROM:
		// static mapping, no registers
	case KindMMC1:
		m.writeMMC1(mm, addr, value)
	case KindUxROM:
		m.uxPRGBank = value & 0x0F
		mm.MapPRG16k(0, int(m.uxPRGBank))
	case KindCNROM:
		m.cnCHRBank = value
		mm.MapCHR8k(int(m.cnCHRBank))
	case KindMMC3:
		m.writeMMC3(mm, addr, value)
	case KindMMC2:
		m.writeMMC2(mm, addr, value)
	}
}

// AccessPPUBus observes every PPU-bus access so MMC2 can flip its CHR
// latches on reads of the magic $0FD8/$0FE8/$1FD8-$1FDF/$1FE8-$1FEF tiles.
func (m *Mapper) AccessPPUBus(mm *memory.MemoryMap, addr uint16, isWrite bool) {
	if m.Kind != KindMMC2 || isWrite {
		return
	}
	switch {
	case addr == 0x0FD8:
		m.mmc2Latch0 = 0
		m.applyMMC2CHR(mm)
	case addr == 0x0FE8:
		m.mmc2Latch0 = 1
		m.applyMMC2CHR(mm)
	case addr >= 0x1FD8 && addr <= 0x1FDF:
		m.mmc2Latch1 = 0
		m.applyMMC2CHR(mm)
	case addr >= 0x1FE8 && addr <= 0x1FEF:
		m.mmc2Latch1 = 1
		m.applyMMC2CHR(mm)
	}
}

// OnCycleScanline is called once per visible/pre-render scanline (at PPU dot
// 260, when rendering is enabled) to clock the MMC3 IRQ counter.
func (m *Mapper) OnCycleScanline() {
	if m.Kind != KindMMC3 {
		return
	}
	if m.irqCounter == 0 || m.irqReloadPending {
		m.irqCounter = m.irqLatch
		m.irqReloadPending = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.sig.Request(signals.MMC3)
	}
}
