package ppu

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
	"nescore/internal/signals"
)

// newTestPPU builds a PPU wired to a bare MemoryMap with writable CHR RAM and
// vertical mirroring, with no mapper attached (no bank switching, no MMC3
// IRQ hook). Good enough for exercising the pixel pipeline and registers in
// isolation.
func newTestPPU() (*PPU, *memory.MemoryMap, *signals.Signals) {
	cart := &cartridge.Cartridge{
		PRGROM:   make([]byte, 0x8000),
		CHR:      make([]byte, 0x2000),
		CHRIsRAM: true,
		Mirroring: cartridge.MirrorVertical,
	}
	sig := signals.New()
	mm := memory.New(cart, nil, nil, nil)
	p := New(mm, sig)
	return p, mm, sig
}
