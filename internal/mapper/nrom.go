package mapper

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
)

// newNROM wires mapper #0: a static mapping with no bank-switch registers.
// 16 KiB PRG ROMs mirror into both halves of $8000-$FFFF; 32 KiB ROMs occupy
// the full space. CHR is either 8 KiB ROM or RAM, also static.
func newNROM(cart *cartridge.Cartridge, mm *memory.MemoryMap) *Mapper {
	if len(cart.PRGROM) == 0x4000 {
		mm.MapPRG16k(0, 0)
		mm.MapPRG16k(1, 0)
	} else {
		mm.MapPRG32k(0)
	}
	mm.MapCHR8k(0)
	return &Mapper{Kind: KindNROM}
}
