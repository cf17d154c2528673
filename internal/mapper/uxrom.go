package mapper

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
)

// newUxROM wires mapper #2: a single 4-bit latch selects the low 16 KiB PRG
// bank; the high 16 KiB is fixed to the last bank. CHR is always 8 KiB RAM.
func newUxROM(cart *cartridge.Cartridge, mm *memory.MemoryMap) *Mapper {
	mm.MapPRG16k(0, 0)
	mm.MapPRG16k(1, -1)
	mm.MapCHR8k(0)
	return &Mapper{Kind: KindUxROM}
}
