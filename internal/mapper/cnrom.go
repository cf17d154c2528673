package mapper

import (
	"nescore/internal/cartridge"
	"nescore/internal/memory"
)

// newCNROM wires mapper #3: PRG is fixed (16 or 32 KiB, same mirroring rule
// as NROM); writes anywhere in $8000-$FFFF select an 8 KiB CHR ROM bank.
func newCNROM(cart *cartridge.Cartridge, mm *memory.MemoryMap) *Mapper {
	if len(cart.PRGROM) == 0x4000 {
		mm.MapPRG16k(0, 0)
		mm.MapPRG16k(1, 0)
	} else {
		mm.MapPRG32k(0)
	}
	mm.MapCHR8k(0)
	return &Mapper{Kind: KindCNROM}
}
