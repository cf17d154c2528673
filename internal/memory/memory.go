// Package memory implements the cartridge-aware system bus: PRG/CHR banking
// windows, nametable mirroring, and internal WRAM. Mappers drive the window
// tables through the exported MapPRG*/MapCHR* helpers; the memory map itself
// never dispatches on mapper identity.
package memory

import (
	"log"

	"nescore/internal/cartridge"
)

const (
	prgWindowSize = 0x2000 // 8 KiB
	chrWindowSize = 0x0400 // 1 KiB
)

// PPUPorts is the subset of the PPU's register interface the memory map
// drives on CPU-side $2000-$3FFF accesses.
type PPUPorts interface {
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, value uint8)
}

// APUPorts is the subset of the APU's register interface driven on
// $4000-$4013/$4015/$4017 accesses.
type APUPorts interface {
	ReadStatus() uint8
	WriteRegister(addr uint16, value uint8)
}

// InputPorts is the controller shift-register interface driven on
// $4016/$4017 accesses.
type InputPorts interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// Mapper is the interface a cartridge mapper variant implements against the
// memory map. It is defined here, not in package mapper, so MemoryMap never
// imports the mapper package — avoiding a dependency cycle while keeping the
// mapper the sole owner of bank-switching policy.
type Mapper interface {
	WriteMainBus(mm *MemoryMap, addr uint16, value uint8)
	AccessPPUBus(mm *MemoryMap, addr uint16, isWrite bool)
	OnCycleScanline()
}

// MemoryMap is the non-dispatching bus plumbing shared by every mapper
// variant: PRG/CHR banking windows, nametable mirroring and WRAM.
type MemoryMap struct {
	PRGROM       []byte
	prgBaseAddrs [4]int

	WRAM       [0x2000]byte
	hasWRAM    bool
	CHR        []byte
	chrWritable bool
	chrBaseAddrs [8]int

	mirroring  cartridge.Mirroring
	ntBanks    [4][chrWindowSize]byte
	ntBankOf   [4]int
	palettes   [32]byte

	ppu   PPUPorts
	apu   APUPorts
	input InputPorts
	mp    Mapper

	openBus uint8
}

// New builds a MemoryMap from a parsed cartridge and the component register
// interfaces. The caller must still call SetMapper once the mapper variant
// has been constructed (the mapper needs the map to initialize banking, and
// the map needs the mapper for PPU-bus observation hooks and writes).
func New(cart *cartridge.Cartridge, ppu PPUPorts, apu APUPorts, input InputPorts) *MemoryMap {
	mm := &MemoryMap{
		PRGROM:      cart.PRGROM,
		CHR:         cart.CHR,
		chrWritable: cart.CHRIsRAM,
		hasWRAM:     true,
		ppu:         ppu,
		apu:         apu,
		input:       input,
		mirroring:   cart.Mirroring,
	}
	mm.applyMirroring()
	return mm
}

// SetMapper installs the mapper used for $8000-$FFFF writes and PPU-bus
// observation hooks (MMC2's latch flips).
func (mm *MemoryMap) SetMapper(m Mapper) { mm.mp = m }

// SetPPU, SetAPU and SetInput install the register port interfaces once
// their owners are constructed. PPU/APU/input each need a *MemoryMap to
// build (the PPU and input ports dereference it directly; the APU closes
// over it for DMC sample fetches), so New() is given nil ports and the
// console wires the real ones back in afterward.
func (mm *MemoryMap) SetPPU(p PPUPorts)     { mm.ppu = p }
func (mm *MemoryMap) SetAPU(a APUPorts)     { mm.apu = a }
func (mm *MemoryMap) SetInput(i InputPorts) { mm.input = i }

// SetMirroring changes the nametable mirroring mode, used by mappers that
// control it dynamically (MMC1, MMC3).
func (mm *MemoryMap) SetMirroring(m cartridge.Mirroring) {
	mm.mirroring = m
	mm.applyMirroring()
}

func (mm *MemoryMap) applyMirroring() {
	switch mm.mirroring {
	case cartridge.MirrorHorizontal:
		mm.ntBankOf = [4]int{0, 0, 1, 1}
	case cartridge.MirrorVertical:
		mm.ntBankOf = [4]int{0, 1, 0, 1}
	case cartridge.MirrorSingleLow:
		mm.ntBankOf = [4]int{0, 0, 0, 0}
	case cartridge.MirrorSingleHigh:
		mm.ntBankOf = [4]int{1, 1, 1, 1}
	case cartridge.MirrorFourScreen:
		mm.ntBankOf = [4]int{0, 1, 2, 3}
	}
}

func normalizeBank(index, total int) int {
	if total <= 0 {
		return 0
	}
	index %= total
	if index < 0 {
		index += total
	}
	return index
}

// MapPRG8k assigns one of the four 8 KiB CPU windows ($8000+window*0x2000)
// to the given 8 KiB page of PRG ROM. Negative pageIndex counts from the end.
func (mm *MemoryMap) MapPRG8k(window, pageIndex int) {
	total := len(mm.PRGROM) / prgWindowSize
	page := normalizeBank(pageIndex, total)
	mm.prgBaseAddrs[window] = page * prgWindowSize
}

// MapPRG16k assigns the low (half=0) or high (half=1) 16 KiB CPU half to a
// 16 KiB page of PRG ROM.
func (mm *MemoryMap) MapPRG16k(half, pageIndex int) {
	total := len(mm.PRGROM) / (2 * prgWindowSize)
	page := normalizeBank(pageIndex, total)
	base := page * 2
	mm.prgBaseAddrs[half*2] = base * prgWindowSize
	mm.prgBaseAddrs[half*2+1] = (base + 1) * prgWindowSize
}

// MapPRG32k maps the entire $8000-$FFFF space to a 32 KiB page.
func (mm *MemoryMap) MapPRG32k(pageIndex int) {
	total := len(mm.PRGROM) / (4 * prgWindowSize)
	if total == 0 {
		total = 1
	}
	page := normalizeBank(pageIndex, total)
	base := page * 4
	for i := 0; i < 4; i++ {
		mm.prgBaseAddrs[i] = (base + i) * prgWindowSize
	}
}

// MapCHR1k assigns one of the eight 1 KiB PPU windows to a 1 KiB page.
func (mm *MemoryMap) MapCHR1k(window, pageIndex int) {
	total := len(mm.CHR) / chrWindowSize
	page := normalizeBank(pageIndex, total)
	mm.chrBaseAddrs[window] = page * chrWindowSize
}

// MapCHR2k assigns a pair of adjacent 1 KiB windows (pair 0..3) to a 2 KiB page.
func (mm *MemoryMap) MapCHR2k(pair, pageIndex int) {
	total := len(mm.CHR) / (2 * chrWindowSize)
	page := normalizeBank(pageIndex, total)
	base := page * 2
	mm.chrBaseAddrs[pair*2] = base * chrWindowSize
	mm.chrBaseAddrs[pair*2+1] = (base + 1) * chrWindowSize
}

// MapCHR4k assigns a quartet of windows (half 0..1) to a 4 KiB page.
func (mm *MemoryMap) MapCHR4k(half, pageIndex int) {
	total := len(mm.CHR) / (4 * chrWindowSize)
	page := normalizeBank(pageIndex, total)
	base := page * 4
	for i := 0; i < 4; i++ {
		mm.chrBaseAddrs[half*4+i] = (base + i) * chrWindowSize
	}
}

// MapCHR8k maps the whole $0000-$1FFF pattern-table space to an 8 KiB page.
func (mm *MemoryMap) MapCHR8k(pageIndex int) {
	total := len(mm.CHR) / (8 * chrWindowSize)
	if total == 0 {
		total = 1
	}
	page := normalizeBank(pageIndex, total)
	base := page * 8
	for i := 0; i < 8; i++ {
		mm.chrBaseAddrs[i] = (base + i) * chrWindowSize
	}
}

// ReadCPU reads a byte from the CPU's $0000-$FFFF address space. ram is the
// caller-owned 2 KiB internal RAM (mirrored four times); it lives on the CPU
// per spec's data model, so it is passed in rather than duplicated here.
func (mm *MemoryMap) ReadCPU(ram *[0x800]byte, addr uint16) uint8 {
	var value uint8
	switch {
	case addr < 0x2000:
		value = ram[addr&0x07FF]
	case addr < 0x4000:
		value = mm.ppu.ReadRegister(0x2000 | (addr & 7))
	case addr == 0x4015:
		value = mm.apu.ReadStatus()
	case addr == 0x4016, addr == 0x4017:
		value = mm.input.Read(addr)
	case addr < 0x4020:
		value = mm.openBus
	case addr < 0x6000:
		log.Printf("[MEMORY] read from unmapped cartridge expansion area $%04X, returning 0", addr)
		value = 0
	case addr < 0x8000:
		if mm.hasWRAM {
			value = mm.WRAM[addr-0x6000]
		} else {
			value = mm.openBus
		}
	default:
		window := (addr - 0x8000) / prgWindowSize
		offset := int(addr-0x8000) % prgWindowSize
		idx := mm.prgBaseAddrs[window] + offset
		if idx >= 0 && idx < len(mm.PRGROM) {
			value = mm.PRGROM[idx]
		} else {
			value = mm.openBus
		}
	}
	mm.openBus = value
	return value
}

// WriteCPU writes a byte to the CPU's $0000-$FFFF address space. dma is
// invoked for $4014 (OAM DMA) writes; the console drives the actual tick
// timing since only it owns the shared cycle clock.
func (mm *MemoryMap) WriteCPU(ram *[0x800]byte, addr uint16, value uint8, dma func(uint8)) {
	switch {
	case addr < 0x2000:
		ram[addr&0x07FF] = value
	case addr < 0x4000:
		mm.ppu.WriteRegister(0x2000|(addr&7), value)
	case addr == 0x4014:
		if dma != nil {
			dma(value)
		}
	case addr == 0x4016:
		mm.input.Write(addr, value)
	case addr == 0x4017:
		mm.apu.WriteRegister(addr, value)
	case addr >= 0x4000 && addr <= 0x4013:
		mm.apu.WriteRegister(addr, value)
	case addr == 0x4015:
		mm.apu.WriteRegister(addr, value)
	case addr < 0x4020:
		// test-mode registers $4018-$401F, ignored
	case addr < 0x6000:
		log.Printf("[MEMORY] write to unmapped cartridge expansion area $%04X, discarded", addr)
	case addr < 0x8000:
		if mm.hasWRAM {
			mm.WRAM[addr-0x6000] = value
		}
	default:
		if mm.mp != nil {
			mm.mp.WriteMainBus(mm, addr, value)
		}
	}
}

// ReadPPU reads from the PPU's 14-bit address space ($0000-$3FFF).
func (mm *MemoryMap) ReadPPU(addr uint16) uint8 {
	addr &= 0x3FFF
	if mm.mp != nil {
		mm.mp.AccessPPUBus(mm, addr, false)
	}
	switch {
	case addr < 0x2000:
		window := addr / chrWindowSize
		offset := int(addr % chrWindowSize)
		idx := mm.chrBaseAddrs[window] + offset
		if idx >= 0 && idx < len(mm.CHR) {
			return mm.CHR[idx]
		}
		return 0
	case addr < 0x3F00:
		return mm.readNametable(addr)
	default:
		return mm.readPalette(addr)
	}
}

// WritePPU writes to the PPU's 14-bit address space ($0000-$3FFF).
func (mm *MemoryMap) WritePPU(addr uint16, value uint8) {
	addr &= 0x3FFF
	if mm.mp != nil {
		mm.mp.AccessPPUBus(mm, addr, true)
	}
	switch {
	case addr < 0x2000:
		if mm.chrWritable {
			window := addr / chrWindowSize
			offset := int(addr % chrWindowSize)
			idx := mm.chrBaseAddrs[window] + offset
			if idx >= 0 && idx < len(mm.CHR) {
				mm.CHR[idx] = value
			}
		}
	case addr < 0x3F00:
		mm.writeNametable(addr, value)
	default:
		mm.writePalette(addr, value)
	}
}

func (mm *MemoryMap) readNametable(addr uint16) uint8 {
	a := addr & 0x0FFF
	logical := (a >> 10) & 3
	offset := a & 0x03FF
	return mm.ntBanks[mm.ntBankOf[logical]][offset]
}

func (mm *MemoryMap) writeNametable(addr uint16, value uint8) {
	a := addr & 0x0FFF
	logical := (a >> 10) & 3
	offset := a & 0x03FF
	mm.ntBanks[mm.ntBankOf[logical]][offset] = value
}

// paletteIndex decodes a $3F00-$3FFF address into a palettes[32] index,
// folding the universal-background mirrors ($3F10/$3F14/$3F18/$3F1C ->
// $3F00/$3F04/$3F08/$3F0C).
func paletteIndex(addr uint16) uint16 {
	idx := (addr - 0x3F00) & 0x1F
	if idx&0x13 == 0x10 {
		idx &= 0x0F
	}
	return idx
}

func (mm *MemoryMap) readPalette(addr uint16) uint8 {
	return mm.palettes[paletteIndex(addr)]
}

func (mm *MemoryMap) writePalette(addr uint16, value uint8) {
	mm.palettes[paletteIndex(addr)] = value
}

// Palettes exposes the 32-byte palette RAM directly, used by the PPU's pixel
// pipeline which needs a fast indexed lookup every dot rather than the full
// $3F00-mirroring address decode on every pixel.
func (mm *MemoryMap) Palettes() *[32]byte { return &mm.palettes }

// OnCycleScanline forwards the PPU's once-per-scanline IRQ clock to the
// mapper (MMC3's scanline counter). The PPU only holds a *MemoryMap, not the
// raw Mapper interface, so this passthrough is its one way to reach it.
func (mm *MemoryMap) OnCycleScanline() {
	if mm.mp != nil {
		mm.mp.OnCycleScanline()
	}
}
