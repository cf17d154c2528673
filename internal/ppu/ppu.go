// Package ppu implements the Picture Processing Unit for the NES (2C02).
package ppu

import (
	"nescore/internal/memory"
	"nescore/internal/signals"
)

// spriteSlice describes one sprite's contribution to a single scanline, built
// once per scanline during evaluation and consumed pixel-by-pixel while that
// scanline is drawn. endX of 0xFF marks an unused slot.
type spriteSlice struct {
	startX          uint8
	endX            uint16
	pattern2        uint16 // two bits per pixel, LSB-first, 8 pixels wide
	aboveBG         bool
	paletteBaseAddr uint8
	isSprite0       bool
}

// PPU represents the NES Picture Processing Unit.
type PPU struct {
	mem *memory.MemoryMap
	sig *signals.Signals

	// CPU-visible registers
	ppuCtrl uint8 // $2000
	ppuMask uint8 // $2001
	oamAddr uint8 // $2003

	oam [256]uint8

	// Loopy scroll registers
	v uint16 // current VRAM address (15 bits)
	t uint16 // temporary VRAM address / address latch
	x uint8  // fine X scroll (3 bits)
	w bool   // write toggle, first/second write

	dataBusLatch uint8 // open-bus value, updated by every register access
	readBuffer   uint8 // 1-deep buffer behind $2007 reads outside palette range

	vblank         bool
	sprite0Hit     bool
	spriteOverflow bool

	scanline int // 0-261; 241 is VBlank start, 261 is pre-render
	dot      int // 0-340
	frame    uint64

	// Background fetch pipeline
	ntByte, atByte, bgLoByte, bgHiByte uint8
	bgShiftLo, bgShiftHi               uint16
	bgAttrShiftLo, bgAttrShiftHi       uint16

	// Sprite evaluation, built at dot 257 of the current scanline for use on
	// the next one; this is how "no sprites on scanline 0" and "sprites lag
	// by one scanline" fall out without any extra offset arithmetic: OAM's Y
	// byte already stores (display row - 1).
	nextSprites   [8]spriteSlice
	activeSprites [8]spriteSlice

	curBuffer      [256 * 240]uint8 // indexed palette values, in progress
	finishedBuffer [256 * 240]uint8 // last completed frame
}

// New creates a PPU wired to the shared bus and interrupt signal set. mem may
// be nil at construction time and set later via SetMemory.
func New(mem *memory.MemoryMap, sig *signals.Signals) *PPU {
	p := &PPU{mem: mem, sig: sig}
	p.Reset()
	return p
}

// SetMemory attaches the shared memory map, used when the console wires
// components together in an order where the PPU is constructed first.
func (p *PPU) SetMemory(mem *memory.MemoryMap) {
	p.mem = mem
}

// Reset puts the PPU into its power-on state.
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.oamAddr = 0
	p.v, p.t = 0, 0
	p.x = 0
	p.w = false
	p.dataBusLatch = 0
	p.readBuffer = 0
	p.vblank = false
	p.sprite0Hit = false
	p.spriteOverflow = false
	p.scanline = 0
	p.dot = 0
	p.frame = 0
	p.bgShiftLo, p.bgShiftHi = 0, 0
	p.bgAttrShiftLo, p.bgAttrShiftHi = 0, 0
	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.nextSprites {
		p.nextSprites[i].endX = 0xFF
		p.activeSprites[i].endX = 0xFF
	}
	for i := range p.curBuffer {
		p.curBuffer[i] = 0
		p.finishedBuffer[i] = 0
	}
}

func (p *PPU) renderingEnabled() bool {
	return p.ppuMask&0x18 != 0
}

// ReadRegister serves a CPU read of $2000-$2007.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2002:
		status := p.dataBusLatch & 0x1F
		if p.vblank {
			status |= 0x80
		}
		if p.sprite0Hit {
			status |= 0x40
		}
		if p.spriteOverflow {
			status |= 0x20
		}
		p.vblank = false
		p.w = false
		p.dataBusLatch = status
		return status
	case 0x2004:
		p.dataBusLatch = p.oam[p.oamAddr]
		return p.dataBusLatch
	case 0x2007:
		p.dataBusLatch = p.readPPUData()
		return p.dataBusLatch
	default:
		return p.dataBusLatch
	}
}

// WriteRegister serves a CPU write of $2000-$2007. Every write updates the
// open-bus latch, matching hardware's shared data bus.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	p.dataBusLatch = value
	switch address {
	case 0x2000:
		wasNMIEnabled := p.ppuCtrl&0x80 != 0
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | (uint16(value)&0x03)<<10
		if !wasNMIEnabled && value&0x80 != 0 && p.vblank {
			p.sig.Request(signals.VBlankNMI)
		}
	case 0x2001:
		p.ppuMask = value
	case 0x2003:
		p.oamAddr = value
	case 0x2004:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005:
		p.writePPUScroll(value)
	case 0x2006:
		p.writePPUAddr(value)
	case 0x2007:
		p.writePPUData(value)
	}
}

func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
		p.x = value & 0x07
	} else {
		p.t = (p.t & 0x8FFF) | (uint16(value)&0x07)<<12
		p.t = (p.t & 0xFC1F) | (uint16(value)&0xF8)<<2
	}
	p.w = !p.w
}

func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x00FF) | (uint16(value)&0x3F)<<8
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
	}
	p.w = !p.w
}

func (p *PPU) vramStep() uint16 {
	if p.ppuCtrl&0x04 != 0 {
		return 32
	}
	return 1
}

func (p *PPU) readPPUData() uint8 {
	addr := p.v & 0x3FFF
	p.v += p.vramStep()
	if addr >= 0x3F00 {
		result := p.mem.ReadPPU(addr)
		p.readBuffer = p.mem.ReadPPU(addr - 0x1000) // buffer refills from the nametable mirror underneath
		return result
	}
	value := p.readBuffer
	p.readBuffer = p.mem.ReadPPU(addr)
	return value
}

func (p *PPU) writePPUData(value uint8) {
	addr := p.v & 0x3FFF
	p.v += p.vramStep()
	p.mem.WritePPU(addr, value)
}

func paletteIndexOf(addr uint16) uint8 {
	idx := addr & 0x1F
	if idx&0x13 == 0x10 {
		idx &= 0x0F
	}
	return uint8(idx)
}

// WriteOAM writes one byte into OAM at an explicit offset without touching
// oamAddr. OAM DMA does not use it; the console drives DMA through DMAWrite.
func (p *PPU) WriteOAM(offset uint8, value uint8) {
	p.oam[offset] = value
}

// Scroll/address helpers, bit-identical to the loopy register model.

func (p *PPU) incrementX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &^= 0x7000
		y := (p.v & 0x03E0) >> 5
		if y == 29 {
			y = 0
			p.v ^= 0x0800
		} else if y == 31 {
			y = 0
		} else {
			y++
		}
		p.v = (p.v &^ 0x03E0) | (y << 5)
	}
}

func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

// Step advances the PPU by one dot. The console calls this three times per
// CPU cycle.
func (p *PPU) Step() {
	p.processDot()
	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 261 {
			p.scanline = 0
		}
	}
}

func (p *PPU) processDot() {
	visible := p.scanline >= 0 && p.scanline <= 239
	preRender := p.scanline == 261

	if visible && p.dot >= 1 && p.dot <= 256 {
		p.renderPixel()
	}

	if (visible || preRender) && p.fetchActive() {
		p.runBackgroundFetch()
	}

	if (visible || preRender) && p.dot == 256 {
		p.incrementY()
	}
	if (visible || preRender) && p.dot == 257 {
		p.copyX()
		p.evaluateSprites()
	}
	if preRender && p.dot >= 280 && p.dot <= 304 {
		p.copyY()
	}

	if (visible || preRender) && p.mem != nil && p.dot == 260 && p.renderingEnabled() {
		p.mem.OnCycleScanline()
	}

	if p.scanline == 241 && p.dot == 1 {
		p.finishedBuffer = p.curBuffer
		p.frame++
		p.vblank = true
		if p.ppuCtrl&0x80 != 0 {
			p.sig.Request(signals.VBlankNMI)
		}
	}
	if preRender && p.dot == 1 {
		p.vblank = false
		p.sprite0Hit = false
		p.spriteOverflow = false
	}
}

// fetchActive reports whether this dot falls in one of the two ranges where
// the background pipeline fetches tile data: the visible/pre-render dots
// that draw pixels and the next scanline's first two tiles fetched ahead.
func (p *PPU) fetchActive() bool {
	return (p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336)
}

func (p *PPU) runBackgroundFetch() {
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.bgAttrShiftLo <<= 1
	p.bgAttrShiftHi <<= 1

	switch p.dot % 8 {
	case 1:
		ntAddr := 0x2000 | (p.v & 0x0FFF)
		p.ntByte = p.mem.ReadPPU(ntAddr)
	case 3:
		attrAddr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
		at := p.mem.ReadPPU(attrAddr)
		shift := ((p.v >> 4) & 0x04) | (p.v & 0x02)
		p.atByte = (at >> shift) & 0x03
	case 5:
		table := uint16(0)
		if p.ppuCtrl&0x10 != 0 {
			table = 0x1000
		}
		fineY := (p.v >> 12) & 0x07
		p.bgLoByte = p.mem.ReadPPU(table + uint16(p.ntByte)*16 + fineY)
	case 7:
		table := uint16(0)
		if p.ppuCtrl&0x10 != 0 {
			table = 0x1000
		}
		fineY := (p.v >> 12) & 0x07
		p.bgHiByte = p.mem.ReadPPU(table + uint16(p.ntByte)*16 + fineY + 8)
	case 0:
		p.loadShiftRegisters()
		p.incrementX()
	}
}

func (p *PPU) loadShiftRegisters() {
	p.bgShiftLo = (p.bgShiftLo &^ 0xFF) | uint16(p.bgLoByte)
	p.bgShiftHi = (p.bgShiftHi &^ 0xFF) | uint16(p.bgHiByte)
	lo, hi := uint16(0), uint16(0)
	if p.atByte&0x01 != 0 {
		lo = 0xFF
	}
	if p.atByte&0x02 != 0 {
		hi = 0xFF
	}
	p.bgAttrShiftLo = (p.bgAttrShiftLo &^ 0xFF) | lo
	p.bgAttrShiftHi = (p.bgAttrShiftHi &^ 0xFF) | hi
}

func (p *PPU) renderPixel() {
	x := p.dot - 1
	showBG := p.ppuMask&0x08 != 0 && (x >= 8 || p.ppuMask&0x02 != 0)
	showSprites := p.ppuMask&0x10 != 0 && (x >= 8 || p.ppuMask&0x04 != 0)

	bgColorIndex := uint8(0)
	var paletteAddr uint8
	if showBG {
		mask := uint16(0x8000) >> p.x
		b0 := uint8(0)
		if p.bgShiftLo&mask != 0 {
			b0 = 1
		}
		b1 := uint8(0)
		if p.bgShiftHi&mask != 0 {
			b1 = 2
		}
		bgColorIndex = b0 | b1
		a0 := uint8(0)
		if p.bgAttrShiftLo&mask != 0 {
			a0 = 1
		}
		a1 := uint8(0)
		if p.bgAttrShiftHi&mask != 0 {
			a1 = 2
		}
		if bgColorIndex != 0 {
			paletteAddr = (a0 | a1) << 2
		}
	}

	spriteColorIndex := uint8(0)
	var spritePaletteAddr uint8
	var spriteAboveBG, spriteIsZero bool
	if showSprites {
		for i := range p.activeSprites {
			s := &p.activeSprites[i]
			if uint16(x) < uint16(s.startX) || uint16(x) >= s.endX {
				continue
			}
			col := uint16(x) - uint16(s.startX)
			idx := uint8((s.pattern2 >> (col * 2)) & 0x03)
			if idx == 0 {
				continue
			}
			spriteColorIndex = idx
			spritePaletteAddr = s.paletteBaseAddr
			spriteAboveBG = s.aboveBG
			spriteIsZero = s.isSprite0
			break
		}
	}

	if spriteIsZero && bgColorIndex != 0 && spriteColorIndex != 0 && x != 255 && showBG {
		p.sprite0Hit = true
	}

	var palIdx uint8
	switch {
	case spriteColorIndex != 0 && (bgColorIndex == 0 || spriteAboveBG):
		palIdx = spritePaletteAddr | spriteColorIndex
	case bgColorIndex != 0:
		palIdx = paletteAddr | bgColorIndex
	default:
		palIdx = 0
	}

	grayscaleMask := uint8(0x3F)
	if p.ppuMask&0x01 != 0 {
		grayscaleMask = 0x30
	}
	value := p.mem.Palettes()[paletteIndexOf(0x3F00+uint16(palIdx))] & grayscaleMask
	p.curBuffer[p.scanline*256+x] = value
}

// evaluateSprites builds the sprite row for the NEXT scanline. Pre-render
// never evaluates, which is why scanline 0 always renders with no sprites:
// there is no prior scanline to have prepared them.
func (p *PPU) evaluateSprites() {
	for i := range p.nextSprites {
		p.nextSprites[i].endX = 0xFF
	}
	if p.scanline == 261 {
		p.activeSprites = p.nextSprites
		return
	}

	height := 8
	if p.ppuCtrl&0x20 != 0 {
		height = 16
	}

	count := 0
	for i := 0; i < 64; i++ {
		oamY := p.oam[i*4]
		row := p.scanline - int(oamY)
		if row < 0 || row >= height {
			continue
		}
		if count == 8 {
			p.spriteOverflow = true
			continue
		}
		tileIndex := p.oam[i*4+1]
		attrs := p.oam[i*4+2]
		spriteX := p.oam[i*4+3]

		flipV := attrs&0x80 != 0
		flipH := attrs&0x40 != 0

		y := row
		if flipV {
			y = height - 1 - y
		}
		var patternLo, patternHi uint8
		if height == 16 {
			table := uint16(0)
			if tileIndex&1 != 0 {
				table = 0x1000
			}
			tile := uint16(tileIndex &^ 1)
			if y >= 8 {
				tile++
				y -= 8
			}
			patternLo = p.mem.ReadPPU(table + tile*16 + uint16(y))
			patternHi = p.mem.ReadPPU(table + tile*16 + uint16(y) + 8)
		} else {
			table := uint16(0)
			if p.ppuCtrl&0x08 != 0 {
				table = 0x1000
			}
			patternLo = p.mem.ReadPPU(table + uint16(tileIndex)*16 + uint16(y))
			patternHi = p.mem.ReadPPU(table + uint16(tileIndex)*16 + uint16(y) + 8)
		}

		if !flipH {
			patternLo = reverseBits(patternLo)
			patternHi = reverseBits(patternHi)
		}
		pattern2 := interleaveBits(patternLo, patternHi)

		slot := &p.nextSprites[count]
		slot.startX = spriteX
		slot.endX = uint16(spriteX) + 8
		if slot.endX > 256 {
			slot.endX = 256
		}
		slot.pattern2 = pattern2
		slot.aboveBG = attrs&0x20 == 0
		slot.paletteBaseAddr = 0x10 | (attrs&0x03)<<2
		slot.isSprite0 = i == 0
		count++
	}
	p.activeSprites = p.nextSprites
}

func reverseBits(b uint8) uint8 {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}

// interleaveBits spreads lower's bits into the even positions and upper's
// bits into the odd positions of a 16-bit result, giving a 2-bit-per-pixel
// value where bit0 of each pair comes from lower and bit1 from upper.
// Branchless SWAR trick: a 64-bit multiply fans each input byte's bits out
// across a 64-bit lane so they can be masked and recombined in one shift.
func interleaveBits(lower, upper uint8) uint16 {
	x := uint64(lower)
	y := uint64(upper)
	x = (x * 0x0101010101010101) & 0x8040201008040201
	x = (x * 0x0102040810204081) >> 49
	x &= 0x5555
	y = (y * 0x0101010101010101) & 0x8040201008040201
	y = (y * 0x0102040810204081) >> 49
	y &= 0x5555
	return uint16(x | y<<1)
}

// OAM DMA, host, and accessor surface.

// DMAWrite writes one OAM byte during a $4014 DMA transfer, at oamAddr+offset
// wrapping within the 256-byte table. oamAddr itself is never advanced by
// DMA; the console-level driver calls DMAWrite with offsets 0-255 in turn.
func (p *PPU) DMAWrite(offset uint8, value uint8) {
	p.oam[p.oamAddr+offset] = value
}

// OAMByte returns the byte at the given OAM offset, used by tests and debug
// tooling (e.g. a sprite viewer) that need to inspect OAM without going
// through the $2004 register side effects.
func (p *PPU) OAMByte(offset uint8) uint8 { return p.oam[offset] }

// GetFrameCount returns the number of frames completed so far.
func (p *PPU) GetFrameCount() uint64 { return p.frame }

// GetScanline returns the current scanline (0-261).
func (p *PPU) GetScanline() int { return p.scanline }

// GetDot returns the current dot within the scanline (0-340).
func (p *PPU) GetDot() int { return p.dot }

// IsVBlank reports whether the VBlank status flag is currently set.
func (p *PPU) IsVBlank() bool { return p.vblank }

// CopyDisplayBuffer converts the last completed frame's indexed palette
// values into packed 0xRRGGBB pixels.
func (p *PPU) CopyDisplayBuffer(out *[256 * 240]uint32) {
	for i, idx := range p.finishedBuffer {
		out[i] = rgbOf(idx)
	}
}

// FrameBufferIndexed exposes the last completed frame's raw palette indices,
// used by tests that want to assert on pixel identity rather than RGB.
func (p *PPU) FrameBufferIndexed() *[256 * 240]uint8 {
	return &p.finishedBuffer
}
