// Package console wires Signals, MemoryMap, Mapper, CPU, PPU, APU and input
// together into the runnable machine the host driver talks to: the external
// API's parse_rom/Console.from_cart/power_on/simulate_frame surface.
package console

import (
	"sync"

	"nescore/internal/apu"
	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/input"
	"nescore/internal/mapper"
	"nescore/internal/memory"
	"nescore/internal/ppu"
	"nescore/internal/signals"
)

// InterruptKind names a user-triggered interrupt the host can raise.
type InterruptKind int

// Reset is the only host-triggered interrupt in scope: a RESET sequence,
// distinct from power-on in that RAM, VRAM and OAM are left untouched.
const Reset InterruptKind = iota

// Console is the fully wired NES: every component shares the same Signals
// bitset and MemoryMap, and the CPU drives the shared clock through tick,
// which cascades three PPU dots and one APU cycle per CPU cycle.
type Console struct {
	cart   *cartridge.Cartridge
	sig    *signals.Signals
	mm     *memory.MemoryMap
	mapper *mapper.Mapper
	ppu    *ppu.PPU
	apu    *apu.APU
	cpu    *cpu.CPU
	input  *input.Ports

	ram [0x800]byte

	// cpuCycles counts total CPU cycles since construction; used only to
	// decide OAM DMA's 513/514-cycle alignment (odd cycle costs one more).
	cpuCycles uint64

	audioMu      sync.Mutex
	audioSamples []float32
}

// busAdapter satisfies cpu.MemoryInterface by threading the console's RAM
// array and OAM-DMA callback through to the MemoryMap, which has no fields
// of its own for either (both are owned by the console, not the bus).
type busAdapter struct{ c *Console }

func (b busAdapter) Read(addr uint16) uint8 {
	return b.c.mm.ReadCPU(&b.c.ram, addr)
}

func (b busAdapter) Write(addr uint16, value uint8) {
	b.c.mm.WriteCPU(&b.c.ram, addr, value, b.c.runOAMDMA)
}

// ParseROM parses an iNES/NES 2.0 file into a Cartridge, the external API's
// parse_rom.
func ParseROM(path string) (*cartridge.Cartridge, error) {
	return cartridge.LoadFile(path)
}

// FromCart builds a fully wired, powered-down Console from a parsed
// Cartridge. Call PowerOn before the first SimulateFrame.
func FromCart(cart *cartridge.Cartridge) (*Console, error) {
	c := &Console{cart: cart, sig: signals.New()}

	c.mm = memory.New(cart, nil, nil, nil)
	c.ppu = ppu.New(c.mm, c.sig)
	c.input = input.New()
	c.apu = apu.New(c.sig, func(addr uint16) uint8 { return c.mm.ReadCPU(&c.ram, addr) })

	c.mm.SetPPU(c.ppu)
	c.mm.SetAPU(c.apu)
	c.mm.SetInput(c.input)

	m, err := mapper.New(cart, c.mm, c.sig)
	if err != nil {
		return nil, err
	}
	c.mapper = m
	c.mm.SetMapper(m)

	c.cpu = cpu.New(busAdapter{c}, c.sig, c.cascadeTick)

	return c, nil
}

// cascadeTick is the shared clock every CPU cycle drives: three PPU dots
// and one APU cycle, per the console's tick-cascade architecture. Both the
// CPU's own per-cycle callback and the OAM DMA loop (which spends cycles
// outside normal CPU instruction execution) call this.
func (c *Console) cascadeTick() {
	c.cpuCycles++
	c.ppu.Step()
	c.ppu.Step()
	c.ppu.Step()
	c.apu.Step()
	c.drainAPUSamples()
}

// PowerOn resets RAM, clears flags, and performs a RESET interrupt
// sequence, matching cold power-on.
func (c *Console) PowerOn() {
	c.ram = [0x800]byte{}
	c.sig.Reset()
	c.ppu.Reset()
	c.apu.Reset()
	c.input.Reset()
	c.cpu.Reset()
	c.audioMu.Lock()
	c.audioSamples = c.audioSamples[:0]
	c.audioMu.Unlock()
}

// Interrupt raises a user-triggered interrupt. Reset is the only kind in
// scope: unlike PowerOn it leaves RAM, VRAM, OAM and palette state intact,
// matching the real console's reset line.
func (c *Console) Interrupt(kind InterruptKind) {
	switch kind {
	case Reset:
		c.cpu.Reset()
	}
}

// SimulateFrame advances the console by exactly one frame's CPU cycles,
// ending the instant the PPU completes its scanline pass and flips the
// finished-frame buffer (dot 1 of scanline 241).
func (c *Console) SimulateFrame() {
	startFrame := c.ppu.GetFrameCount()
	for c.ppu.GetFrameCount() == startFrame {
		c.cpu.Step()
	}
}

// SetP1Buttons and SetP2Buttons replace each pad's full button state, the
// external API's set_p1_buttons/set_p2_buttons.
func (c *Console) SetP1Buttons(bits uint8) { c.input.Controller1.SetButtons(bits) }
func (c *Console) SetP2Buttons(bits uint8) { c.input.Controller2.SetButtons(bits) }

// CopyDisplayBuffer copies the most recently finished frame out as packed
// 0x00RRGGBB pixels, the external API's copy_display_buffer.
func (c *Console) CopyDisplayBuffer(out *[256 * 240]uint32) {
	c.ppu.CopyDisplayBuffer(out)
}

// ToggleChannel flips one APU channel's host mute override (0=pulse1,
// 1=pulse2, 2=triangle, 3=noise, 4=dmc), the external API's toggle_channel.
func (c *Console) ToggleChannel(channel int) {
	c.apu.ToggleChannel(channel)
}

// drainAPUSamples moves whatever the APU generated this cycle into the
// console's thread-safe audio queue. Called every tick rather than once per
// frame so the queue fills continuously instead of in one large burst.
func (c *Console) drainAPUSamples() {
	fresh := c.apu.DrainSamples()
	if len(fresh) == 0 {
		return
	}
	c.audioMu.Lock()
	c.audioSamples = append(c.audioSamples, fresh...)
	c.audioMu.Unlock()
}

// DrainAudioSamples is the consumer side of the audio queue: it fills out
// with buffered samples, padding any shortfall with zeros. It is safe to
// call from a separate audio callback goroutine while SimulateFrame runs
// concurrently on another. Returns the number of real (non-padding)
// samples that were available.
func (c *Console) DrainAudioSamples(out []float32) int {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()

	n := copy(out, c.audioSamples)
	if n < len(c.audioSamples) {
		c.audioSamples = append(c.audioSamples[:0], c.audioSamples[n:]...)
	} else {
		c.audioSamples = c.audioSamples[:0]
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return n
}

// runOAMDMA performs the 513/514-cycle OAM DMA transfer triggered by a
// $4014 write: one wait cycle, 256 read/write pairs, and one more
// alignment cycle when the transfer starts on an odd CPU cycle.
func (c *Console) runOAMDMA(page uint8) {
	if c.cpuCycles%2 == 1 {
		c.cascadeTick()
	}
	c.cascadeTick()

	base := uint16(page) << 8
	for i := 0; i < 256; i++ {
		value := c.mm.ReadCPU(&c.ram, base+uint16(i))
		c.cascadeTick()
		c.ppu.DMAWrite(uint8(i), value)
		c.cascadeTick()
	}
}
