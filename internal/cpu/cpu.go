// Package cpu implements the 6502 CPU emulation for the NES.
package cpu

import (
	"fmt"

	"nescore/internal/signals"
)

// Addressing modes
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

// CPU constants for performance optimization
const (
	// Stack base address
	stackBase = 0x0100
	// Status register bit masks
	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01
	// Zero page mask
	zeroPageMask = 0xFF
	// Page boundary mask
	pageMask = 0xFF00
	// Interrupt vectors
	nmiVector   = 0xFFFA
	irqVector   = 0xFFFE
	resetVector = 0xFFFC
)

// Instruction represents a 6502 instruction
type Instruction struct {
	Name   string
	Opcode uint8
	Bytes  uint8
	Mode   AddressingMode
	// No function pointer needed - we'll use opcode switch
}

// CPU represents the 6502 processor used in the NES
type CPU struct {
	// Registers
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer
	PC uint16 // Program counter

	// Status register flags
	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal mode (not used in NES)
	B bool // Break
	V bool // Overflow
	N bool // Negative

	// Memory interface (to be implemented)
	memory MemoryInterface

	// sig is the shared interrupt bitset. NMI is polled edge-triggered
	// (VBlankNMI goes from asserted back to acknowledged by the CPU itself
	// once it services it); IRQ sources are level-triggered and stay
	// asserted until the device that raised them is serviced or disabled.
	sig *signals.Signals

	// tick is invoked once for every bus cycle the CPU spends, whether or
	// not that cycle carries a real memory access. The console wires this
	// to cascade 3 PPU dots and 1 APU cycle per call.
	tick func()

	// Cycle counter, informational only (useful for debug logging/tests).
	cycles uint64

	// Instruction lookup table
	instructions [256]*Instruction

	// ticksThisOp counts every bus cycle spent on the instruction currently
	// in flight: real reads/writes (cpu.read/cpu.write) plus dead internal
	// cycles (cpu.idleTick) issued at the exact point in the addressing
	// mode or opcode body that real 6502 hardware spends them - a dummy
	// read before an indexed store, the discarded fetch behind a 2-cycle
	// implied op, the extra internal cycles PLA/PLP/JSR/RTS/RTI/BRK spend
	// walking the stack. Step's return value is just this counter; there
	// is no table to pad against.
	ticksThisOp uint64

	// Debug and loop detection fields
	enableDebugLogging  bool
	enableLoopDetection bool
	lastPC              uint16
	pcStayCount         int
}

// MemoryInterface defines the interface for CPU memory access
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// New creates a new CPU instance. tick is called once per bus cycle the CPU
// spends; sig is the shared interrupt bitset the CPU polls between
// instructions and during its interrupt sequences.
func New(memory MemoryInterface, sig *signals.Signals, tick func()) *CPU {
	cpu := &CPU{
		memory: memory,
		sig:    sig,
		tick:   tick,
		SP:     0xFD, // Stack pointer initial value
		PC:     0,    // Will be set from reset vector
	}
	cpu.initInstructions()
	return cpu
}

// read performs a CPU-side memory read and ticks the shared clock once,
// the unit of work the PPU/APU cascade rides on.
func (cpu *CPU) read(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.ticksThisOp++
	cpu.cycles++
	if cpu.tick != nil {
		cpu.tick()
	}
	return value
}

// write performs a CPU-side memory write and ticks the shared clock once.
func (cpu *CPU) write(address uint16, value uint8) {
	cpu.memory.Write(address, value)
	cpu.ticksThisOp++
	cpu.cycles++
	if cpu.tick != nil {
		cpu.tick()
	}
}

// idleTick spends one bus cycle with no memory access: used for an
// instruction's internal dead cycles and for the interrupt-sequence cycles
// that have no corresponding read/write call.
func (cpu *CPU) idleTick() {
	cpu.ticksThisOp++
	cpu.cycles++
	if cpu.tick != nil {
		cpu.tick()
	}
}

// Reset performs a CPU reset following the precise 6502 reset sequence
func (cpu *CPU) Reset() {
	// 6502 Reset sequence takes 7 cycles total:
	// - 5 dummy reads (sequence start and the suppressed stack writes)
	// - 2 cycles to read reset vector
	
	// Initialize all registers to power-up state
	cpu.A = 0x00
	cpu.X = 0x00
	cpu.Y = 0x00
	cpu.SP = 0xFD
	
	// Set processor status to $34 (I=1, unused=1, others=0)
	// This matches real 6502 power-up state
	cpu.C = false // Carry = 0
	cpu.Z = false // Zero = 0  
	cpu.I = true  // Interrupt disable = 1
	cpu.D = false // Decimal = 0 (unused in NES anyway)
	cpu.B = true  // Break = 1 (unused bit, always 1)
	cpu.V = false // Overflow = 0
	cpu.N = false // Negative = 0
	
	if cpu.sig != nil {
		cpu.sig.Reset()
	}

	// Perform 5 bus operations during reset (like Rgnes)
	// These are dummy reads/writes that occur during reset sequence
	for i := 0; i < 5; i++ {
		// Dummy read from current PC (before reset vector read)
		cpu.read(cpu.PC)
	}

	// Read reset vector from 0xFFFC-0xFFFD (2 more bus operations)
	low := uint16(cpu.read(resetVector))
	high := uint16(cpu.read(resetVector + 1))
	cpu.PC = (high << 8) | low

	// Total: 7 cycles for complete reset sequence
}

// Step executes a single instruction (or, if an interrupt is pending at the
// instruction boundary, an interrupt sequence in its place) and returns the
// number of bus cycles it spent. Every one of those cycles has already
// driven cpu.tick exactly once, in real time, as the instruction ran.
func (cpu *CPU) Step() uint64 {
	if serviced := cpu.serviceInterrupts(); serviced > 0 {
		return serviced
	}

	currentPC := cpu.PC
	cpu.ticksThisOp = 0

	opcode := cpu.read(cpu.PC)
	instruction := cpu.instructions[opcode]

	if cpu.enableLoopDetection {
		cpu.detectInfiniteLoop(currentPC, opcode)
	}
	if cpu.enableDebugLogging {
		cpu.logInstruction(currentPC, opcode, instruction)
	}

	if instruction == nil {
		panic(fmt.Sprintf("cpu: unsupported opcode 0x%02X at $%04X", opcode, currentPC))
	}

	address, pageCrossed := cpu.getOperandAddress(instruction.Mode, opcode)
	cpu.executeInstruction(opcode, address, pageCrossed)

	return cpu.ticksThisOp
}

// serviceInterrupts runs a hardware NMI or IRQ sequence if one is pending,
// returning the cycles spent (0 if neither is pending). NMI is edge
// triggered and always wins; IRQ only fires while the I flag is clear and
// stays pending until its source is acknowledged or disabled.
func (cpu *CPU) serviceInterrupts() uint64 {
	if cpu.sig == nil {
		return 0
	}
	cpu.ticksThisOp = 0
	switch {
	case cpu.sig.IsActive(signals.VBlankNMI):
		cpu.sig.Acknowledge(signals.VBlankNMI)
		cpu.idleTick()
		cpu.idleTick()
		cpu.handleNMI()
	case cpu.sig.IRQLines() && !cpu.I:
		cpu.idleTick()
		cpu.idleTick()
		cpu.handleIRQ()
	default:
		return 0
	}
	return cpu.ticksThisOp
}

// indexedAlwaysPaysFixup reports whether opcode's indexed addressing mode
// (AbsoluteX/AbsoluteY/IndirectIndexed) always spends its fixup cycle on a
// dummy read at the uncorrected address, regardless of whether indexing
// actually crossed a page. Real hardware can't write (or read-modify-write)
// through a speculative, possibly-wrong address, so stores and RMW ops pay
// the cycle unconditionally; pure loads only pay it when the page really
// changes, which getOperandAddress's own pageCrossed check already covers.
func indexedAlwaysPaysFixup(opcode uint8) bool {
	switch opcode {
	case 0x9D, 0x99, 0x91: // STA abs,X / abs,Y / (zp),Y
		return true
	case 0x1E, 0x5E, 0x3E, 0x7E, 0xFE, 0xDE: // ASL/LSR/ROL/ROR/INC/DEC abs,X
		return true
	case 0x1F, 0x3F, 0x5F, 0x7F, 0xDF, 0xFF: // SLO/RLA/SRE/RRA/DCP/ISB abs,X
		return true
	case 0x1B, 0x3B, 0x5B, 0x7B, 0xDB, 0xFB: // SLO/RLA/SRE/RRA/DCP/ISB abs,Y
		return true
	case 0x13, 0x33, 0x53, 0x73, 0xD3, 0xF3: // SLO/RLA/SRE/RRA/DCP/ISB (zp),Y
		return true
	default:
		return false
	}
}

// getOperandAddress returns the effective address for the given addressing
// mode and opcode, issuing every bus cycle - including dummy reads and
// write-before-indexing fixups - at the point real 6502 hardware spends it,
// rather than a count Step pads against afterward. Returns the address and
// whether indexing crossed a page boundary.
func (cpu *CPU) getOperandAddress(mode AddressingMode, opcode uint8) (uint16, bool) {
	pageCrossed := false

	switch mode {
	case Implied, Accumulator:
		cpu.PC += 1 // Single byte instruction
		return 0, false

	case Immediate:
		address := cpu.PC + 1
		cpu.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(cpu.read(cpu.PC + 1))
		cpu.PC += 2
		return address, false

	case ZeroPageX:
		base := cpu.read(cpu.PC + 1)
		cpu.read(uint16(base)) // dummy read at the un-indexed zero page address
		address := uint16((base + cpu.X) & zeroPageMask) // Wrap within zero page
		cpu.PC += 2
		return address, false

	case ZeroPageY:
		base := cpu.read(cpu.PC + 1)
		cpu.read(uint16(base)) // dummy read at the un-indexed zero page address
		address := uint16((base + cpu.Y) & zeroPageMask) // Wrap within zero page
		cpu.PC += 2
		return address, false

	case Relative:
		offset := int8(cpu.read(cpu.PC + 1))
		oldPC := cpu.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		cpu.PC = oldPC // Will be updated by branch instruction if taken
		// Check for page boundary crossing
		pageCrossed = (oldPC & pageMask) != (newPC & pageMask)
		return newPC, pageCrossed

	case Absolute:
		low := uint16(cpu.read(cpu.PC + 1))
		high := uint16(cpu.read(cpu.PC + 2))
		address := (high << 8) | low
		cpu.PC += 3
		return address, false

	case AbsoluteX:
		low := uint16(cpu.read(cpu.PC + 1))
		high := uint16(cpu.read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.X)
		cpu.PC += 3
		pageCrossed = (base & pageMask) != (address & pageMask)
		if pageCrossed || indexedAlwaysPaysFixup(opcode) {
			uncorrected := (base & pageMask) | (address & zeroPageMask)
			cpu.read(uncorrected)
		}
		return address, pageCrossed

	case AbsoluteY:
		low := uint16(cpu.read(cpu.PC + 1))
		high := uint16(cpu.read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 3
		pageCrossed = (base & pageMask) != (address & pageMask)
		if pageCrossed || indexedAlwaysPaysFixup(opcode) {
			uncorrected := (base & pageMask) | (address & zeroPageMask)
			cpu.read(uncorrected)
		}
		return address, pageCrossed

	case Indirect: // Only used by JMP
		lowPtr := uint16(cpu.read(cpu.PC + 1))
		highPtr := uint16(cpu.read(cpu.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		// Handle page boundary bug: if low byte is 0xFF,
		// high byte is read from beginning of same page
		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low := uint16(cpu.read(ptr))
			high := uint16(cpu.read(ptr & pageMask)) // Bug: wraps to start of page
			address = (high << 8) | low
		} else {
			low := uint16(cpu.read(ptr))
			high := uint16(cpu.read(ptr + 1))
			address = (high << 8) | low
		}
		cpu.PC += 3
		return address, false

	case IndexedIndirect: // (zp,X)
		base := cpu.read(cpu.PC + 1)
		cpu.read(uint16(base)) // dummy read at the un-indexed zero page pointer
		ptr := (base + cpu.X) & zeroPageMask // Wrap within zero page
		low := uint16(cpu.read(uint16(ptr)))
		high := uint16(cpu.read(uint16((ptr + 1) & zeroPageMask))) // Wrap within zero page
		address := (high << 8) | low
		cpu.PC += 2
		return address, false

	case IndirectIndexed: // (zp),Y
		ptr := uint16(cpu.read(cpu.PC + 1))
		low := uint16(cpu.read(ptr))
		high := uint16(cpu.read((ptr + 1) & zeroPageMask)) // Wrap within zero page
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 2
		pageCrossed = (base & pageMask) != (address & pageMask)
		if pageCrossed || indexedAlwaysPaysFixup(opcode) {
			uncorrected := (base & pageMask) | (address & zeroPageMask)
			cpu.read(uncorrected)
		}
		return address, pageCrossed

	default:
		return 0, false
	}
}

// Stack operations - optimized with constant
func (cpu *CPU) push(value uint8) {
	cpu.write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))   // High byte first
	cpu.push(uint8(value & 0xFF)) // Low byte second
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return (high << 8) | low
}

// Flag operations
// setZN sets Zero and Negative flags based on value - optimized with constant
func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = (value & nFlagMask) != 0
}

// handleNMI and handleIRQ push PC and status (B clear, bit 5 set) and load
// the respective vector. Both are called only from serviceInterrupts, which
// has already spent the two lead-in idle cycles; the three pushes/vector
// reads below tick the remaining five, for the documented 7-cycle sequence.
func (cpu *CPU) handleNMI() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte() & (^uint8(bFlagMask))
	status |= unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.read(nmiVector))
	high := uint16(cpu.read(nmiVector + 1))
	cpu.PC = (high << 8) | low
}

func (cpu *CPU) handleIRQ() {
	cpu.pushWord(cpu.PC)
	status := cpu.GetStatusByte() & (^uint8(bFlagMask))
	status |= unusedMask
	cpu.push(status)
	cpu.I = true
	low := uint16(cpu.read(irqVector))
	high := uint16(cpu.read(irqVector + 1))
	cpu.PC = (high << 8) | low
}

// GetStatusByte returns the status register as a byte - optimized with bit masks
func (cpu *CPU) GetStatusByte() uint8 {
	var status uint8
	if cpu.N {
		status |= nFlagMask
	}
	if cpu.V {
		status |= vFlagMask
	}
	// Bit 5 is always set (unused)
	status |= unusedMask
	if cpu.B {
		status |= bFlagMask
	}
	if cpu.D {
		status |= dFlagMask
	}
	if cpu.I {
		status |= iFlagMask
	}
	if cpu.Z {
		status |= zFlagMask
	}
	if cpu.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte sets the status register from a byte - optimized with bit masks
func (cpu *CPU) SetStatusByte(status uint8) {
	cpu.N = (status & nFlagMask) != 0
	cpu.V = (status & vFlagMask) != 0
	cpu.B = (status & bFlagMask) != 0
	cpu.D = (status & dFlagMask) != 0
	cpu.I = (status & iFlagMask) != 0
	cpu.Z = (status & zFlagMask) != 0
	cpu.C = (status & cFlagMask) != 0
}

// Instruction operations

// Load operations
func (cpu *CPU) lda(address uint16) {
	cpu.A = cpu.read(address)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) ldx(address uint16) {
	cpu.X = cpu.read(address)
	cpu.setZN(cpu.X)
}

func (cpu *CPU) ldy(address uint16) {
	cpu.Y = cpu.read(address)
	cpu.setZN(cpu.Y)
}

// Store operations
func (cpu *CPU) sta(address uint16) {
	cpu.write(address, cpu.A)
}

func (cpu *CPU) stx(address uint16) {
	cpu.write(address, cpu.X)
}

func (cpu *CPU) sty(address uint16) {
	cpu.write(address, cpu.Y)
}

// Arithmetic operations

// adcValue performs the add-with-carry ALU operation against an
// already-fetched byte, with no memory access of its own. Split out from adc
// so isb/rra can feed it the value they already read and wrote themselves
// instead of re-reading memory.
func (cpu *CPU) adcValue(value uint8) {
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}

	result := uint16(cpu.A) + uint16(value) + uint16(carry)

	// Set overflow flag - occurs when sign of result differs from inputs
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0

	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
}

// sbcValue is adcValue with the operand's bits inverted, same as real 6502
// SBC microcode.
func (cpu *CPU) sbcValue(value uint8) {
	cpu.adcValue(value ^ 0xFF)
}

func (cpu *CPU) adc(address uint16) {
	cpu.adcValue(cpu.read(address))
}

func (cpu *CPU) sbc(address uint16) {
	cpu.sbcValue(cpu.read(address))
}

// Logical operations
func (cpu *CPU) and(address uint16) {
	cpu.A &= cpu.read(address)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) ora(address uint16) {
	cpu.A |= cpu.read(address)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) eor(address uint16) {
	cpu.A ^= cpu.read(address)
	cpu.setZN(cpu.A)
}

// Shift and rotate operations (Memory versions). Each reads the old value,
// writes it straight back unmodified - the dummy write-back real 6502 RMW
// microcode always performs, which mapper registers like MMC1's serial
// shifter see as a genuine write - and only then writes the new value.
func (cpu *CPU) asl(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.write(address, value)
	cpu.setZN(value)
}

func (cpu *CPU) lsr(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.write(address, value)
	cpu.setZN(value)
}

func (cpu *CPU) rol(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.write(address, value)
	cpu.setZN(value)
}

func (cpu *CPU) ror(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.write(address, value)
	cpu.setZN(value)
}

// Comparison operations
func (cpu *CPU) cmp(address uint16) {
	value := cpu.read(address)
	result := cpu.A - value
	cpu.C = cpu.A >= value
	cpu.setZN(result)
}

func (cpu *CPU) cpx(address uint16) {
	value := cpu.read(address)
	result := cpu.X - value
	cpu.C = cpu.X >= value
	cpu.setZN(result)
}

func (cpu *CPU) cpy(address uint16) {
	value := cpu.read(address)
	result := cpu.Y - value
	cpu.C = cpu.Y >= value
	cpu.setZN(result)
}

// Increment/Decrement operations
func (cpu *CPU) inc(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	value++
	cpu.write(address, value)
	cpu.setZN(value)
}

func (cpu *CPU) dec(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	value--
	cpu.write(address, value)
	cpu.setZN(value)
}

func (cpu *CPU) inx(address uint16) {
	cpu.idleTick() // discarded fetch of the next opcode byte
	cpu.X++
	cpu.setZN(cpu.X)
}

func (cpu *CPU) dex(address uint16) {
	cpu.idleTick()
	cpu.X--
	cpu.setZN(cpu.X)
}

func (cpu *CPU) iny(address uint16) {
	cpu.idleTick()
	cpu.Y++
	cpu.setZN(cpu.Y)
}

func (cpu *CPU) dey(address uint16) {
	cpu.idleTick()
	cpu.Y--
	cpu.setZN(cpu.Y)
}

// Transfer operations
func (cpu *CPU) tax(address uint16) {
	cpu.idleTick()
	cpu.X = cpu.A
	cpu.setZN(cpu.X)
}

func (cpu *CPU) txa(address uint16) {
	cpu.idleTick()
	cpu.A = cpu.X
	cpu.setZN(cpu.A)
}

func (cpu *CPU) tay(address uint16) {
	cpu.idleTick()
	cpu.Y = cpu.A
	cpu.setZN(cpu.Y)
}

func (cpu *CPU) tya(address uint16) {
	cpu.idleTick()
	cpu.A = cpu.Y
	cpu.setZN(cpu.A)
}

func (cpu *CPU) tsx(address uint16) {
	cpu.idleTick()
	cpu.X = cpu.SP
	cpu.setZN(cpu.X)
}

func (cpu *CPU) txs(address uint16) {
	cpu.idleTick()
	cpu.SP = cpu.X
}

// Stack operations
func (cpu *CPU) pha(address uint16) {
	cpu.idleTick()
	cpu.push(cpu.A)
}

func (cpu *CPU) pla(address uint16) {
	cpu.idleTick()
	cpu.idleTick()
	cpu.A = cpu.pop()
	cpu.setZN(cpu.A)
}

func (cpu *CPU) php(address uint16) {
	cpu.idleTick()
	cpu.push(cpu.GetStatusByte() | bFlagMask) // B flag set for PHP
}

func (cpu *CPU) plp(address uint16) {
	cpu.idleTick()
	cpu.idleTick()
	status := cpu.pop()
	cpu.SetStatusByte(status)
}

// Flag operations
func (cpu *CPU) clc(address uint16) {
	cpu.idleTick()
	cpu.C = false
}

func (cpu *CPU) sec(address uint16) {
	cpu.idleTick()
	cpu.C = true
}

func (cpu *CPU) cli(address uint16) {
	cpu.idleTick()
	cpu.I = false
}

func (cpu *CPU) sei(address uint16) {
	cpu.idleTick()
	cpu.I = true
}

func (cpu *CPU) clv(address uint16) {
	cpu.idleTick()
	cpu.V = false
}

func (cpu *CPU) cld(address uint16) {
	cpu.idleTick()
	cpu.D = false
}

func (cpu *CPU) sed(address uint16) {
	cpu.idleTick()
	cpu.D = true
}

// Control flow operations
func (cpu *CPU) jmp(address uint16) {
	cpu.PC = address
}

func (cpu *CPU) jsr(address uint16) {
	// Real hardware spends a cycle here (internal, no bus access) between
	// fetching the low address byte and pushing the return address onto
	// the stack; reordering it before pushWord is safe because Absolute
	// addressing already fetched both address bytes up front.
	cpu.idleTick()
	cpu.pushWord(cpu.PC - 1) // JSR pushes PC-1
	cpu.PC = address
}

func (cpu *CPU) rts(address uint16) {
	cpu.idleTick() // dummy read of the next byte
	cpu.idleTick() // internal stack-pointer increment
	cpu.PC = cpu.popWord() + 1
	cpu.idleTick() // internal PC increment
}

func (cpu *CPU) rti(address uint16) {
	cpu.idleTick() // dummy read of the next byte
	cpu.idleTick() // internal stack-pointer increment
	cpu.SetStatusByte(cpu.pop())
	cpu.PC = cpu.popWord()
}

// Branch operations: each ticks once for a taken branch and once more if
// taking it crosses a page, instead of returning a count for Step to add.
func (cpu *CPU) bcc(address uint16, pageCrossed bool) {
	if !cpu.C {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bcs(address uint16, pageCrossed bool) {
	if cpu.C {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bne(address uint16, pageCrossed bool) {
	if !cpu.Z {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) beq(address uint16, pageCrossed bool) {
	if cpu.Z {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bpl(address uint16, pageCrossed bool) {
	if !cpu.N {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bmi(address uint16, pageCrossed bool) {
	if cpu.N {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bvc(address uint16, pageCrossed bool) {
	if !cpu.V {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

func (cpu *CPU) bvs(address uint16, pageCrossed bool) {
	if cpu.V {
		cpu.idleTick()
		if pageCrossed {
			cpu.idleTick()
		}
		cpu.PC = address
	}
}

// Miscellaneous operations
func (cpu *CPU) bit(address uint16) {
	value := cpu.read(address)
	cpu.N = (value & nFlagMask) != 0 // Bit 7 of memory
	cpu.V = (value & vFlagMask) != 0 // Bit 6 of memory
	cpu.Z = (cpu.A & value) == 0     // Zero if A AND memory == 0
}

// nopImplied is the single-byte 2-cycle NOP family (0xEA and its unofficial
// duplicates): the second cycle is a discarded fetch of the next opcode
// byte, PC not advanced.
func (cpu *CPU) nopImplied() {
	cpu.idleTick()
}

// nop is the operand-reading unofficial NOP family: it genuinely reads its
// operand and discards the value, same as a real 6502 does for these.
func (cpu *CPU) nop(address uint16) {
	cpu.read(address)
}

func (cpu *CPU) brk(address uint16) {
	// BRK is a 1-byte instruction, but it pushes PC+2 to the stack: the
	// byte after the opcode is fetched and discarded as a "padding" byte.
	cpu.read(cpu.PC)
	cpu.PC++
	cpu.pushWord(cpu.PC)

	cpu.push(cpu.GetStatusByte() | bFlagMask) // B flag is set when pushed by BRK/PHP
	cpu.I = true                              // Disable interrupts

	// Load IRQ vector into PC
	low := uint16(cpu.read(irqVector))
	high := uint16(cpu.read(irqVector + 1))
	cpu.PC = (high << 8) | low
}

// --- Unofficial Opcodes ---

func (cpu *CPU) lax(address uint16) {
	cpu.A = cpu.read(address)
	cpu.X = cpu.A
	cpu.setZN(cpu.A)
}

func (cpu *CPU) sax(address uint16) {
	cpu.write(address, cpu.A&cpu.X)
}

func (cpu *CPU) dcp(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	value--
	cpu.write(address, value)
	result := cpu.A - value
	cpu.C = cpu.A >= value
	cpu.setZN(result)
}

func (cpu *CPU) isb(address uint16) {
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	value++
	cpu.write(address, value)
	cpu.sbcValue(value)
}

func (cpu *CPU) slo(address uint16) {
	// ASL part
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.write(address, value)
	// ORA part
	cpu.A |= value
	cpu.setZN(cpu.A)
}

func (cpu *CPU) rla(address uint16) {
	// ROL part
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.write(address, value)
	// AND part
	cpu.A &= value
	cpu.setZN(cpu.A)
}

func (cpu *CPU) sre(address uint16) {
	// LSR part
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.write(address, value)
	// EOR part
	cpu.A ^= value
	cpu.setZN(cpu.A)
}

func (cpu *CPU) rra(address uint16) {
	// ROR part
	value := cpu.read(address)
	cpu.write(address, value) // dummy write-back of the old value
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.write(address, value)
	// ADC part
	cpu.adcValue(value)
}

// executeInstruction runs the given opcode against the provided operand
// address. Every cycle it spends - including dead internal cycles and
// dummy reads/writes - is charged by the read/write/idleTick calls the
// instruction and addressing-mode code issue as they go; there is nothing
// left for the caller to account for afterward.
func (cpu *CPU) executeInstruction(opcode uint8, address uint16, pageCrossed bool) {
	switch opcode {
	// Load/Store Instructions
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1: // LDA
		cpu.lda(address)
	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE: // LDX
		cpu.ldx(address)
	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC: // LDY
		cpu.ldy(address)
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91: // STA
		cpu.sta(address)
	case 0x86, 0x96, 0x8E: // STX
		cpu.stx(address)
	case 0x84, 0x94, 0x8C: // STY
		cpu.sty(address)

	// Arithmetic Instructions
	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71: // ADC
		cpu.adc(address)
	case 0xE9, 0xEB, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1: // SBC (0xEB is unofficial)
		cpu.sbc(address)

	// Logical Instructions
	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31: // AND
		cpu.and(address)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11: // ORA
		cpu.ora(address)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51: // EOR
		cpu.eor(address)

	// Shift and Rotate Instructions
	case 0x0A: // ASL Accumulator
		cpu.idleTick() // discarded fetch of the next opcode byte
		cpu.C = (cpu.A & 0x80) != 0
		cpu.A <<= 1
		cpu.setZN(cpu.A)
	case 0x06, 0x16, 0x0E, 0x1E: // ASL Memory
		cpu.asl(address)
	case 0x4A: // LSR Accumulator
		cpu.idleTick()
		cpu.C = (cpu.A & 0x01) != 0
		cpu.A >>= 1
		cpu.setZN(cpu.A)
	case 0x46, 0x56, 0x4E, 0x5E: // LSR Memory
		cpu.lsr(address)
	case 0x2A: // ROL Accumulator
		cpu.idleTick()
		oldCarry := cpu.C
		cpu.C = (cpu.A & 0x80) != 0
		cpu.A <<= 1
		if oldCarry {
			cpu.A |= 0x01
		}
		cpu.setZN(cpu.A)
	case 0x26, 0x36, 0x2E, 0x3E: // ROL Memory
		cpu.rol(address)
	case 0x6A: // ROR Accumulator
		cpu.idleTick()
		oldCarry := cpu.C
		cpu.C = (cpu.A & 0x01) != 0
		cpu.A >>= 1
		if oldCarry {
			cpu.A |= 0x80
		}
		cpu.setZN(cpu.A)
	case 0x66, 0x76, 0x6E, 0x7E: // ROR Memory
		cpu.ror(address)

	// Comparison Instructions
	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1: // CMP
		cpu.cmp(address)
	case 0xE0, 0xE4, 0xEC: // CPX
		cpu.cpx(address)
	case 0xC0, 0xC4, 0xCC: // CPY
		cpu.cpy(address)

	// Increment/Decrement Instructions
	case 0xE6, 0xF6, 0xEE, 0xFE: // INC
		cpu.inc(address)
	case 0xC6, 0xD6, 0xCE, 0xDE: // DEC
		cpu.dec(address)
	case 0xE8: // INX
		cpu.inx(address)
	case 0xCA: // DEX
		cpu.dex(address)
	case 0xC8: // INY
		cpu.iny(address)
	case 0x88: // DEY
		cpu.dey(address)

	// Transfer Instructions
	case 0xAA: // TAX
		cpu.tax(address)
	case 0x8A: // TXA
		cpu.txa(address)
	case 0xA8: // TAY
		cpu.tay(address)
	case 0x98: // TYA
		cpu.tya(address)
	case 0xBA: // TSX
		cpu.tsx(address)
	case 0x9A: // TXS
		cpu.txs(address)

	// Stack Instructions
	case 0x48: // PHA
		cpu.pha(address)
	case 0x68: // PLA
		cpu.pla(address)
	case 0x08: // PHP
		cpu.php(address)
	case 0x28: // PLP
		cpu.plp(address)

	// Flag Instructions
	case 0x18: // CLC
		cpu.clc(address)
	case 0x38: // SEC
		cpu.sec(address)
	case 0x58: // CLI
		cpu.cli(address)
	case 0x78: // SEI
		cpu.sei(address)
	case 0xB8: // CLV
		cpu.clv(address)
	case 0xD8: // CLD
		cpu.cld(address)
	case 0xF8: // SED
		cpu.sed(address)

	// Control Flow Instructions
	case 0x4C, 0x6C: // JMP
		cpu.jmp(address)
	case 0x20: // JSR
		cpu.jsr(address)
	case 0x60: // RTS
		cpu.rts(address)
	case 0x40: // RTI
		cpu.rti(address)

	// Branch Instructions
	case 0x90: // BCC
		cpu.bcc(address, pageCrossed)
	case 0xB0: // BCS
		cpu.bcs(address, pageCrossed)
	case 0xD0: // BNE
		cpu.bne(address, pageCrossed)
	case 0xF0: // BEQ
		cpu.beq(address, pageCrossed)
	case 0x10: // BPL
		cpu.bpl(address, pageCrossed)
	case 0x30: // BMI
		cpu.bmi(address, pageCrossed)
	case 0x50: // BVC
		cpu.bvc(address, pageCrossed)
	case 0x70: // BVS
		cpu.bvs(address, pageCrossed)

	// Miscellaneous Instructions
	case 0x24, 0x2C: // BIT
		cpu.bit(address)
	case 0x00: // BRK
		cpu.brk(address)

	// Implied-mode unofficial NOPs: a single discarded opcode-fetch cycle
	case 0xEA, 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA:
		cpu.nopImplied()

	// Operand-reading unofficial NOPs: the operand is genuinely read and discarded
	case 0x80, 0x82, 0x89, 0xC2, 0xE2, 0x04, 0x44, 0x64, 0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4, 0x0C, 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC:
		cpu.nop(address)

	// Unofficial Opcodes
	case 0xA3, 0xA7, 0xAF, 0xB3, 0xB7, 0xBF: // LAX
		cpu.lax(address)
	case 0x83, 0x87, 0x8F, 0x97: // SAX
		cpu.sax(address)
	case 0xC3, 0xC7, 0xCF, 0xD3, 0xD7, 0xDF, 0xDB: // DCP
		cpu.dcp(address)
	case 0xE3, 0xE7, 0xEF, 0xF3, 0xF7, 0xFF, 0xFB: // ISB
		cpu.isb(address)
	case 0x03, 0x07, 0x0F, 0x13, 0x17, 0x1F, 0x1B: // SLO
		cpu.slo(address)
	case 0x23, 0x27, 0x2F, 0x33, 0x37, 0x3F, 0x3B: // RLA
		cpu.rla(address)
	case 0x43, 0x47, 0x4F, 0x53, 0x57, 0x5F, 0x5B: // SRE
		cpu.sre(address)
	case 0x63, 0x67, 0x6F, 0x73, 0x77, 0x7F, 0x7B: // RRA
		cpu.rra(address)
	}
}

// initInstructions populates the instruction lookup table with all valid 6502 opcodes.
// This creates a direct opcode-to-instruction mapping for fast dispatch.
func (cpu *CPU) initInstructions() {
	// Initialize all entries to nil first
	for i := range cpu.instructions {
		cpu.instructions[i] = nil
	}

	// Load/Store Instructions
	cpu.instructions[0xA9] = &Instruction{"LDA", 0xA9, 2, Immediate}
	cpu.instructions[0xA5] = &Instruction{"LDA", 0xA5, 2, ZeroPage}
	cpu.instructions[0xB5] = &Instruction{"LDA", 0xB5, 2, ZeroPageX}
	cpu.instructions[0xAD] = &Instruction{"LDA", 0xAD, 3, Absolute}
	cpu.instructions[0xBD] = &Instruction{"LDA", 0xBD, 3, AbsoluteX}
	cpu.instructions[0xB9] = &Instruction{"LDA", 0xB9, 3, AbsoluteY}
	cpu.instructions[0xA1] = &Instruction{"LDA", 0xA1, 2, IndexedIndirect}
	cpu.instructions[0xB1] = &Instruction{"LDA", 0xB1, 2, IndirectIndexed}

	cpu.instructions[0xA2] = &Instruction{"LDX", 0xA2, 2, Immediate}
	cpu.instructions[0xA6] = &Instruction{"LDX", 0xA6, 2, ZeroPage}
	cpu.instructions[0xB6] = &Instruction{"LDX", 0xB6, 2, ZeroPageY}
	cpu.instructions[0xAE] = &Instruction{"LDX", 0xAE, 3, Absolute}
	cpu.instructions[0xBE] = &Instruction{"LDX", 0xBE, 3, AbsoluteY}

	cpu.instructions[0xA0] = &Instruction{"LDY", 0xA0, 2, Immediate}
	cpu.instructions[0xA4] = &Instruction{"LDY", 0xA4, 2, ZeroPage}
	cpu.instructions[0xB4] = &Instruction{"LDY", 0xB4, 2, ZeroPageX}
	cpu.instructions[0xAC] = &Instruction{"LDY", 0xAC, 3, Absolute}
	cpu.instructions[0xBC] = &Instruction{"LDY", 0xBC, 3, AbsoluteX}

	cpu.instructions[0x85] = &Instruction{"STA", 0x85, 2, ZeroPage}
	cpu.instructions[0x95] = &Instruction{"STA", 0x95, 2, ZeroPageX}
	cpu.instructions[0x8D] = &Instruction{"STA", 0x8D, 3, Absolute}
	cpu.instructions[0x9D] = &Instruction{"STA", 0x9D, 3, AbsoluteX}
	cpu.instructions[0x99] = &Instruction{"STA", 0x99, 3, AbsoluteY}
	cpu.instructions[0x81] = &Instruction{"STA", 0x81, 2, IndexedIndirect}
	cpu.instructions[0x91] = &Instruction{"STA", 0x91, 2, IndirectIndexed}

	cpu.instructions[0x86] = &Instruction{"STX", 0x86, 2, ZeroPage}
	cpu.instructions[0x96] = &Instruction{"STX", 0x96, 2, ZeroPageY}
	cpu.instructions[0x8E] = &Instruction{"STX", 0x8E, 3, Absolute}

	cpu.instructions[0x84] = &Instruction{"STY", 0x84, 2, ZeroPage}
	cpu.instructions[0x94] = &Instruction{"STY", 0x94, 2, ZeroPageX}
	cpu.instructions[0x8C] = &Instruction{"STY", 0x8C, 3, Absolute}

	// Arithmetic Instructions
	cpu.instructions[0x69] = &Instruction{"ADC", 0x69, 2, Immediate}
	cpu.instructions[0x65] = &Instruction{"ADC", 0x65, 2, ZeroPage}
	cpu.instructions[0x75] = &Instruction{"ADC", 0x75, 2, ZeroPageX}
	cpu.instructions[0x6D] = &Instruction{"ADC", 0x6D, 3, Absolute}
	cpu.instructions[0x7D] = &Instruction{"ADC", 0x7D, 3, AbsoluteX}
	cpu.instructions[0x79] = &Instruction{"ADC", 0x79, 3, AbsoluteY}
	cpu.instructions[0x61] = &Instruction{"ADC", 0x61, 2, IndexedIndirect}
	cpu.instructions[0x71] = &Instruction{"ADC", 0x71, 2, IndirectIndexed}

	cpu.instructions[0xE9] = &Instruction{"SBC", 0xE9, 2, Immediate}
	cpu.instructions[0xE5] = &Instruction{"SBC", 0xE5, 2, ZeroPage}
	cpu.instructions[0xF5] = &Instruction{"SBC", 0xF5, 2, ZeroPageX}
	cpu.instructions[0xED] = &Instruction{"SBC", 0xED, 3, Absolute}
	cpu.instructions[0xFD] = &Instruction{"SBC", 0xFD, 3, AbsoluteX}
	cpu.instructions[0xF9] = &Instruction{"SBC", 0xF9, 3, AbsoluteY}
	cpu.instructions[0xE1] = &Instruction{"SBC", 0xE1, 2, IndexedIndirect}
	cpu.instructions[0xF1] = &Instruction{"SBC", 0xF1, 2, IndirectIndexed}

	// Logical Instructions
	cpu.instructions[0x29] = &Instruction{"AND", 0x29, 2, Immediate}
	cpu.instructions[0x25] = &Instruction{"AND", 0x25, 2, ZeroPage}
	cpu.instructions[0x35] = &Instruction{"AND", 0x35, 2, ZeroPageX}
	cpu.instructions[0x2D] = &Instruction{"AND", 0x2D, 3, Absolute}
	cpu.instructions[0x3D] = &Instruction{"AND", 0x3D, 3, AbsoluteX}
	cpu.instructions[0x39] = &Instruction{"AND", 0x39, 3, AbsoluteY}
	cpu.instructions[0x21] = &Instruction{"AND", 0x21, 2, IndexedIndirect}
	cpu.instructions[0x31] = &Instruction{"AND", 0x31, 2, IndirectIndexed}

	cpu.instructions[0x09] = &Instruction{"ORA", 0x09, 2, Immediate}
	cpu.instructions[0x05] = &Instruction{"ORA", 0x05, 2, ZeroPage}
	cpu.instructions[0x15] = &Instruction{"ORA", 0x15, 2, ZeroPageX}
	cpu.instructions[0x0D] = &Instruction{"ORA", 0x0D, 3, Absolute}
	cpu.instructions[0x1D] = &Instruction{"ORA", 0x1D, 3, AbsoluteX}
	cpu.instructions[0x19] = &Instruction{"ORA", 0x19, 3, AbsoluteY}
	cpu.instructions[0x01] = &Instruction{"ORA", 0x01, 2, IndexedIndirect}
	cpu.instructions[0x11] = &Instruction{"ORA", 0x11, 2, IndirectIndexed}

	cpu.instructions[0x49] = &Instruction{"EOR", 0x49, 2, Immediate}
	cpu.instructions[0x45] = &Instruction{"EOR", 0x45, 2, ZeroPage}
	cpu.instructions[0x55] = &Instruction{"EOR", 0x55, 2, ZeroPageX}
	cpu.instructions[0x4D] = &Instruction{"EOR", 0x4D, 3, Absolute}
	cpu.instructions[0x5D] = &Instruction{"EOR", 0x5D, 3, AbsoluteX}
	cpu.instructions[0x59] = &Instruction{"EOR", 0x59, 3, AbsoluteY}
	cpu.instructions[0x41] = &Instruction{"EOR", 0x41, 2, IndexedIndirect}
	cpu.instructions[0x51] = &Instruction{"EOR", 0x51, 2, IndirectIndexed}

	// Shift and Rotate Instructions
	cpu.instructions[0x0A] = &Instruction{"ASL", 0x0A, 1, Accumulator}
	cpu.instructions[0x06] = &Instruction{"ASL", 0x06, 2, ZeroPage}
	cpu.instructions[0x16] = &Instruction{"ASL", 0x16, 2, ZeroPageX}
	cpu.instructions[0x0E] = &Instruction{"ASL", 0x0E, 3, Absolute}
	cpu.instructions[0x1E] = &Instruction{"ASL", 0x1E, 3, AbsoluteX}

	cpu.instructions[0x4A] = &Instruction{"LSR", 0x4A, 1, Accumulator}
	cpu.instructions[0x46] = &Instruction{"LSR", 0x46, 2, ZeroPage}
	cpu.instructions[0x56] = &Instruction{"LSR", 0x56, 2, ZeroPageX}
	cpu.instructions[0x4E] = &Instruction{"LSR", 0x4E, 3, Absolute}
	cpu.instructions[0x5E] = &Instruction{"LSR", 0x5E, 3, AbsoluteX}

	cpu.instructions[0x2A] = &Instruction{"ROL", 0x2A, 1, Accumulator}
	cpu.instructions[0x26] = &Instruction{"ROL", 0x26, 2, ZeroPage}
	cpu.instructions[0x36] = &Instruction{"ROL", 0x36, 2, ZeroPageX}
	cpu.instructions[0x2E] = &Instruction{"ROL", 0x2E, 3, Absolute}
	cpu.instructions[0x3E] = &Instruction{"ROL", 0x3E, 3, AbsoluteX}

	cpu.instructions[0x6A] = &Instruction{"ROR", 0x6A, 1, Accumulator}
	cpu.instructions[0x66] = &Instruction{"ROR", 0x66, 2, ZeroPage}
	cpu.instructions[0x76] = &Instruction{"ROR", 0x76, 2, ZeroPageX}
	cpu.instructions[0x6E] = &Instruction{"ROR", 0x6E, 3, Absolute}
	cpu.instructions[0x7E] = &Instruction{"ROR", 0x7E, 3, AbsoluteX}

	// Comparison Instructions
	cpu.instructions[0xC9] = &Instruction{"CMP", 0xC9, 2, Immediate}
	cpu.instructions[0xC5] = &Instruction{"CMP", 0xC5, 2, ZeroPage}
	cpu.instructions[0xD5] = &Instruction{"CMP", 0xD5, 2, ZeroPageX}
	cpu.instructions[0xCD] = &Instruction{"CMP", 0xCD, 3, Absolute}
	cpu.instructions[0xDD] = &Instruction{"CMP", 0xDD, 3, AbsoluteX}
	cpu.instructions[0xD9] = &Instruction{"CMP", 0xD9, 3, AbsoluteY}
	cpu.instructions[0xC1] = &Instruction{"CMP", 0xC1, 2, IndexedIndirect}
	cpu.instructions[0xD1] = &Instruction{"CMP", 0xD1, 2, IndirectIndexed}

	cpu.instructions[0xE0] = &Instruction{"CPX", 0xE0, 2, Immediate}
	cpu.instructions[0xE4] = &Instruction{"CPX", 0xE4, 2, ZeroPage}
	cpu.instructions[0xEC] = &Instruction{"CPX", 0xEC, 3, Absolute}

	cpu.instructions[0xC0] = &Instruction{"CPY", 0xC0, 2, Immediate}
	cpu.instructions[0xC4] = &Instruction{"CPY", 0xC4, 2, ZeroPage}
	cpu.instructions[0xCC] = &Instruction{"CPY", 0xCC, 3, Absolute}

	// Increment/Decrement Instructions
	cpu.instructions[0xE6] = &Instruction{"INC", 0xE6, 2, ZeroPage}
	cpu.instructions[0xF6] = &Instruction{"INC", 0xF6, 2, ZeroPageX}
	cpu.instructions[0xEE] = &Instruction{"INC", 0xEE, 3, Absolute}
	cpu.instructions[0xFE] = &Instruction{"INC", 0xFE, 3, AbsoluteX}

	cpu.instructions[0xC6] = &Instruction{"DEC", 0xC6, 2, ZeroPage}
	cpu.instructions[0xD6] = &Instruction{"DEC", 0xD6, 2, ZeroPageX}
	cpu.instructions[0xCE] = &Instruction{"DEC", 0xCE, 3, Absolute}
	cpu.instructions[0xDE] = &Instruction{"DEC", 0xDE, 3, AbsoluteX}

	cpu.instructions[0xE8] = &Instruction{"INX", 0xE8, 1, Implied}
	cpu.instructions[0xCA] = &Instruction{"DEX", 0xCA, 1, Implied}
	cpu.instructions[0xC8] = &Instruction{"INY", 0xC8, 1, Implied}
	cpu.instructions[0x88] = &Instruction{"DEY", 0x88, 1, Implied}

	// Transfer Instructions
	cpu.instructions[0xAA] = &Instruction{"TAX", 0xAA, 1, Implied}
	cpu.instructions[0x8A] = &Instruction{"TXA", 0x8A, 1, Implied}
	cpu.instructions[0xA8] = &Instruction{"TAY", 0xA8, 1, Implied}
	cpu.instructions[0x98] = &Instruction{"TYA", 0x98, 1, Implied}
	cpu.instructions[0xBA] = &Instruction{"TSX", 0xBA, 1, Implied}
	cpu.instructions[0x9A] = &Instruction{"TXS", 0x9A, 1, Implied}

	// Stack Instructions
	cpu.instructions[0x48] = &Instruction{"PHA", 0x48, 1, Implied}
	cpu.instructions[0x68] = &Instruction{"PLA", 0x68, 1, Implied}
	cpu.instructions[0x08] = &Instruction{"PHP", 0x08, 1, Implied}
	cpu.instructions[0x28] = &Instruction{"PLP", 0x28, 1, Implied}

	// Flag Instructions
	cpu.instructions[0x18] = &Instruction{"CLC", 0x18, 1, Implied}
	cpu.instructions[0x38] = &Instruction{"SEC", 0x38, 1, Implied}
	cpu.instructions[0x58] = &Instruction{"CLI", 0x58, 1, Implied}
	cpu.instructions[0x78] = &Instruction{"SEI", 0x78, 1, Implied}
	cpu.instructions[0xB8] = &Instruction{"CLV", 0xB8, 1, Implied}
	cpu.instructions[0xD8] = &Instruction{"CLD", 0xD8, 1, Implied}
	cpu.instructions[0xF8] = &Instruction{"SED", 0xF8, 1, Implied}

	// Control Flow Instructions
	cpu.instructions[0x4C] = &Instruction{"JMP", 0x4C, 3, Absolute}
	cpu.instructions[0x6C] = &Instruction{"JMP", 0x6C, 3, Indirect}
	cpu.instructions[0x20] = &Instruction{"JSR", 0x20, 3, Absolute}
	cpu.instructions[0x60] = &Instruction{"RTS", 0x60, 1, Implied}
	cpu.instructions[0x40] = &Instruction{"RTI", 0x40, 1, Implied}

	// Branch Instructions
	cpu.instructions[0x90] = &Instruction{"BCC", 0x90, 2, Relative}
	cpu.instructions[0xB0] = &Instruction{"BCS", 0xB0, 2, Relative}
	cpu.instructions[0xD0] = &Instruction{"BNE", 0xD0, 2, Relative}
	cpu.instructions[0xF0] = &Instruction{"BEQ", 0xF0, 2, Relative}
	cpu.instructions[0x10] = &Instruction{"BPL", 0x10, 2, Relative}
	cpu.instructions[0x30] = &Instruction{"BMI", 0x30, 2, Relative}
	cpu.instructions[0x50] = &Instruction{"BVC", 0x50, 2, Relative}
	cpu.instructions[0x70] = &Instruction{"BVS", 0x70, 2, Relative}

	// Miscellaneous Instructions
	cpu.instructions[0x24] = &Instruction{"BIT", 0x24, 2, ZeroPage}
	cpu.instructions[0x2C] = &Instruction{"BIT", 0x2C, 3, Absolute}
	cpu.instructions[0xEA] = &Instruction{"NOP", 0xEA, 1, Implied}
	cpu.instructions[0x00] = &Instruction{"BRK", 0x00, 1, Implied} // Bytes=1, but PC is handled specially

	// Unofficial NOPs
	cpu.instructions[0x1A] = &Instruction{"NOP", 0x1A, 1, Implied}
	cpu.instructions[0x3A] = &Instruction{"NOP", 0x3A, 1, Implied}
	cpu.instructions[0x5A] = &Instruction{"NOP", 0x5A, 1, Implied}
	cpu.instructions[0x7A] = &Instruction{"NOP", 0x7A, 1, Implied}
	cpu.instructions[0xDA] = &Instruction{"NOP", 0xDA, 1, Implied}
	cpu.instructions[0xFA] = &Instruction{"NOP", 0xFA, 1, Implied}
	cpu.instructions[0x80] = &Instruction{"NOP", 0x80, 2, Immediate}
	cpu.instructions[0x82] = &Instruction{"NOP", 0x82, 2, Immediate}
	cpu.instructions[0x89] = &Instruction{"NOP", 0x89, 2, Immediate}
	cpu.instructions[0xC2] = &Instruction{"NOP", 0xC2, 2, Immediate}
	cpu.instructions[0xE2] = &Instruction{"NOP", 0xE2, 2, Immediate}
	cpu.instructions[0x04] = &Instruction{"NOP", 0x04, 2, ZeroPage}
	cpu.instructions[0x44] = &Instruction{"NOP", 0x44, 2, ZeroPage}
	cpu.instructions[0x64] = &Instruction{"NOP", 0x64, 2, ZeroPage}
	cpu.instructions[0x14] = &Instruction{"NOP", 0x14, 2, ZeroPageX}
	cpu.instructions[0x34] = &Instruction{"NOP", 0x34, 2, ZeroPageX}
	cpu.instructions[0x54] = &Instruction{"NOP", 0x54, 2, ZeroPageX}
	cpu.instructions[0x74] = &Instruction{"NOP", 0x74, 2, ZeroPageX}
	cpu.instructions[0xD4] = &Instruction{"NOP", 0xD4, 2, ZeroPageX}
	cpu.instructions[0xF4] = &Instruction{"NOP", 0xF4, 2, ZeroPageX}
	cpu.instructions[0x0C] = &Instruction{"NOP", 0x0C, 3, Absolute}
	cpu.instructions[0x1C] = &Instruction{"NOP", 0x1C, 3, AbsoluteX}
	cpu.instructions[0x3C] = &Instruction{"NOP", 0x3C, 3, AbsoluteX}
	cpu.instructions[0x5C] = &Instruction{"NOP", 0x5C, 3, AbsoluteX}
	cpu.instructions[0x7C] = &Instruction{"NOP", 0x7C, 3, AbsoluteX}
	cpu.instructions[0xDC] = &Instruction{"NOP", 0xDC, 3, AbsoluteX}
	cpu.instructions[0xFC] = &Instruction{"NOP", 0xFC, 3, AbsoluteX}

	// Unofficial Opcodes
	cpu.instructions[0xA7] = &Instruction{"LAX", 0xA7, 2, ZeroPage}
	cpu.instructions[0xB7] = &Instruction{"LAX", 0xB7, 2, ZeroPageY}
	cpu.instructions[0xAF] = &Instruction{"LAX", 0xAF, 3, Absolute}
	cpu.instructions[0xBF] = &Instruction{"LAX", 0xBF, 3, AbsoluteY}
	cpu.instructions[0xA3] = &Instruction{"LAX", 0xA3, 2, IndexedIndirect}
	cpu.instructions[0xB3] = &Instruction{"LAX", 0xB3, 2, IndirectIndexed}

	cpu.instructions[0x87] = &Instruction{"SAX", 0x87, 2, ZeroPage}
	cpu.instructions[0x97] = &Instruction{"SAX", 0x97, 2, ZeroPageY}
	cpu.instructions[0x8F] = &Instruction{"SAX", 0x8F, 3, Absolute}
	cpu.instructions[0x83] = &Instruction{"SAX", 0x83, 2, IndexedIndirect}

	cpu.instructions[0xEB] = &Instruction{"SBC", 0xEB, 2, Immediate}

	cpu.instructions[0xC7] = &Instruction{"DCP", 0xC7, 2, ZeroPage}
	cpu.instructions[0xD7] = &Instruction{"DCP", 0xD7, 2, ZeroPageX}
	cpu.instructions[0xCF] = &Instruction{"DCP", 0xCF, 3, Absolute}
	cpu.instructions[0xDF] = &Instruction{"DCP", 0xDF, 3, AbsoluteX}
	cpu.instructions[0xDB] = &Instruction{"DCP", 0xDB, 3, AbsoluteY}
	cpu.instructions[0xC3] = &Instruction{"DCP", 0xC3, 2, IndexedIndirect}
	cpu.instructions[0xD3] = &Instruction{"DCP", 0xD3, 2, IndirectIndexed}

	cpu.instructions[0xE7] = &Instruction{"ISB", 0xE7, 2, ZeroPage}
	cpu.instructions[0xF7] = &Instruction{"ISB", 0xF7, 2, ZeroPageX}
	cpu.instructions[0xEF] = &Instruction{"ISB", 0xEF, 3, Absolute}
	cpu.instructions[0xFF] = &Instruction{"ISB", 0xFF, 3, AbsoluteX}
	cpu.instructions[0xFB] = &Instruction{"ISB", 0xFB, 3, AbsoluteY}
	cpu.instructions[0xE3] = &Instruction{"ISB", 0xE3, 2, IndexedIndirect}
	cpu.instructions[0xF3] = &Instruction{"ISB", 0xF3, 2, IndirectIndexed}

	cpu.instructions[0x07] = &Instruction{"SLO", 0x07, 2, ZeroPage}
	cpu.instructions[0x17] = &Instruction{"SLO", 0x17, 2, ZeroPageX}
	cpu.instructions[0x0F] = &Instruction{"SLO", 0x0F, 3, Absolute}
	cpu.instructions[0x1F] = &Instruction{"SLO", 0x1F, 3, AbsoluteX}
	cpu.instructions[0x1B] = &Instruction{"SLO", 0x1B, 3, AbsoluteY}
	cpu.instructions[0x03] = &Instruction{"SLO", 0x03, 2, IndexedIndirect}
	cpu.instructions[0x13] = &Instruction{"SLO", 0x13, 2, IndirectIndexed}

	cpu.instructions[0x27] = &Instruction{"RLA", 0x27, 2, ZeroPage}
	cpu.instructions[0x37] = &Instruction{"RLA", 0x37, 2, ZeroPageX}
	cpu.instructions[0x2F] = &Instruction{"RLA", 0x2F, 3, Absolute}
	cpu.instructions[0x3F] = &Instruction{"RLA", 0x3F, 3, AbsoluteX}
	cpu.instructions[0x3B] = &Instruction{"RLA", 0x3B, 3, AbsoluteY}
	cpu.instructions[0x23] = &Instruction{"RLA", 0x23, 2, IndexedIndirect}
	cpu.instructions[0x33] = &Instruction{"RLA", 0x33, 2, IndirectIndexed}

	cpu.instructions[0x47] = &Instruction{"SRE", 0x47, 2, ZeroPage}
	cpu.instructions[0x57] = &Instruction{"SRE", 0x57, 2, ZeroPageX}
	cpu.instructions[0x4F] = &Instruction{"SRE", 0x4F, 3, Absolute}
	cpu.instructions[0x5F] = &Instruction{"SRE", 0x5F, 3, AbsoluteX}
	cpu.instructions[0x5B] = &Instruction{"SRE", 0x5B, 3, AbsoluteY}
	cpu.instructions[0x43] = &Instruction{"SRE", 0x43, 2, IndexedIndirect}
	cpu.instructions[0x53] = &Instruction{"SRE", 0x53, 2, IndirectIndexed}

	cpu.instructions[0x67] = &Instruction{"RRA", 0x67, 2, ZeroPage}
	cpu.instructions[0x77] = &Instruction{"RRA", 0x77, 2, ZeroPageX}
	cpu.instructions[0x6F] = &Instruction{"RRA", 0x6F, 3, Absolute}
	cpu.instructions[0x7F] = &Instruction{"RRA", 0x7F, 3, AbsoluteX}
	cpu.instructions[0x7B] = &Instruction{"RRA", 0x7B, 3, AbsoluteY}
	cpu.instructions[0x63] = &Instruction{"RRA", 0x63, 2, IndexedIndirect}
	cpu.instructions[0x73] = &Instruction{"RRA", 0x73, 2, IndirectIndexed}
}

// CPU Debug Methods

// EnableDebugLogging enables/disables CPU instruction logging
func (cpu *CPU) EnableDebugLogging(enable bool) {
	cpu.enableDebugLogging = enable
}

// EnableLoopDetection enables/disables infinite loop detection
func (cpu *CPU) EnableLoopDetection(enable bool) {
	cpu.enableLoopDetection = enable
}

// detectInfiniteLoop detects when CPU is stuck at the same PC
func (cpu *CPU) detectInfiniteLoop(pc uint16, opcode uint8) {
	if pc == cpu.lastPC {
		cpu.pcStayCount++
		if cpu.pcStayCount > 100 { // Lower threshold for faster detection
			fmt.Printf("[CPU_LOOP] CPU stuck at PC=$%04X executing opcode=0x%02X for %d cycles\n",
				pc, opcode, cpu.pcStayCount)
			if cpu.pcStayCount%1000 == 0 { // Log every 1000 cycles
				cpu.logCPUState(pc, opcode)
			}
		}
	} else {
		cpu.pcStayCount = 0
	}
	cpu.lastPC = pc
}

// logInstruction logs CPU instruction execution
func (cpu *CPU) logInstruction(pc uint16, opcode uint8, instruction *Instruction) {
	name := "UNK"
	if instruction != nil {
		name = instruction.Name
	}
	
	fmt.Printf("[CPU_DEBUG] PC=$%04X: %s (0x%02X) | A=$%02X X=$%02X Y=$%02X SP=$%02X | %s\n",
		pc, name, opcode, cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.getFlagsString())
}

// logCPUState logs detailed CPU state during infinite loops
func (cpu *CPU) logCPUState(pc uint16, opcode uint8) {
	instruction := cpu.instructions[opcode]
	name := "UNK"
	if instruction != nil {
		name = instruction.Name
	}
	
	// Read memory around PC for context
	mem1 := cpu.read(pc + 1)
	mem2 := cpu.read(pc + 2)
	
	fmt.Printf("[CPU_STATE] PC=$%04X: %s (0x%02X %02X %02X) | A=$%02X X=$%02X Y=$%02X SP=$%02X | %s | Cycles=%d\n",
		pc, name, opcode, mem1, mem2, cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.getFlagsString(), cpu.cycles)
}

// getFlagsString returns CPU flags as string
func (cpu *CPU) getFlagsString() string {
	flags := ""
	if cpu.N { flags += "N" } else { flags += "-" }
	if cpu.V { flags += "V" } else { flags += "-" }
	flags += "-" // Unused flag
	if cpu.B { flags += "B" } else { flags += "-" }
	if cpu.D { flags += "D" } else { flags += "-" }
	if cpu.I { flags += "I" } else { flags += "-" }
	if cpu.Z { flags += "Z" } else { flags += "-" }
	if cpu.C { flags += "C" } else { flags += "-" }
	return flags
}
