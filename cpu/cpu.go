// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	MEMORY_SIZE      = 4096                        // Bytes of addressable memory.
	ADDRESS_MASK     = MEMORY_SIZE - 1             // Mask applied to memory addresses.
	PROGRAM_START    = 0x200                       // Load address of the program image.
	PROGRAM_SIZE_MAX = MEMORY_SIZE - PROGRAM_START // Largest loadable program image.
	FONT_START       = 0x000                       // Load address of the font table.
	FONT_GLYPH_SIZE  = 5                           // Bytes per font glyph.
	KEY_COUNT        = 16                          // Keys on the keypad.
	REG_VF           = 0xf                         // Flag register index.
)

// Font is the hexadecimal digit sprite table, 0 through F.
var Font = [16 * FONT_GLYPH_SIZE]byte{
	0xf0, 0x90, 0x90, 0x90, 0xf0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xf0, 0x10, 0xf0, 0x80, 0xf0, // 2
	0xf0, 0x10, 0xf0, 0x10, 0xf0, // 3
	0x90, 0x90, 0xf0, 0x10, 0x10, // 4
	0xf0, 0x80, 0xf0, 0x10, 0xf0, // 5
	0xf0, 0x80, 0xf0, 0x90, 0xf0, // 6
	0xf0, 0x10, 0x20, 0x40, 0x40, // 7
	0xf0, 0x90, 0xf0, 0x90, 0xf0, // 8
	0xf0, 0x90, 0xf0, 0x10, 0xf0, // 9
	0xf0, 0x90, 0xf0, 0x90, 0x90, // A
	0xe0, 0x90, 0xe0, 0x90, 0xe0, // B
	0xf0, 0x80, 0x80, 0x80, 0xf0, // C
	0xe0, 0x90, 0x90, 0x90, 0xe0, // D
	0xf0, 0x80, 0xf0, 0x80, 0xf0, // E
	0xf0, 0x80, 0xf0, 0x80, 0x80, // F
}

var _cpu_defines = map[string]string{
	"PROGRAM_START":   fmt.Sprintf("%#x", PROGRAM_START),
	"FONT_START":      fmt.Sprintf("%#x", FONT_START),
	"FONT_GLYPH_SIZE": fmt.Sprintf("%v", FONT_GLYPH_SIZE),
	"DISPLAY_WIDTH":   fmt.Sprintf("%v", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT":  fmt.Sprintf("%v", DISPLAY_HEIGHT),
}

// Random supplies the bytes for the rnd instruction.
type Random interface {
	Uint32() uint32
}

// Cpu is the complete interpreter state.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   [MEMORY_SIZE]byte // Main memory.
	V        [16]byte          // V0-VF general registers.
	I        uint16            // Index register.
	Pc       uint16            // Program counter.
	Stack    Stack             // Return address stack.
	Display  Display           // Framebuffer.
	Keypad   [KEY_COUNT]bool   // Pressed keys, written by the host.
	Delay    byte              // Delay timer.
	Sound    byte              // Sound timer.
	Random   Random            // Source for rnd.
	Ticks    int               // Instructions executed since reset.
	Trace    func(pc uint16, inst Instruction)
}

// NewCpu creates a reset CPU with a time seeded random source.
func NewCpu() (cpu *Cpu) {
	seed := uint64(time.Now().UnixNano())
	cpu = &Cpu{
		Random: rand.New(rand.NewPCG(seed, seed>>32)),
	}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() string {
	var text strings.Builder

	fmt.Fprintf(&text, "   pc: %03X\n", cpu.Pc)
	fmt.Fprintf(&text, "    i: %03X\n", cpu.I)
	for n, val := range cpu.V {
		fmt.Fprintf(&text, "   v%X: %02X\n", n, val)
	}
	if val, ok := cpu.Stack.Peek(); ok {
		fmt.Fprintf(&text, "stack: %03X (%d)\n", val, cpu.Stack.Depth)
	} else {
		fmt.Fprintf(&text, "stack: --- (0)\n")
	}
	fmt.Fprintf(&text, "   dt: %02X\n", cpu.Delay)
	fmt.Fprintf(&text, "   st: %02X\n", cpu.Sound)

	return text.String()
}

// Reset the CPU state.
// - Clears memory, registers, stack, display, keypad and timers.
// - Installs the font table.
// - Sets the program counter to the program start.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.V[:])
	clear(cpu.Keypad[:])
	cpu.Stack.Reset()
	cpu.Display.Clear()
	cpu.I = 0
	cpu.Delay = 0
	cpu.Sound = 0
	cpu.Ticks = 0

	copy(cpu.Memory[FONT_START:], Font[:])
	cpu.Pc = PROGRAM_START
}

// Load resets the CPU and copies a program image to the program start.
func (cpu *Cpu) Load(image []byte) (err error) {
	if len(image) > PROGRAM_SIZE_MAX {
		err = ErrImageTooLarge
		return
	}

	cpu.Reset()
	copy(cpu.Memory[PROGRAM_START:], image)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(image))
	}

	return
}

// Fetch reads the big-endian instruction word at the program counter.
// The program counter must be even, and lie between the program start and
// the last word of memory.
func (cpu *Cpu) Fetch() (word uint16, err error) {
	if cpu.Pc < PROGRAM_START || int(cpu.Pc) > MEMORY_SIZE-2 || cpu.Pc&1 != 0 {
		err = ErrPcRange
		return
	}

	word = uint16(cpu.Memory[cpu.Pc])<<8 | uint16(cpu.Memory[cpu.Pc+1])
	return
}

// Tick fetches, decodes and executes a single instruction.
func (cpu *Cpu) Tick() (err error) {
	word, err := cpu.Fetch()
	if err != nil {
		return
	}

	pc := cpu.Pc
	cpu.Pc += 2
	cpu.Ticks++

	inst := Decode(word)
	if cpu.Trace != nil {
		cpu.Trace(pc, inst)
	}

	err = cpu.Execute(inst)
	return
}

// TickTimers decrements the delay and sound timers, stopping at zero.
func (cpu *Cpu) TickTimers() {
	if cpu.Delay > 0 {
		cpu.Delay--
	}
	if cpu.Sound > 0 {
		cpu.Sound--
	}
}

// mem returns the memory cell at I + offset.
func (cpu *Cpu) mem(offset int) *byte {
	return &cpu.Memory[(int(cpu.I)+offset)&ADDRESS_MASK]
}

// skipIf advances past the next instruction when cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// Execute executes a single decoded instruction.
// The program counter must already point past the instruction.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(inst.Word), err)
		}
	}()

	v := &cpu.V
	x, y := inst.X, inst.Y

	switch inst.Op {
	case OP_CLS:
		cpu.Display.Clear()
	case OP_RET:
		pc, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		cpu.Pc = pc
	case OP_JP:
		cpu.Pc = inst.Addr
	case OP_CALL:
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackOverflow
			return
		}
		cpu.Pc = inst.Addr
	case OP_SE_IMM:
		cpu.skipIf(v[x] == inst.Byte)
	case OP_SNE_IMM:
		cpu.skipIf(v[x] != inst.Byte)
	case OP_SE_REG:
		cpu.skipIf(v[x] == v[y])
	case OP_LD_IMM:
		v[x] = inst.Byte
	case OP_ADD_IMM:
		v[x] += inst.Byte
	case OP_LD_REG:
		v[x] = v[y]
	case OP_OR:
		v[x] |= v[y]
	case OP_AND:
		v[x] &= v[y]
	case OP_XOR:
		v[x] ^= v[y]
	case OP_ADD_REG:
		sum := uint16(v[x]) + uint16(v[y])
		v[REG_VF] = flag(sum > 0xff)
		v[x] = byte(sum)
	case OP_SUB:
		a, b := v[x], v[y]
		v[REG_VF] = flag(a >= b)
		v[x] = a - b
	case OP_SHR:
		a := v[x]
		v[REG_VF] = a & 0x01
		v[x] = a >> 1
	case OP_SUBN:
		a, b := v[x], v[y]
		v[REG_VF] = flag(a <= b)
		v[x] = b - a
	case OP_SHL:
		a := v[x]
		v[REG_VF] = a >> 7
		v[x] = a << 1
	case OP_SNE_REG:
		cpu.skipIf(v[x] != v[y])
	case OP_LD_I:
		cpu.I = inst.Addr
	case OP_JP_V0:
		cpu.Pc = (uint16(v[0]) + inst.Addr) & ADDRESS_MASK
	case OP_RND:
		v[x] = byte(cpu.Random.Uint32()) & inst.Byte
	case OP_DRW:
		sprite := make([]byte, inst.N)
		for n := range sprite {
			sprite[n] = *cpu.mem(n)
		}
		v[REG_VF] = flag(cpu.Display.Draw(sprite, v[x], v[y]))
	case OP_SKP:
		cpu.skipIf(cpu.Keypad[v[x]&0xf])
	case OP_SKNP:
		cpu.skipIf(!cpu.Keypad[v[x]&0xf])
	case OP_LD_VX_DT:
		v[x] = cpu.Delay
	case OP_LD_VX_K:
		for key, pressed := range cpu.Keypad {
			if pressed {
				v[x] = byte(key)
				return
			}
		}
		// Nothing pressed: run this instruction again next tick.
		cpu.Pc -= 2
	case OP_LD_DT_VX:
		cpu.Delay = v[x]
	case OP_LD_ST_VX:
		cpu.Sound = v[x]
	case OP_ADD_I:
		cpu.I += uint16(v[x])
	case OP_LD_F:
		cpu.I = FONT_START + uint16(v[x])*FONT_GLYPH_SIZE
	case OP_LD_B:
		*cpu.mem(0) = v[x] / 100
		*cpu.mem(1) = (v[x] / 10) % 10
		*cpu.mem(2) = v[x] % 10
	case OP_LD_MEM_VX:
		for n := 0; n <= int(x); n++ {
			*cpu.mem(n) = v[n]
		}
	case OP_LD_VX_MEM:
		for n := 0; n <= int(x); n++ {
			v[n] = *cpu.mem(n)
		}
	default:
		if cpu.Verbose {
			log.Printf("cpu: %03x: ignoring opcode 0x%04x", cpu.Pc-2, inst.Word)
		}
	}

	return
}

func flag(cond bool) byte {
	if cond {
		return 1
	}
	return 0
}
