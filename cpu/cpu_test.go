package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedRandom always returns the same value.
type fixedRandom uint32

func (fr fixedRandom) Uint32() uint32 {
	return uint32(fr)
}

// newTestCpu loads the program words at PROGRAM_START.
func newTestCpu(t *testing.T, words ...uint16) *Cpu {
	image := make([]byte, 0, 2*len(words))
	for _, word := range words {
		image = append(image, byte(word>>8), byte(word))
	}

	cpu := NewCpu()
	cpu.Random = fixedRandom(0xa5)
	err := cpu.Load(image)
	assert.NoError(t, err)

	return cpu
}

func runTicks(t *testing.T, cpu *Cpu, count int) {
	for range count {
		err := cpu.Tick()
		if err != nil {
			t.Log(cpu.String())
			t.Fatalf("%v", err)
		}
	}
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()

	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.Equal(Font[:], cpu.Memory[FONT_START:FONT_START+len(Font)])
	assert.True(cpu.Stack.Empty())
	assert.Equal([16]byte{}, cpu.V)

	cpu.V[3] = 9
	cpu.Delay = 4
	cpu.Display.Pixel[10] = true
	cpu.Reset()
	assert.Equal(byte(0), cpu.V[3])
	assert.Equal(byte(0), cpu.Delay)
	assert.False(cpu.Display.Pixel[10])
}

func TestCpuLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	err := cpu.Load([]byte{0x12, 0x34})
	assert.NoError(err)
	assert.Equal(byte(0x12), cpu.Memory[PROGRAM_START])
	assert.Equal(byte(0x34), cpu.Memory[PROGRAM_START+1])

	err = cpu.Load(make([]byte, PROGRAM_SIZE_MAX))
	assert.NoError(err)

	err = cpu.Load(make([]byte, PROGRAM_SIZE_MAX+1))
	assert.ErrorIs(err, ErrImageTooLarge)
}

func TestCpuLoadAdd(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x6102, 0x7105)
	runTicks(t, cpu, 2)

	assert.Equal(byte(7), cpu.V[1])
	assert.Equal(uint16(0x204), cpu.Pc)
	assert.Equal(2, cpu.Ticks)
}

func TestCpuAddImmediate(t *testing.T) {
	assert := assert.New(t)

	for _, r := range []byte{0x00, 0x01, 0x7f, 0x80, 0xfe, 0xff} {
		for _, k := range []byte{0x00, 0x01, 0x7f, 0x80, 0xff} {
			cpu := newTestCpu(t, 0x7300|uint16(k))
			cpu.V[3] = r
			cpu.V[REG_VF] = 0x42
			runTicks(t, cpu, 1)
			assert.Equal(byte((int(r)+int(k))%256), cpu.V[3])
			assert.Equal(byte(0x42), cpu.V[REG_VF])
		}
	}
}

func TestCpuCallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x2208, 0x0000, 0x0000, 0x0000, 0x00ee)

	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x208), cpu.Pc)
	assert.Equal(1, cpu.Stack.Depth)

	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x202), cpu.Pc)
	assert.Equal(0, cpu.Stack.Depth)
}

func TestCpuCallReturnIgnoresX(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x2204, 0x0000, 0x0fee)
	runTicks(t, cpu, 2)
	assert.Equal(uint16(0x202), cpu.Pc)
	assert.True(cpu.Stack.Empty())
}

func TestCpuStackOverflow(t *testing.T) {
	assert := assert.New(t)

	// call 0x200, forever.
	cpu := newTestCpu(t, 0x2200)
	runTicks(t, cpu, STACK_LIMIT)
	assert.True(cpu.Stack.Full())

	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.ErrorIs(err, ErrOpcode(0x2200))
	assert.Equal(STACK_LIMIT, cpu.Stack.Depth)
}

func TestCpuStackUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x00ee)
	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.True(cpu.Stack.Empty())
}

func TestCpuPcRange(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x1fff)
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0xfff), cpu.Pc)

	err := cpu.Tick()
	assert.ErrorIs(err, ErrPcRange)
}

func TestCpuPcRangeLowOdd(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		word uint16
		pc   uint16
	}){
		{"font", 0x1000, 0x000},
		{"reserved", 0x11fe, 0x1fe},
		{"odd", 0x1201, 0x201},
		{"last", 0x1fff, 0xfff},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, entry.word)
		runTicks(t, cpu, 1)
		assert.Equal(entry.pc, cpu.Pc, entry.name)

		err := cpu.Tick()
		assert.ErrorIs(err, ErrPcRange, entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
		assert.Equal(1, cpu.Ticks, entry.name)
	}

	// The last even word in memory still executes.
	cpu := newTestCpu(t, 0x1ffe)
	runTicks(t, cpu, 2)
	assert.Equal(uint16(0x1000), cpu.Pc)
}

func TestCpuSkips(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		word  uint16
		vx    byte
		vy    byte
		skips bool
	}){
		{"se_imm_eq", 0x3142, 0x42, 0, true},
		{"se_imm_ne", 0x3142, 0x41, 0, false},
		{"sne_imm_eq", 0x4142, 0x42, 0, false},
		{"sne_imm_ne", 0x4142, 0x41, 0, true},
		{"se_reg_eq", 0x5120, 7, 7, true},
		{"se_reg_ne", 0x5120, 7, 8, false},
		{"se_reg_nibble", 0x5121, 7, 7, false},
		{"sne_reg_eq", 0x9120, 7, 7, false},
		{"sne_reg_ne", 0x9120, 7, 8, true},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, entry.word)
		cpu.V[1] = entry.vx
		cpu.V[2] = entry.vy
		runTicks(t, cpu, 1)

		expected := uint16(0x202)
		if entry.skips {
			expected = 0x204
		}
		assert.Equal(expected, cpu.Pc, entry.name)
	}
}

func TestCpuAlu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		word   uint16
		vx     byte
		vy     byte
		result byte
		vf     byte
	}){
		{"ld", 0x8120, 0x11, 0x22, 0x22, 0x99},
		{"or", 0x8121, 0x0f, 0xf0, 0xff, 0x99},
		{"and", 0x8122, 0x3c, 0x0f, 0x0c, 0x99},
		{"xor", 0x8123, 0xff, 0x0f, 0xf0, 0x99},
		{"add", 0x8124, 0x10, 0x20, 0x30, 0},
		{"add_max", 0x8124, 0xff, 0x00, 0xff, 0},
		{"add_carry", 0x8124, 0xff, 0x01, 0x00, 1},
		{"add_carry_big", 0x8124, 0xf0, 0xf0, 0xe0, 1},
		{"sub", 0x8125, 0x30, 0x10, 0x20, 1},
		{"sub_equal", 0x8125, 0x30, 0x30, 0x00, 1},
		{"sub_borrow", 0x8125, 0x10, 0x30, 0xe0, 0},
		{"shr_even", 0x8126, 0x84, 0x00, 0x42, 0},
		{"shr_odd", 0x8126, 0x85, 0x00, 0x42, 1},
		{"subn", 0x8127, 0x10, 0x30, 0x20, 1},
		{"subn_equal", 0x8127, 0x30, 0x30, 0x00, 1},
		{"subn_borrow", 0x8127, 0x30, 0x10, 0xe0, 0},
		{"shl_low", 0x812e, 0x41, 0x00, 0x82, 0},
		{"shl_high", 0x812e, 0xc1, 0x00, 0x82, 1},
	}

	for _, entry := range table {
		cpu := newTestCpu(t, entry.word)
		cpu.V[1] = entry.vx
		cpu.V[2] = entry.vy
		cpu.V[REG_VF] = 0x99
		runTicks(t, cpu, 1)

		assert.Equal(entry.result, cpu.V[1], entry.name)
		assert.Equal(entry.vf, cpu.V[REG_VF], entry.name)
		assert.Equal(uint16(0x202), cpu.Pc, entry.name)
	}
}

func TestCpuAluFlagRegister(t *testing.T) {
	assert := assert.New(t)

	// vf as the target: the result replaces the flag.
	cpu := newTestCpu(t, 0x8f15)
	cpu.V[REG_VF] = 0x30
	cpu.V[1] = 0x10
	runTicks(t, cpu, 1)
	assert.Equal(byte(0x20), cpu.V[REG_VF])

	// vf as the source: the operand is read before the flag is set.
	cpu = newTestCpu(t, 0x81f4)
	cpu.V[1] = 0xff
	cpu.V[REG_VF] = 0x02
	runTicks(t, cpu, 1)
	assert.Equal(byte(0x01), cpu.V[1])
	assert.Equal(byte(1), cpu.V[REG_VF])
}

func TestCpuIndex(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0xa20a, 0xf11e)
	cpu.V[1] = 0x05

	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x20a), cpu.I)

	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x20f), cpu.I)
}

func TestCpuJumps(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x1234)
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x234), cpu.Pc)

	cpu = newTestCpu(t, 0xb300)
	cpu.V[0] = 0x20
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x320), cpu.Pc)

	// V0 + nnn past the address space wraps into it.
	cpu = newTestCpu(t, 0xbff0)
	cpu.V[0] = 0x20
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x010), cpu.Pc)
}

func TestCpuRandom(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0xc30f, 0xc4ff)
	cpu.Random = fixedRandom(0x12345678)
	runTicks(t, cpu, 2)

	assert.Equal(byte(0x08), cpu.V[3])
	assert.Equal(byte(0x78), cpu.V[4])
}

func TestCpuDrawGlyph(t *testing.T) {
	assert := assert.New(t)

	// ld f, v0 ; drw v1, v1, 5
	cpu := newTestCpu(t, 0xf029, 0xd115)
	runTicks(t, cpu, 2)

	assert.Equal(uint16(0), cpu.I)
	assert.Equal(byte(0), cpu.V[REG_VF])

	row := cpu.Display.Row(0)
	assert.Equal([]bool{true, true, true, true, false, false, false, false}, row[:8])
	row = cpu.Display.Row(1)
	assert.Equal([]bool{true, false, false, true, false, false, false, false}, row[:8])
}

func TestCpuDrawTwice(t *testing.T) {
	assert := assert.New(t)

	// ld f, v0 ; drw v1, v2, 5 ; drw v1, v2, 5
	cpu := newTestCpu(t, 0xf029, 0xd125, 0xd125)
	cpu.V[1] = 10
	cpu.V[2] = 3

	runTicks(t, cpu, 2)
	assert.Equal(byte(0), cpu.V[REG_VF])
	assert.True(cpu.Display.At(10, 3))

	runTicks(t, cpu, 1)
	assert.Equal(byte(1), cpu.V[REG_VF])
	assert.Equal(Display{}, cpu.Display)
}

func TestCpuClear(t *testing.T) {
	assert := assert.New(t)

	// The x nibble of 0x0_e0 is ignored.
	for _, word := range []uint16{0x00e0, 0x01e0, 0x0fe0} {
		cpu := newTestCpu(t, word)
		for n := range cpu.Display.Pixel {
			cpu.Display.Pixel[n] = n%3 == 0
		}
		runTicks(t, cpu, 1)
		assert.Equal(Display{}, cpu.Display, "%04x", word)
	}
}

func TestCpuKeys(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0xe59e)
	cpu.V[5] = 0xa
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x202), cpu.Pc)

	cpu = newTestCpu(t, 0xe59e)
	cpu.V[5] = 0xa
	cpu.Keypad[0xa] = true
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x204), cpu.Pc)

	cpu = newTestCpu(t, 0xe5a1)
	cpu.V[5] = 0xa
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x204), cpu.Pc)

	cpu = newTestCpu(t, 0xe5a1)
	cpu.V[5] = 0xa
	cpu.Keypad[0xa] = true
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x202), cpu.Pc)
}

func TestCpuAwaitKey(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0xf30a)
	cpu.Delay = 5

	for range 10 {
		runTicks(t, cpu, 1)
		assert.Equal(uint16(0x200), cpu.Pc)
	}
	assert.Equal(byte(0), cpu.V[3])
	assert.Equal(byte(5), cpu.Delay)

	cpu.Keypad[0xc] = true
	cpu.Keypad[0x7] = true
	runTicks(t, cpu, 1)
	assert.Equal(uint16(0x202), cpu.Pc)
	assert.Equal(byte(0x7), cpu.V[3])
}

func TestCpuTimers(t *testing.T) {
	assert := assert.New(t)

	// ld v1, 3 ; ld dt, v1 ; ld st, v1 ; ld v2, dt
	cpu := newTestCpu(t, 0x6103, 0xf115, 0xf118, 0xf207)
	runTicks(t, cpu, 4)
	assert.Equal(byte(3), cpu.Delay)
	assert.Equal(byte(3), cpu.Sound)
	assert.Equal(byte(3), cpu.V[2])

	cpu.Sound = 1
	for range 300 {
		cpu.TickTimers()
	}
	assert.Equal(byte(0), cpu.Delay)
	assert.Equal(byte(0), cpu.Sound)
}

func TestCpuTimerTick(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Delay = 2
	cpu.Sound = 1

	cpu.TickTimers()
	assert.Equal(byte(1), cpu.Delay)
	assert.Equal(byte(0), cpu.Sound)

	cpu.TickTimers()
	assert.Equal(byte(0), cpu.Delay)
	assert.Equal(byte(0), cpu.Sound)
}

func TestCpuBcd(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0xa300, 0xf233)
	cpu.V[2] = 156
	runTicks(t, cpu, 2)

	assert.Equal([]byte{1, 5, 6}, cpu.Memory[0x300:0x303])
}

func TestCpuRegisterDumpLoad(t *testing.T) {
	assert := assert.New(t)

	// ld i, 0x400 ; ld [i], v3 ; ld i, 0x500 ; ld v2, [i]
	cpu := newTestCpu(t, 0xa400, 0xf355, 0xa500, 0xf265)
	cpu.V = [16]byte{1, 2, 3, 4, 5, 6}
	copy(cpu.Memory[0x500:], []byte{9, 8, 7, 6})

	runTicks(t, cpu, 2)
	assert.Equal([]byte{1, 2, 3, 4, 0}, cpu.Memory[0x400:0x405])
	assert.Equal(uint16(0x400), cpu.I)

	runTicks(t, cpu, 2)
	assert.Equal([16]byte{9, 8, 7, 4, 5, 6}, cpu.V)
}

func TestCpuUnknown(t *testing.T) {
	assert := assert.New(t)

	for _, word := range []uint16{0x0000, 0x0123, 0x5121, 0x8128, 0x812f, 0xe1ff, 0xf1ff} {
		cpu := newTestCpu(t, word)
		before := *cpu
		runTicks(t, cpu, 1)

		assert.Equal(uint16(0x202), cpu.Pc, "%04x", word)
		cpu.Pc = before.Pc
		cpu.Ticks = before.Ticks
		assert.Equal(before.V, cpu.V, "%04x", word)
		assert.Equal(before.Memory, cpu.Memory, "%04x", word)
		assert.Equal(before.Display, cpu.Display, "%04x", word)
	}
}

func TestCpuTrace(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x6102, 0x8128)

	var pcs []uint16
	var ops []Operation
	cpu.Trace = func(pc uint16, inst Instruction) {
		pcs = append(pcs, pc)
		ops = append(ops, inst.Op)
	}
	runTicks(t, cpu, 2)

	assert.Equal([]uint16{0x200, 0x202}, pcs)
	assert.Equal([]Operation{OP_LD_IMM, OP_UNKNOWN}, ops)
}

func TestCpuErrorOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, 0x00ee)
	err := cpu.Tick()

	var eo ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(ErrOpcode(0x00ee), eo)
	assert.Contains(err.Error(), "ret")
}
