package cpu

import (
	"fmt"
)

//go:generate go tool stringer -linecomment -type=Operation

// Operation is the decoded class of an instruction word.
type Operation int

const (
	OP_UNKNOWN  = Operation(iota) // unknown
	OP_CLS                        // cls
	OP_RET                        // ret
	OP_JP                         // jp
	OP_CALL                       // call
	OP_SE_IMM                     // se
	OP_SNE_IMM                    // sne
	OP_SE_REG                     // se
	OP_LD_IMM                     // ld
	OP_ADD_IMM                    // add
	OP_LD_REG                     // ld
	OP_OR                         // or
	OP_AND                        // and
	OP_XOR                        // xor
	OP_ADD_REG                    // add
	OP_SUB                        // sub
	OP_SHR                        // shr
	OP_SUBN                       // subn
	OP_SHL                        // shl
	OP_SNE_REG                    // sne
	OP_LD_I                       // ld
	OP_JP_V0                      // jp
	OP_RND                        // rnd
	OP_DRW                        // drw
	OP_SKP                        // skp
	OP_SKNP                       // sknp
	OP_LD_VX_DT                   // ld
	OP_LD_VX_K                    // ld
	OP_LD_DT_VX                   // ld
	OP_LD_ST_VX                   // ld
	OP_ADD_I                      // add
	OP_LD_F                       // ld
	OP_LD_B                       // ld
	OP_LD_MEM_VX                  // ld
	OP_LD_VX_MEM                  // ld
)

// Instruction is a decoded instruction word and its operand fields.
type Instruction struct {
	Op   Operation
	Word uint16 // Full instruction word.
	Addr uint16 // nnn: low 12 bits.
	Byte byte   // kk: low 8 bits.
	N    byte   // n: low 4 bits.
	X    byte   // x: bits 8-11, register index.
	Y    byte   // y: bits 4-7, register index.
}

// Decode splits an instruction word into its fields and classifies it.
// Every word decodes; words that match no pattern are OP_UNKNOWN.
func Decode(word uint16) (inst Instruction) {
	inst = Instruction{
		Word: word,
		Addr: word & 0x0fff,
		Byte: byte(word & 0x00ff),
		N:    byte(word & 0x000f),
		X:    byte((word >> 8) & 0xf),
		Y:    byte((word >> 4) & 0xf),
	}
	inst.Op = classify(inst)

	return
}

func classify(inst Instruction) Operation {
	switch inst.Word >> 12 {
	case 0x0:
		// Dispatched on the low byte; the x nibble is ignored.
		switch inst.Byte {
		case 0xe0:
			return OP_CLS
		case 0xee:
			return OP_RET
		}
	case 0x1:
		return OP_JP
	case 0x2:
		return OP_CALL
	case 0x3:
		return OP_SE_IMM
	case 0x4:
		return OP_SNE_IMM
	case 0x5:
		// Only 5xy0 compares; other low nibbles are no-ops.
		if inst.N == 0 {
			return OP_SE_REG
		}
	case 0x6:
		return OP_LD_IMM
	case 0x7:
		return OP_ADD_IMM
	case 0x8:
		switch inst.N {
		case 0x0:
			return OP_LD_REG
		case 0x1:
			return OP_OR
		case 0x2:
			return OP_AND
		case 0x3:
			return OP_XOR
		case 0x4:
			return OP_ADD_REG
		case 0x5:
			return OP_SUB
		case 0x6:
			return OP_SHR
		case 0x7:
			return OP_SUBN
		case 0xe:
			return OP_SHL
		}
	case 0x9:
		return OP_SNE_REG
	case 0xa:
		return OP_LD_I
	case 0xb:
		return OP_JP_V0
	case 0xc:
		return OP_RND
	case 0xd:
		return OP_DRW
	case 0xe:
		switch inst.Byte {
		case 0x9e:
			return OP_SKP
		case 0xa1:
			return OP_SKNP
		}
	case 0xf:
		switch inst.Byte {
		case 0x07:
			return OP_LD_VX_DT
		case 0x0a:
			return OP_LD_VX_K
		case 0x15:
			return OP_LD_DT_VX
		case 0x18:
			return OP_LD_ST_VX
		case 0x1e:
			return OP_ADD_I
		case 0x29:
			return OP_LD_F
		case 0x33:
			return OP_LD_B
		case 0x55:
			return OP_LD_MEM_VX
		case 0x65:
			return OP_LD_VX_MEM
		}
	}

	return OP_UNKNOWN
}

// String returns the assembly language representation of this instruction.
// The text is accepted by the Assembler and encodes back to the same word,
// except for the don't-care nibble of 9xyn, and the don't-care x nibble of
// 0xe0 and 0xee (cls and ret assemble to 00e0 and 00ee).
func (inst Instruction) String() (out string) {
	name := inst.Op.String()
	x, y := inst.X, inst.Y

	switch inst.Op {
	case OP_CLS, OP_RET:
		out = name
	case OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03x", name, inst.Addr)
	case OP_SE_IMM, OP_SNE_IMM, OP_LD_IMM, OP_ADD_IMM, OP_RND:
		out = fmt.Sprintf("%v v%x, 0x%02x", name, x, inst.Byte)
	case OP_SE_REG, OP_SNE_REG, OP_LD_REG, OP_OR, OP_AND, OP_XOR,
		OP_ADD_REG, OP_SUB, OP_SHR, OP_SUBN, OP_SHL:
		out = fmt.Sprintf("%v v%x, v%x", name, x, y)
	case OP_LD_I:
		out = fmt.Sprintf("%v i, 0x%03x", name, inst.Addr)
	case OP_JP_V0:
		out = fmt.Sprintf("%v v0, 0x%03x", name, inst.Addr)
	case OP_DRW:
		out = fmt.Sprintf("%v v%x, v%x, %d", name, x, y, inst.N)
	case OP_SKP, OP_SKNP:
		out = fmt.Sprintf("%v v%x", name, x)
	case OP_LD_VX_DT:
		out = fmt.Sprintf("%v v%x, dt", name, x)
	case OP_LD_VX_K:
		out = fmt.Sprintf("%v v%x, k", name, x)
	case OP_LD_DT_VX:
		out = fmt.Sprintf("%v dt, v%x", name, x)
	case OP_LD_ST_VX:
		out = fmt.Sprintf("%v st, v%x", name, x)
	case OP_ADD_I:
		out = fmt.Sprintf("%v i, v%x", name, x)
	case OP_LD_F:
		out = fmt.Sprintf("%v f, v%x", name, x)
	case OP_LD_B:
		out = fmt.Sprintf("%v b, v%x", name, x)
	case OP_LD_MEM_VX:
		out = fmt.Sprintf("%v [i], v%x", name, x)
	case OP_LD_VX_MEM:
		out = fmt.Sprintf("%v v%x, [i]", name, x)
	default:
		out = fmt.Sprintf(".word 0x%04x", inst.Word)
	}

	return
}
