package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int
	Address   int
	Words     []string
	Bytes     []byte
	LinkLabel string
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug locates the listing entry that covers a memory address.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(address) >= op.Address && int(address) < op.Address+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(address) - op.Address,
			}
			break
		}
	}

	return
}

// Binary returns the program image, to be loaded at PROGRAM_START.
func (prog *Program) Binary() (image []byte) {
	for _, op := range prog.Opcodes {
		image = append(image, op.Bytes...)
	}

	return
}

// Instructions iterates over the decoded instruction words of the listing.
// Data directives are decoded as well; an odd sized entry drops its last byte.
func (prog *Program) Instructions() iter.Seq2[uint16, Instruction] {
	return func(yield func(address uint16, inst Instruction) bool) {
		for _, op := range prog.Opcodes {
			for n := 0; n+1 < len(op.Bytes); n += 2 {
				word := uint16(op.Bytes[n])<<8 | uint16(op.Bytes[n+1])
				if !yield(uint16(op.Address+n), Decode(word)) {
					return
				}
			}
		}
	}
}
