package emulator

import (
	"github.com/ezrec/chip8/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a fatal runtime error.
type ErrRuntime struct {
	Pc     uint16 // Address of the failing instruction.
	LineNo int    // Source line of the failing instruction, if known.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo > 0 {
		return f("line %d: pc 0x%03x: %v", err.LineNo, err.Pc, err.Err)
	}
	return f("pc 0x%03x: %v", err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrConfig indicates a timing configuration that cannot run.
type ErrConfig struct {
	InstructionsPerSecond int
	TickRate              int
}

func (err *ErrConfig) Error() string {
	return f("invalid timing: %d instructions per second at %d Hz", err.InstructionsPerSecond, err.TickRate)
}
