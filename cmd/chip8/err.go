package main

import (
	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/translate"
)

var f = translate.From

// ErrNotTerminal names a file that is not a terminal.
type ErrNotTerminal string

func (err ErrNotTerminal) Error() string {
	return f("%v: not a terminal", string(err))
}

// ErrTerminalSize indicates a terminal too small to hold the display.
type ErrTerminalSize struct {
	Width  int
	Height int
}

func (err *ErrTerminalSize) Error() string {
	return f("terminal %dx%d is smaller than %dx%d", err.Width, err.Height, cpu.DISPLAY_WIDTH, cpu.DISPLAY_HEIGHT/2)
}
