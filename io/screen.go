package io

import (
	"io"
	"strings"

	"github.com/ezrec/chip8/cpu"
)

// Text renders the display as text, two pixel rows per line of half
// block characters. Unchanged frames are not redrawn.
type Text struct {
	Output io.Writer
	Ansi   bool // Home the cursor before each frame, and end lines with CR LF.

	last  cpu.Display
	drawn bool
}

var _ Screen = (*Text)(nil)

var halfBlock = [4]string{" ", "▀", "▄", "█"}

// Render implements Screen.
func (tx *Text) Render(display *cpu.Display) (err error) {
	if tx.drawn && tx.last == *display {
		return
	}

	var text strings.Builder

	newline := "\n"
	if tx.Ansi {
		text.WriteString("\033[H")
		newline = "\r\n"
	}

	for row := 0; row < cpu.DISPLAY_HEIGHT; row += 2 {
		for col := range cpu.DISPLAY_WIDTH {
			var cell int
			if display.At(col, row) {
				cell |= 1
			}
			if display.At(col, row+1) {
				cell |= 2
			}
			text.WriteString(halfBlock[cell])
		}
		text.WriteString(newline)
	}

	_, err = io.WriteString(tx.Output, text.String())
	if err != nil {
		return
	}

	tx.last = *display
	tx.drawn = true

	return
}

// Bell rings the terminal bell when the sound timer starts.
type Bell struct {
	Output io.Writer
	Err    error // Last write error, if any.

	on bool
}

var _ Speaker = (*Bell)(nil)

// Sound implements Speaker.
func (bell *Bell) Sound(on bool) {
	if on && !bell.on {
		_, err := io.WriteString(bell.Output, "\a")
		if err != nil {
			bell.Err = err
		}
	}
	bell.on = on
}
