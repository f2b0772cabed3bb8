package main

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/io"
)

// Terminal hosts the emulator on a raw mode terminal: keystrokes feed
// the keyboard, and frames are drawn in place with ANSI escapes.
type Terminal struct {
	Keyboard *io.Keyboard
	Screen   *io.Text
	Bell     *io.Bell

	input   *os.File
	output  *os.File
	fd      int
	state   *term.State
	stopped sync.Once
}

// NewTerminal checks that the terminal can hold the display.
func NewTerminal(input *os.File, output *os.File) (host *Terminal, err error) {
	fd := int(input.Fd())
	if !term.IsTerminal(fd) {
		err = ErrNotTerminal(input.Name())
		return
	}

	width, height, err := term.GetSize(int(output.Fd()))
	if err != nil {
		return
	}

	if width < cpu.DISPLAY_WIDTH || height < cpu.DISPLAY_HEIGHT/2 {
		err = &ErrTerminalSize{Width: width, Height: height}
		return
	}

	host = &Terminal{
		Keyboard: io.NewKeyboard(),
		Screen:   &io.Text{Output: output, Ansi: true},
		Bell:     &io.Bell{Output: output},
		input:    input,
		output:   output,
		fd:       fd,
	}

	return
}

// Start puts the terminal in raw mode, and begins reading keystrokes in
// a goroutine. Call Stop to restore the terminal.
func (host *Terminal) Start() {
	state, err := term.MakeRaw(host.fd)
	if err != nil {
		fmt.Fprintln(os.Stderr, f("terminal: failed to set raw mode: %v", err))
	} else {
		host.state = state
	}

	// Clear the screen, and hide the cursor.
	fmt.Fprint(host.output, "\033[2J\033[?25l")

	go func() {
		buf := make([]byte, 16)
		for {
			n, err := host.input.Read(buf)
			if n > 0 {
				host.Keyboard.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop restores the terminal. The reader goroutine is left blocked on
// its read, and ends with the process.
func (host *Terminal) Stop() {
	host.stopped.Do(func() {
		fmt.Fprint(host.output, "\033[?25h\r\n")
		if host.state != nil {
			_ = term.Restore(host.fd, host.state)
			host.state = nil
		}
	})
}
