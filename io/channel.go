// Package io provides the host side collaborators of the CHIP-8 machine:
// program image loading, the keypad input source, the framebuffer screen,
// and the sound timer speaker.
package io

import (
	"github.com/ezrec/chip8/cpu"
)

//go:generate go tool stringer -linecomment -type=Event

// Event is a discrete host request, consumed at a frame boundary.
type Event int

const (
	EVENT_NONE  = Event(0) // none
	EVENT_PAUSE = Event(1) // pause
	EVENT_QUIT  = Event(2) // quit
)

// Input refreshes the keypad once per frame.
type Input interface {
	// Poll writes the current key states, and returns any pending event.
	Poll(keys *[cpu.KEY_COUNT]bool) Event
}

// Screen presents the framebuffer once per frame.
type Screen interface {
	Render(display *cpu.Display) error
}

// Speaker follows the sound timer: on while it is non-zero.
type Speaker interface {
	Sound(on bool)
}
