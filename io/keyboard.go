package io

import (
	"sync"

	"github.com/ezrec/chip8/cpu"
)

const (
	KEY_HOLD_FRAMES = 6    // Frames a key stays down after a keystroke.
	KEY_PAUSE       = 'p'  // Default pause toggle keystroke.
	KEY_QUIT        = 0x1b // Default quit keystroke (Esc).
)

// Keymap maps host keystrokes to keypad keys.
type Keymap map[byte]byte

// DefaultKeymap is the conventional layout of the keypad on a QWERTY
// keyboard:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var DefaultKeymap = Keymap{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// Keyboard is an Input fed with a stream of host keystrokes.
// Keystroke streams carry no key release, so a key is held for Hold
// frames after its last keystroke.
type Keyboard struct {
	Keymap Keymap
	Hold   int
	Pause  byte
	Quit   byte

	mutex   sync.Mutex
	pending []byte
	held    [cpu.KEY_COUNT]int
}

var _ Input = (*Keyboard)(nil)

// NewKeyboard creates a keyboard with the default keymap and controls.
func NewKeyboard() *Keyboard {
	return &Keyboard{
		Keymap: DefaultKeymap,
		Hold:   KEY_HOLD_FRAMES,
		Pause:  KEY_PAUSE,
		Quit:   KEY_QUIT,
	}
}

// Write queues keystrokes. It may be called from any goroutine.
func (kb *Keyboard) Write(data []byte) (n int, err error) {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	kb.pending = append(kb.pending, data...)
	return len(data), nil
}

// Poll drains the queued keystrokes into the keypad state.
// A quit keystroke wins over a pause keystroke in the same frame.
func (kb *Keyboard) Poll(keys *[cpu.KEY_COUNT]bool) (ev Event) {
	kb.mutex.Lock()
	pending := kb.pending
	kb.pending = nil
	kb.mutex.Unlock()

	for n := range kb.held {
		if kb.held[n] > 0 {
			kb.held[n]--
		}
	}

	for _, stroke := range pending {
		switch {
		case stroke == kb.Quit:
			ev = EVENT_QUIT
		case stroke == kb.Pause:
			if ev == EVENT_NONE {
				ev = EVENT_PAUSE
			}
		default:
			if 'A' <= stroke && stroke <= 'Z' {
				stroke += 'a' - 'A'
			}
			key, ok := kb.Keymap[stroke]
			if ok {
				kb.held[key&0xf] = kb.Hold
			}
		}
	}

	for n := range keys {
		keys[n] = kb.held[n] > 0
	}

	return
}
