// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator schedules the CHIP-8 CPU against wall clock frames,
// and connects it to the host input, screen and speaker.
package emulator

import (
	"context"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
)

//go:generate go tool stringer -linecomment -type=RunState

// RunState is the scheduler state.
// Paused renders only, with the CPU and timers frozen; halted is final
// until a reset, after quit or a fatal error.
type RunState int

const (
	STATE_RUNNING = RunState(iota) // running
	STATE_PAUSED                   // paused
	STATE_HALTED                   // halted
)

// Emulator state. CPU + timing + host collaborators.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Config   Config       // Timing configuration.
	Program  *cpu.Program // Listing of the loaded image, if assembled.

	Input   io.Input   // Keypad source; nil leaves the keypad untouched.
	Screen  io.Screen  // Framebuffer sink; nil disables rendering.
	Speaker io.Speaker // Sound timer sink; nil is silent.

	State RunState

	image []byte
}

// NewEmulator creates an emulator with an empty program image.
func NewEmulator(config Config) (emu *Emulator, err error) {
	err = config.Validate()
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Config:  config,
		Program: &cpu.Program{},
	}

	return
}

// Load installs a program image, and resets the emulator to run it.
func (emu *Emulator) Load(image []byte) (err error) {
	if len(image) > cpu.PROGRAM_SIZE_MAX {
		err = cpu.ErrImageTooLarge
		return
	}

	emu.image = image

	err = emu.Reset()
	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"TICK_RATE":              fmt.Sprintf("%v", emu.Config.TickRate),
		"INSTRUCTIONS_PER_FRAME": fmt.Sprintf("%v", emu.Config.InstructionsPerFrame()),
	}

	return internal.IterSeq2Concat(maps.All(defines), emu.Cpu.Defines())
}

// Reset reloads the program image and resumes running.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Load(emu.image)
	if err != nil {
		return
	}

	emu.State = STATE_RUNNING

	return
}

// TogglePause switches between running and paused. A halted emulator stays halted.
func (emu *Emulator) TogglePause() {
	switch emu.State {
	case STATE_RUNNING:
		emu.State = STATE_PAUSED
	case STATE_PAUSED:
		emu.State = STATE_RUNNING
	}

	if emu.Verbose {
		log.Printf("emulator: %v", emu.State)
	}
}

// Quit halts the emulator at the next frame boundary.
func (emu *Emulator) Quit() {
	emu.State = STATE_HALTED
}

// LineNo returns the source line number of the opcode at an address, or 0.
func (emu *Emulator) LineNo(pc uint16) int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Frame performs a single frame of the emulator:
// - polls the input, and applies its event;
// - when running, executes one batch of instructions, then ticks the timers;
// - renders the display, and drives the speaker.
func (emu *Emulator) Frame() (err error) {
	if emu.State == STATE_HALTED {
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	if emu.Input != nil {
		switch emu.Input.Poll(&emu.Cpu.Keypad) {
		case io.EVENT_QUIT:
			emu.Quit()
			return
		case io.EVENT_PAUSE:
			emu.TogglePause()
		}
	}

	if emu.State == STATE_RUNNING {
		for range emu.Config.InstructionsPerFrame() {
			pc := emu.Cpu.Pc
			err = emu.Cpu.Tick()
			if err != nil {
				emu.State = STATE_HALTED
				err = &ErrRuntime{Pc: pc, LineNo: emu.LineNo(pc), Err: err}
				if emu.Verbose {
					log.Printf("emulator: %v", err)
				}
				return
			}
		}
		emu.Cpu.TickTimers()
	}

	if emu.Screen != nil {
		err = emu.Screen.Render(&emu.Cpu.Display)
		if err != nil {
			return
		}
	}

	if emu.Speaker != nil {
		emu.Speaker.Sound(emu.Cpu.Sound > 0)
	}

	return
}

// Run performs frames at the tick rate until halted, a fatal error, or
// the context is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	period := emu.Config.FramePeriod()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-timer.C:
		}

		start := time.Now()

		err = emu.Frame()
		if err != nil {
			return
		}

		if emu.State == STATE_HALTED {
			return
		}

		timer.Reset(max(0, period-time.Since(start)))
	}
}
