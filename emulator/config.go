package emulator

import (
	"time"
)

const (
	DEFAULT_INSTRUCTIONS_PER_SECOND = 500 // Default instruction rate.
	DEFAULT_TICK_RATE               = 60  // Default frame and timer rate, in Hz.
)

// Config is the emulator timing configuration.
type Config struct {
	InstructionsPerSecond int // Instructions executed per second.
	TickRate              int // Frames per second; the timers count down once per frame.
}

// DefaultConfig returns the conventional 500 instructions per second at 60Hz.
func DefaultConfig() Config {
	return Config{
		InstructionsPerSecond: DEFAULT_INSTRUCTIONS_PER_SECOND,
		TickRate:              DEFAULT_TICK_RATE,
	}
}

// Validate checks that every frame runs at least one instruction.
func (config Config) Validate() (err error) {
	if config.TickRate <= 0 || config.InstructionsPerSecond < config.TickRate {
		err = &ErrConfig{
			InstructionsPerSecond: config.InstructionsPerSecond,
			TickRate:              config.TickRate,
		}
	}

	return
}

// InstructionsPerFrame is the size of the instruction batch run each frame.
func (config Config) InstructionsPerFrame() int {
	return config.InstructionsPerSecond / config.TickRate
}

// FramePeriod is the wall clock budget of a frame.
func (config Config) FramePeriod() time.Duration {
	return time.Second / time.Duration(config.TickRate)
}
