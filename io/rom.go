package io

import (
	"io"
	"os"

	"github.com/ezrec/chip8/cpu"
)

// Rom is a validated program image.
type Rom struct {
	Path string
	Data []byte
}

// ReadRom reads a raw program image. The image has no header, and must
// fit between the program start and the end of memory.
func ReadRom(path string, input io.Reader) (rom *Rom, err error) {
	defer func() {
		if err != nil {
			rom = nil
			err = &ErrRomLoad{Path: path, Err: err}
		}
	}()

	// Read one byte past the limit, to detect oversized images.
	data, err := io.ReadAll(io.LimitReader(input, cpu.PROGRAM_SIZE_MAX+1))
	if err != nil {
		return
	}

	switch {
	case len(data) == 0:
		err = ErrRomEmpty
		return
	case len(data) > cpu.PROGRAM_SIZE_MAX:
		err = ErrRomTooLarge
		return
	}

	rom = &Rom{Path: path, Data: data}
	return
}

// LoadRom reads a program image from a file.
func LoadRom(path string) (rom *Rom, err error) {
	inf, err := os.Open(path)
	if err != nil {
		err = &ErrRomLoad{Path: path, Err: err}
		return
	}
	defer inf.Close()

	return ReadRom(path, inf)
}
