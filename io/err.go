package io

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Program image errors
	ErrRomEmpty    = errors.New(f("program image empty"))
	ErrRomTooLarge = errors.New(f("program image too large"))
)

// ErrRomLoad is returned when a program image cannot be loaded.
type ErrRomLoad struct {
	Path string
	Err  error
}

func (err *ErrRomLoad) Error() string {
	return f("%v: rom load: %v", err.Path, err.Err)
}

func (err *ErrRomLoad) Unwrap() error {
	return err.Err
}
