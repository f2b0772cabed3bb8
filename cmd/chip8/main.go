// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
)

func main() {
	var compile string
	var rom string
	var save bool
	var output string
	var ips int
	var hz int
	var seed uint64
	var verbose bool

	defaults := emulator.DefaultConfig()

	flag.StringVar(&compile, "c", "", ".8o assembly file to compile")
	flag.StringVar(&rom, "r", "", ".ch8 program image to run")
	flag.BoolVar(&save, "s", false, "Save the compiled image to -o, do not execute")
	flag.StringVar(&output, "o", "", "Program image output")
	flag.IntVar(&ips, "ips", defaults.InstructionsPerSecond, "Instructions per second")
	flag.IntVar(&hz, "hz", defaults.TickRate, "Frame and timer rate, in Hz")
	flag.Uint64Var(&seed, "seed", 0, "Random seed (0 for time based)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(compile) == 0) == (len(rom) == 0) {
		log.Fatalf("%v: exactly one of -c or -r is required", os.Args[0])
	}

	if save && (len(compile) == 0 || len(output) == 0) {
		log.Fatalf("%v: -s requires -c and -o", os.Args[0])
	}

	emu, err := emulator.NewEmulator(emulator.Config{
		InstructionsPerSecond: ips,
		TickRate:              hz,
	})
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	emu.Verbose = verbose

	var image []byte

	// Compile a new program image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for equ, value := range emu.Defines() {
			asm.Predefine(equ, value)
		}

		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		image = emu.Program.Binary()
	}

	if save {
		err = os.WriteFile(output, image, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	if len(rom) != 0 {
		data, err := io.LoadRom(rom)
		if err != nil {
			log.Fatal(err)
		}
		image = data.Data
	}

	err = emu.Load(image)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	if seed != 0 {
		emu.Cpu.Random = rand.New(rand.NewPCG(seed, seed))
	}

	if verbose {
		emu.Cpu.Trace = func(pc uint16, inst cpu.Instruction) {
			log.Printf("cpu: %03x: %04x %v", pc, inst.Word, inst)
		}
	}

	host, err := NewTerminal(os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	emu.Input = host.Keyboard
	emu.Screen = host.Screen
	emu.Speaker = host.Bell

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host.Start()
	err = emu.Run(ctx)
	host.Stop()

	if host.Bell.Err != nil {
		log.Printf("%v: bell: %v", os.Args[0], host.Bell.Err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
