// Package cpu implements the CHIP-8 interpreter core and its assembler.
//
// The machine has 4KiB of byte addressable memory with the hexadecimal
// font at 0x000 and programs loaded at 0x200, sixteen 8-bit registers
// (V0-VF, with VF doubling as the carry, borrow and collision flag), a
// 16-bit index register I, a twelve entry return stack, a 64x32
// monochrome display, a sixteen key keypad, and the delay and sound
// timers.
//
// Every Tick re-fetches and re-decodes the instruction at the program
// counter. Instruction words that match no known pattern are executed as
// no-ops.
//
// The assembler accepts the conventional CHIP-8 mnemonics, with labels,
// equates, macros, and compile-time expression evaluation.
package cpu
