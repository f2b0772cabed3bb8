// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to memory addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansions int // Count of macro expansions, for @ local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	value, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
	}
	return
}

// register returns the index of a v0-vf register name.
func register(word string) (index byte, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	value, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}
	return byte(value), true
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var equ int64
		equ, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(equ)
	}
	for key, address := range asm.Label {
		pred[key] = starlark.MakeInt(address)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitWords splits a line on whitespace and operand commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}
		words = nil
		return
	}

	return
}

// currentAddress gets the memory address of the next opcode.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Bytes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range _cpu_defines {
		asm.Equate[attr] = val
	}
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		address, ok := asm.Label[op.LinkLabel]
		if !ok {
			line = strings.Join(op.Words, " ")
			lineno = op.LineNo
			err = ErrLabelMissing(op.LinkLabel)
			return
		}
		if address > ADDRESS_MASK {
			line = strings.Join(op.Words, " ")
			lineno = op.LineNo
			err = ErrValueRange
			return
		}
		op.Bytes[0] |= byte(address >> 8)
		op.Bytes[1] = byte(address)
	}

	if len(asm.Opcode) > 0 && asm.currentAddress() > MEMORY_SIZE {
		err = ErrImageTooLarge
		return
	}

	prog = &Program{
		Opcodes: append([]Opcode(nil), asm.Opcode...),
	}

	return
}

// wantArgs checks the operand count.
func wantArgs(args []string, least, most int) (err error) {
	switch {
	case len(args) < least:
		err = ErrOpcodeValueMissing
	case len(args) > most:
		err = ErrOpcodeExtraArgs
	}
	return
}

// getRegister decodes a required v0-vf operand.
func getRegister(word string) (index byte, err error) {
	index, ok := register(word)
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// getValue decodes a numeric operand in the range [lo, hi].
func (asm *Assembler) getValue(word string, lo, hi int64) (value int64, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value < lo || value > hi {
		err = ErrValueRange
	}
	return
}

// getByte decodes an 8-bit operand. Negative values are two's complement.
func (asm *Assembler) getByte(word string) (value byte, err error) {
	v, err := asm.getValue(word, -0x80, 0xff)
	value = byte(v)
	return
}

// getAddress decodes a 12-bit address, or names a label to link later.
func (asm *Assembler) getAddress(word string) (address uint16, label string, err error) {
	_, is_reg := register(word)
	if !is_reg && reIdentifier.MatchString(word) {
		label = word
		return
	}
	v, err := asm.getValue(word, 0, ADDRESS_MASK)
	address = uint16(v)
	return
}

// aluMap maps the register-to-register ALU mnemonics to their low nibble.
var aluMap = map[string]uint16{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"shr":  0x6,
	"subn": 0x7,
	"shl":  0xe,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Bytes: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(word uint16) {
		data = append(data, byte(word>>8), byte(word))
	}

	op := strings.ToLower(words[0])
	args := words[1:]
	lower := make([]string, len(args))
	for n, arg := range args {
		lower[n] = strings.ToLower(arg)
	}

	var x, y byte
	var kk byte
	var nnn uint16

	switch op {
	case ".byte":
		if err = wantArgs(args, 1, len(args)); err != nil {
			return
		}
		for _, arg := range args {
			if kk, err = asm.getByte(arg); err != nil {
				return
			}
			data = append(data, kk)
		}
	case ".word":
		if err = wantArgs(args, 1, len(args)); err != nil {
			return
		}
		for _, arg := range args {
			var v int64
			if v, err = asm.getValue(arg, -0x8000, 0xffff); err != nil {
				return
			}
			emit(uint16(v))
		}
	case "cls":
		if err = wantArgs(args, 0, 0); err == nil {
			emit(0x00e0)
		}
	case "ret":
		if err = wantArgs(args, 0, 0); err == nil {
			emit(0x00ee)
		}
	case "jp":
		if err = wantArgs(args, 1, 2); err != nil {
			return
		}
		if len(args) == 2 {
			if lower[0] != "v0" {
				err = ErrRegisterInvalid
				return
			}
			nnn, label, err = asm.getAddress(args[1])
			emit(0xb000 | nnn)
			return
		}
		nnn, label, err = asm.getAddress(args[0])
		emit(0x1000 | nnn)
	case "call":
		if err = wantArgs(args, 1, 1); err != nil {
			return
		}
		nnn, label, err = asm.getAddress(args[0])
		emit(0x2000 | nnn)
	case "se", "sne":
		if err = wantArgs(args, 2, 2); err != nil {
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		if y, ok := register(args[1]); ok {
			base := uint16(0x5000)
			if op == "sne" {
				base = 0x9000
			}
			emit(base | uint16(x)<<8 | uint16(y)<<4)
			return
		}
		if kk, err = asm.getByte(args[1]); err != nil {
			return
		}
		base := uint16(0x3000)
		if op == "sne" {
			base = 0x4000
		}
		emit(base | uint16(x)<<8 | uint16(kk))
	case "ld":
		if err = wantArgs(args, 2, 2); err != nil {
			return
		}
		switch lower[0] {
		case "i":
			nnn, label, err = asm.getAddress(args[1])
			emit(0xa000 | nnn)
			return
		case "dt", "st", "f", "b", "[i]":
			if x, err = getRegister(args[1]); err != nil {
				return
			}
			low := map[string]uint16{"dt": 0x15, "st": 0x18, "f": 0x29, "b": 0x33, "[i]": 0x55}[lower[0]]
			emit(0xf000 | uint16(x)<<8 | low)
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		switch lower[1] {
		case "dt":
			emit(0xf007 | uint16(x)<<8)
		case "k":
			emit(0xf00a | uint16(x)<<8)
		case "[i]":
			emit(0xf065 | uint16(x)<<8)
		default:
			if y, ok := register(args[1]); ok {
				emit(0x8000 | uint16(x)<<8 | uint16(y)<<4)
				return
			}
			if kk, err = asm.getByte(args[1]); err != nil {
				return
			}
			emit(0x6000 | uint16(x)<<8 | uint16(kk))
		}
	case "add":
		if err = wantArgs(args, 2, 2); err != nil {
			return
		}
		if lower[0] == "i" {
			if x, err = getRegister(args[1]); err != nil {
				return
			}
			emit(0xf01e | uint16(x)<<8)
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		if y, ok := register(args[1]); ok {
			emit(0x8004 | uint16(x)<<8 | uint16(y)<<4)
			return
		}
		if kk, err = asm.getByte(args[1]); err != nil {
			return
		}
		emit(0x7000 | uint16(x)<<8 | uint16(kk))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		need := 2
		if op == "shr" || op == "shl" {
			need = 1
		}
		if err = wantArgs(args, need, 2); err != nil {
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		if len(args) > 1 {
			if y, err = getRegister(args[1]); err != nil {
				return
			}
		}
		emit(0x8000 | uint16(x)<<8 | uint16(y)<<4 | aluMap[op])
	case "rnd":
		if err = wantArgs(args, 2, 2); err != nil {
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		if kk, err = asm.getByte(args[1]); err != nil {
			return
		}
		emit(0xc000 | uint16(x)<<8 | uint16(kk))
	case "drw":
		if err = wantArgs(args, 3, 3); err != nil {
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		if y, err = getRegister(args[1]); err != nil {
			return
		}
		var n int64
		if n, err = asm.getValue(args[2], 0, 0xf); err != nil {
			return
		}
		emit(0xd000 | uint16(x)<<8 | uint16(y)<<4 | uint16(n))
	case "skp", "sknp":
		if err = wantArgs(args, 1, 1); err != nil {
			return
		}
		if x, err = getRegister(args[0]); err != nil {
			return
		}
		low := uint16(0x9e)
		if op == "sknp" {
			low = 0xa1
		}
		emit(0xe000 | uint16(x)<<8 | low)
	default:
		err = ErrInstructionInvalid
	}

	return
}
