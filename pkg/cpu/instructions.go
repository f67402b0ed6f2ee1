package cpu

import (
	"fmt"
	"strings"
)

const prefixCB byte = 0xCB

// Operand says how the bytes following an opcode are fetched.
type Operand int

const (
	OperandNone Operand = iota
	// OperandImm8 is an unsigned byte: d8, or the a8 offset of LDH.
	OperandImm8
	// OperandImm16 is a little-endian word: d16 or a16.
	OperandImm16
	// OperandRel8 is the signed displacement of JR.
	OperandRel8
	// OperandSigned8 is the signed byte added to SP.
	OperandSigned8
)

// Size is the number of operand bytes.
func (o Operand) Size() int {
	switch o {
	case OperandImm8, OperandRel8, OperandSigned8:
		return 1
	case OperandImm16:
		return 2
	}
	return 0
}

// execFunc applies an instruction. arg holds the fetched operand, PC already
// points past the instruction. It reports whether a conditional branch was
// taken.
type execFunc func(c *CPU, arg uint16) (bool, error)

// Instruction describes one opcode.
type Instruction struct {
	Opcode   byte
	Prefixed bool
	Mnemonic string
	// Length is the full encoded size including the CB prefix.
	Length int
	// Cycles is the cost in T-states; TakenCycles applies when a
	// conditional branch is taken.
	Cycles      int
	TakenCycles int
	Operand     Operand
	// Flags is the Z, N, H, C update rule: a letter means computed, 0 or 1
	// forced, '-' unchanged.
	Flags string

	exec execFunc
}

// Defined reports whether the opcode exists.
func (in Instruction) Defined() bool {
	return in.exec != nil
}

func (in Instruction) String() string {
	if !in.Defined() {
		if in.Prefixed {
			return fmt.Sprintf("CB %02X ???", in.Opcode)
		}
		return fmt.Sprintf("%02X ???", in.Opcode)
	}
	cycles := fmt.Sprint(in.Cycles)
	if in.TakenCycles != in.Cycles {
		cycles = fmt.Sprintf("%d/%d", in.TakenCycles, in.Cycles)
	}
	return fmt.Sprintf("%s [%d bytes, %s cycles, %s]", in.Mnemonic, in.Length, cycles, in.Flags)
}

var (
	baseTable [256]Instruction
	cbTable   [256]Instruction
)

// Lookup returns the descriptor of a base opcode.
func Lookup(op byte) Instruction {
	return baseTable[op]
}

// LookupCB returns the descriptor of a CB-prefixed opcode.
func LookupCB(op byte) Instruction {
	return cbTable[op]
}

// operandOf infers the operand kind from the mnemonic placeholders.
func operandOf(mnemonic string) Operand {
	switch {
	case strings.Contains(mnemonic, "d16"), strings.Contains(mnemonic, "a16"):
		return OperandImm16
	case strings.Contains(mnemonic, "d8"), strings.Contains(mnemonic, "a8"):
		return OperandImm8
	case strings.Contains(mnemonic, "r8") && strings.HasPrefix(mnemonic, "JR"):
		return OperandRel8
	case strings.Contains(mnemonic, "r8"):
		return OperandSigned8
	}
	return OperandNone
}

// def registers a base opcode. Branching instructions override TakenCycles
// afterwards.
func def(op byte, mnemonic string, cycles int, flags string, exec execFunc) *Instruction {
	if baseTable[op].Defined() {
		panic(fmt.Sprintf("cpu: opcode %02X defined twice", op))
	}
	operand := operandOf(mnemonic)
	baseTable[op] = Instruction{
		Opcode:      op,
		Mnemonic:    mnemonic,
		Length:      1 + operand.Size(),
		Cycles:      cycles,
		TakenCycles: cycles,
		Operand:     operand,
		Flags:       flags,
		exec:        exec,
	}
	return &baseTable[op]
}

func defCB(op byte, mnemonic string, cycles int, flags string, exec execFunc) {
	cbTable[op] = Instruction{
		Opcode:      op,
		Prefixed:    true,
		Mnemonic:    mnemonic,
		Length:      2,
		Cycles:      cycles,
		TakenCycles: cycles,
		Flags:       flags,
		exec:        exec,
	}
}

// Mnemonics returns every defined instruction, base table first.
func Mnemonics() []Instruction {
	var out []Instruction
	for _, in := range baseTable {
		if in.Defined() {
			out = append(out, in)
		}
	}
	for _, in := range cbTable {
		if in.Defined() {
			out = append(out, in)
		}
	}
	return out
}

func init() {
	for i := range baseTable {
		baseTable[i].Opcode = byte(i)
		cbTable[i].Opcode = byte(i)
		cbTable[i].Prefixed = true
	}
	buildBase()
	buildCB()
}
