package cpu

import (
	"fmt"
	"strings"

	"dmgcpu/pkg/memory"
)

// Disassemble renders the instruction at addr with its operand substituted
// and returns the text and encoded length. Undefined opcodes render as a
// one-byte DB.
func Disassemble(mem *memory.Map, addr uint16) (string, int) {
	op := mem.Read(addr)
	in := Lookup(op)
	if op == prefixCB {
		in = LookupCB(mem.Read(addr + 1))
	}
	if !in.Defined() {
		return fmt.Sprintf(".DB $%02X", op), 1
	}

	text := in.Mnemonic
	switch in.Operand {
	case OperandImm16:
		v := fmt.Sprintf("$%04X", mem.Read16(addr+1))
		text = strings.Replace(strings.Replace(text, "d16", v, 1), "a16", v, 1)
	case OperandImm8:
		n := mem.Read(addr + 1)
		text = strings.Replace(text, "d8", fmt.Sprintf("$%02X", n), 1)
		text = strings.Replace(text, "a8", fmt.Sprintf("$FF%02X", n), 1)
	case OperandRel8:
		target := addr + uint16(in.Length) + uint16(int8(mem.Read(addr+1)))
		text = strings.Replace(text, "r8", fmt.Sprintf("$%04X", target), 1)
	case OperandSigned8:
		d := int8(mem.Read(addr + 1))
		if strings.Contains(text, "+r8") {
			text = strings.Replace(text, "+r8", fmt.Sprintf("%+d", d), 1)
		} else {
			text = strings.Replace(text, "r8", fmt.Sprint(d), 1)
		}
	}
	return text, in.Length
}

// DisassembleRange disassembles [from, to) and maps each instruction
// address to its text.
func DisassembleRange(mem *memory.Map, from, to uint16) map[uint16]string {
	out := make(map[uint16]string)
	for addr := uint32(from); addr < uint32(to); {
		text, n := Disassemble(mem, uint16(addr))
		out[uint16(addr)] = text
		addr += uint32(n)
	}
	return out
}

// TraceLine formats the instruction about to run at the current PC along
// with the register state.
func (c *CPU) TraceLine() string {
	text, _ := Disassemble(c.Memory, c.PC)
	return fmt.Sprintf("$%04X:%02X  %-16s %s SP=%04X", c.PC, c.Memory.Read(c.PC), text, c.Regs, c.SP)
}
