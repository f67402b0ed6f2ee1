package cpu

import (
	"fmt"

	"dmgcpu/pkg/memory"
)

// Reset values.
const (
	ResetPC uint16 = 0x0000
	ResetSP uint16 = 0xFFFE
)

// RunState is the interrupt/halt state of the core.
type RunState int

const (
	StateRunning RunState = iota
	StateHalted
)

func (s RunState) String() string {
	if s == StateHalted {
		return "halted"
	}
	return "running"
}

// StepResult describes one executed instruction.
type StepResult struct {
	// Cycles is the cost in T-states.
	Cycles int
	Status Status
	// Opcode is the dispatched byte; for CB-prefixed instructions it is the
	// second byte and Prefixed is set.
	Opcode   byte
	Prefixed bool
	// PC is the address the instruction was fetched from.
	PC uint16
	// Taken is set when a conditional branch was taken.
	Taken bool
}

// CPU is an LR35902 core executing against a flat 64 KiB memory map.
type CPU struct {
	Regs Registers

	PC uint16
	SP uint16

	// IME is the interrupt master enable.
	IME    bool
	Halted bool

	Memory *memory.Map

	// opPC is the address of the instruction being executed, for fault reports.
	opPC uint16
}

// NewCPU creates a core bound to mem. A nil mem gets a fresh zeroed map.
func NewCPU(mem *memory.Map) *CPU {
	if mem == nil {
		mem = new(memory.Map)
	}
	c := &CPU{Memory: mem}
	c.Reset()
	return c
}

// Reset puts the registers back to their power-on values. Memory is kept.
func (c *CPU) Reset() {
	c.Regs = Registers{}
	c.PC = ResetPC
	c.SP = ResetSP
	c.IME = false
	c.Halted = false
}

// State reports whether the core is running or halted.
func (c *CPU) State() RunState {
	if c.Halted {
		return StateHalted
	}
	return StateRunning
}

func (c *CPU) String() string {
	return fmt.Sprintf("PC=%04X SP=%04X %s IME=%t", c.PC, c.SP, c.Regs, c.IME)
}

// get8 and set8 address the eight operand positions used by the encoding:
// B, C, D, E, H, L, (HL), A.
func (c *CPU) get8(i int) byte {
	switch i {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return c.Memory.Read(c.Regs.HL())
	default:
		return c.Regs.A
	}
}

func (c *CPU) set8(i int, v byte) {
	switch i {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 6:
		c.Memory.Write(c.Regs.HL(), v)
	default:
		c.Regs.A = v
	}
}

// get16 and set16 address BC, DE, HL, SP as encoded in bits 4-5.
func (c *CPU) get16(i int) uint16 {
	if i == 3 {
		return c.SP
	}
	return c.Regs.Get(Pair(i + 1))
}

func (c *CPU) set16(i int, v uint16) {
	if i == 3 {
		c.SP = v
		return
	}
	c.Regs.Set(Pair(i+1), v)
}

// push stores v high byte first. A push with SP at zero is a stack fault and
// leaves memory untouched.
func (c *CPU) push(v uint16) error {
	if c.SP == 0 {
		return &StackFaultError{PC: c.opPC, SP: c.SP}
	}
	c.SP--
	c.Memory.Write(c.SP, byte(v>>8))
	c.SP--
	c.Memory.Write(c.SP, byte(v))
	return nil
}

func (c *CPU) pop() uint16 {
	lo := c.Memory.Read(c.SP)
	c.SP++
	hi := c.Memory.Read(c.SP)
	c.SP++
	return join(hi, lo)
}

// Decode returns the descriptor for the instruction at addr without
// executing it.
func (c *CPU) Decode(addr uint16) Instruction {
	op := c.Memory.Read(addr)
	if op == prefixCB {
		return LookupCB(c.Memory.Read(addr + 1))
	}
	return Lookup(op)
}

// Step executes exactly one instruction. A halted core does nothing and
// reports 4 idle cycles. Faults leave PC at the faulting instruction.
func (c *CPU) Step() (StepResult, error) {
	if c.Halted {
		return StepResult{Cycles: 4, PC: c.PC}, nil
	}

	start, sp := c.PC, c.SP
	c.opPC = start
	in := c.Decode(start)
	res := StepResult{Opcode: in.Opcode, Prefixed: in.Prefixed, PC: start}

	if !in.Defined() {
		res.Status = StatusUnknownInstruction
		return res, &UnknownInstructionError{Opcode: in.Opcode, Prefixed: in.Prefixed, PC: start}
	}

	var arg uint16
	switch in.Operand {
	case OperandImm8, OperandRel8, OperandSigned8:
		arg = uint16(c.Memory.Read(start + 1))
	case OperandImm16:
		arg = c.Memory.Read16(start + 1)
	}

	c.PC = start + uint16(in.Length)
	taken, err := in.exec(c, arg)
	if err != nil {
		c.PC, c.SP = start, sp
		res.Status = StatusStackFault
		return res, err
	}

	res.Cycles = in.Cycles
	if taken {
		res.Taken = true
		res.Cycles = in.TakenCycles
	}
	return res, nil
}

// Run steps until the core halts or faults and returns the cycles spent.
func (c *CPU) Run() (int, error) {
	total := 0
	for !c.Halted {
		res, err := c.Step()
		if err != nil {
			return total, err
		}
		total += res.Cycles
	}
	return total, nil
}

// RunUntilDone is Run bounded to at most limit instructions.
func (c *CPU) RunUntilDone(limit int) (int, error) {
	total := 0
	for i := 0; i < limit && !c.Halted; i++ {
		res, err := c.Step()
		if err != nil {
			return total, err
		}
		total += res.Cycles
	}
	return total, nil
}
