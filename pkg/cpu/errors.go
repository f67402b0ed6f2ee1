package cpu

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrStackFault         = errors.New("stack fault")
)

// Status is the completion status of a step.
type Status int

const (
	StatusOK Status = iota
	StatusUnknownInstruction
	StatusStackFault
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownInstruction:
		return "unknown instruction"
	case StatusStackFault:
		return "stack fault"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// UnknownInstructionError reports an opcode absent from the dispatch tables.
type UnknownInstructionError struct {
	Opcode   byte
	Prefixed bool
	PC       uint16
}

func (e *UnknownInstructionError) Error() string {
	if e.Prefixed {
		return fmt.Sprintf("unknown instruction CB %02X at $%04X", e.Opcode, e.PC)
	}
	return fmt.Sprintf("unknown instruction %02X at $%04X", e.Opcode, e.PC)
}

func (e *UnknownInstructionError) Is(target error) bool {
	return target == ErrUnknownInstruction
}

// StackFaultError reports a push attempted with SP at zero.
type StackFaultError struct {
	PC uint16
	SP uint16
}

func (e *StackFaultError) Error() string {
	return fmt.Sprintf("stack fault at $%04X: push with SP=$%04X", e.PC, e.SP)
}

func (e *StackFaultError) Is(target error) bool {
	return target == ErrStackFault
}
