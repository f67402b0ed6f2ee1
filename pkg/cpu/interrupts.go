package cpu

import (
	"fmt"

	"dmgcpu/pkg/memory"
)

// Interrupt is a bit of the IE and IF registers.
type Interrupt byte

const (
	VBlank  Interrupt = 1 << 0
	LCDStat Interrupt = 1 << 1
	Timer   Interrupt = 1 << 2
	Serial  Interrupt = 1 << 3
	Joypad  Interrupt = 1 << 4
)

// interruptMask covers the five defined sources.
const interruptMask = 0x1F

// DispatchCycles is the cost of servicing an interrupt.
const DispatchCycles = 20

// Vector returns the handler address of i.
func (i Interrupt) Vector() uint16 {
	switch i {
	case VBlank:
		return 0x40
	case LCDStat:
		return 0x48
	case Timer:
		return 0x50
	case Serial:
		return 0x58
	case Joypad:
		return 0x60
	}
	return 0
}

func (i Interrupt) String() string {
	switch i {
	case VBlank:
		return "VBlank"
	case LCDStat:
		return "LCDStat"
	case Timer:
		return "Timer"
	case Serial:
		return "Serial"
	case Joypad:
		return "Joypad"
	}
	return fmt.Sprintf("Interrupt(%#02x)", byte(i))
}

// RequestInterrupt raises i in IF.
func (c *CPU) RequestInterrupt(i Interrupt) {
	c.Memory.Write(memory.IF, c.Memory.Read(memory.IF)|byte(i))
}

// Pending returns the enabled and requested interrupt bits.
func (c *CPU) Pending() byte {
	return c.Memory.Read(memory.IE) & c.Memory.Read(memory.IF) & interruptMask
}

// ServiceInterrupts runs at an instruction boundary. Any pending interrupt
// wakes a halted core. With IME set the highest priority (lowest bit) one is
// dispatched: its IF bit is cleared, IME dropped, PC pushed and the vector
// loaded. It returns the cycles spent, zero when nothing was dispatched.
func (c *CPU) ServiceInterrupts() (int, error) {
	pending := c.Pending()
	if pending == 0 {
		return 0, nil
	}
	c.Halted = false
	if !c.IME {
		return 0, nil
	}

	i := Interrupt(pending & -pending)
	c.opPC = c.PC
	if err := c.push(c.PC); err != nil {
		return 0, err
	}
	c.Memory.Write(memory.IF, c.Memory.Read(memory.IF)&^byte(i))
	c.IME = false
	c.PC = i.Vector()
	return DispatchCycles, nil
}
