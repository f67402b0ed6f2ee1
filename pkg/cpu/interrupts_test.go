package cpu

import (
	"errors"
	"testing"

	"dmgcpu/pkg/memory"
)

func TestRequestInterrupt(t *testing.T) {
	c := NewCPU(nil)
	c.RequestInterrupt(Timer)
	c.RequestInterrupt(VBlank)
	if got := c.Memory.Read(memory.IF); got != 0x05 {
		t.Errorf("IF: expected 0x05, got 0x%02X", got)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending: nothing enabled, got 0x%02X", c.Pending())
	}
	c.Memory.Write(memory.IE, 0x04)
	if c.Pending() != 0x04 {
		t.Errorf("Pending: expected 0x04, got 0x%02X", c.Pending())
	}
}

func TestServiceInterrupt(t *testing.T) {
	c := NewCPU(nil)
	c.PC = 0x1234
	c.IME = true
	c.Memory.Write(memory.IE, 0x01)
	c.RequestInterrupt(VBlank)

	cycles, err := c.ServiceInterrupts()
	if err != nil {
		t.Fatalf("ServiceInterrupts: %v", err)
	}
	if cycles != 20 {
		t.Errorf("dispatch: expected 20 cycles, got %d", cycles)
	}
	if c.PC != 0x0040 {
		t.Errorf("dispatch: expected PC=0x0040, got 0x%04X", c.PC)
	}
	if c.IME {
		t.Errorf("dispatch: IME should be cleared")
	}
	if c.Memory.Read(memory.IF) != 0 {
		t.Errorf("dispatch: IF bit should be cleared")
	}
	if c.SP != 0xFFFC || c.Memory.Read16(c.SP) != 0x1234 {
		t.Errorf("dispatch: expected 0x1234 pushed, got SP=%04X top=%04X", c.SP, c.Memory.Read16(c.SP))
	}

	// Nothing more to do: IME is off.
	c.RequestInterrupt(VBlank)
	if cycles, _ := c.ServiceInterrupts(); cycles != 0 || c.PC != 0x0040 {
		t.Errorf("IME off: expected no dispatch")
	}
}

func TestInterruptPriority(t *testing.T) {
	vectors := []struct {
		i      Interrupt
		vector uint16
	}{
		{VBlank, 0x40}, {LCDStat, 0x48}, {Timer, 0x50}, {Serial, 0x58}, {Joypad, 0x60},
	}
	for _, v := range vectors {
		if v.i.Vector() != v.vector {
			t.Errorf("%v: expected vector 0x%02X, got 0x%02X", v.i, v.vector, v.i.Vector())
		}
	}

	c := NewCPU(nil)
	c.IME = true
	c.Memory.Write(memory.IE, 0x1F)
	c.Memory.Write(memory.IF, byte(Timer|Serial|Joypad))
	if _, err := c.ServiceInterrupts(); err != nil {
		t.Fatal(err)
	}
	if c.PC != 0x0050 {
		t.Errorf("priority: expected Timer vector 0x0050, got 0x%04X", c.PC)
	}
	if got := c.Memory.Read(memory.IF); got != byte(Serial|Joypad) {
		t.Errorf("priority: expected IF=0x18, got 0x%02X", got)
	}
}

func TestHaltWake(t *testing.T) {
	c := NewCPU(nil)
	loadProgram(c, 0xC000, 0x76, 0x00) // HALT; NOP
	step(t, c)
	if !c.Halted {
		t.Fatalf("HALT: expected halted")
	}

	// Requested but not enabled: stay halted.
	c.RequestInterrupt(Serial)
	if _, err := c.ServiceInterrupts(); err != nil || !c.Halted {
		t.Errorf("disabled interrupt must not wake the core")
	}

	// Enabled with IME off: wake and continue after HALT.
	c.Memory.Write(memory.IE, byte(Serial))
	cycles, err := c.ServiceInterrupts()
	if err != nil || cycles != 0 {
		t.Fatalf("wake: cycles=%d err=%v", cycles, err)
	}
	if c.Halted || c.PC != 0xC001 {
		t.Errorf("wake: expected running at 0xC001, got %s halted=%t", c, c.Halted)
	}
	if c.Memory.Read(memory.IF) != byte(Serial) {
		t.Errorf("wake without IME must leave IF alone")
	}
}

func TestHaltDispatch(t *testing.T) {
	c := NewCPU(nil)
	loadProgram(c, 0xC000, 0xFB, 0x76, 0x00) // EI; HALT; NOP
	c.Memory[0x0048] = 0xD9                   // RETI
	c.Memory.Write(memory.IE, byte(LCDStat))
	step(t, c)
	step(t, c)

	c.RequestInterrupt(LCDStat)
	cycles, err := c.ServiceInterrupts()
	if err != nil || cycles != DispatchCycles {
		t.Fatalf("dispatch: cycles=%d err=%v", cycles, err)
	}
	if c.Halted || c.PC != 0x0048 {
		t.Fatalf("dispatch: expected running at 0x0048, got %s", c)
	}
	step(t, c)
	if c.PC != 0xC002 || !c.IME {
		t.Errorf("RETI: expected PC=0xC002 with IME, got %s", c)
	}
}

func TestInterruptStackFault(t *testing.T) {
	c := NewCPU(nil)
	c.SP = 0
	c.PC = 0x0200
	c.IME = true
	c.Memory.Write(memory.IE, 0x01)
	c.Memory.Write(memory.IF, 0x01)
	_, err := c.ServiceInterrupts()
	if !errors.Is(err, ErrStackFault) {
		t.Fatalf("expected stack fault, got %v", err)
	}
	if c.PC != 0x0200 || !c.IME || c.Memory.Read(memory.IF) != 0x01 {
		t.Errorf("stack fault must not dispatch: %s IF=%02X", c, c.Memory.Read(memory.IF))
	}
}
