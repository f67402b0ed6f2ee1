package machine

import (
	"io"

	"dmgcpu/pkg/memory"
)

// Device is hardware clocked by the machine. Step is called after every
// driver iteration with the T-states it consumed.
type Device interface {
	Step(cycles int)
}

// divCycles is the T-state period of one DIV increment (16384 Hz).
const divCycles = 256

// divider advances the DIV register.
type divider struct {
	mem *memory.Map
	acc int
}

func (d *divider) Step(cycles int) {
	d.acc += cycles
	for d.acc >= divCycles {
		d.acc -= divCycles
		d.mem.Write(memory.DIV, d.mem.Read(memory.DIV)+1)
	}
}

// serialStart is SC with the transfer and internal clock bits set.
const serialStart = 0x81

// serialPort completes transfers instantly by copying SB to a sink. Test
// ROMs print their results this way.
type serialPort struct {
	mem  *memory.Map
	sink io.Writer
}

func (s *serialPort) Step(int) {
	if s.mem.Read(memory.SC) != serialStart {
		return
	}
	if s.sink != nil {
		s.sink.Write([]byte{s.mem.Read(memory.SB)})
	}
	s.mem.Write(memory.SC, 0)
}
