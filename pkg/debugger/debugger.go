package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"dmgcpu/pkg/cpu"
	"dmgcpu/pkg/memory"
)

// Mode selects when the console stops for a command.
type Mode int

const (
	// Continue runs freely until a breakpoint hits.
	Continue Mode = iota
	// StepOver stops only after calls and returns.
	StepOver
	// Step stops after every instruction.
	Step
)

func (m Mode) String() string {
	switch m {
	case Continue:
		return "continue"
	case StepOver:
		return "step-over"
	case Step:
		return "step"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ErrQuit is returned by Hook when the user asks to stop.
var ErrQuit = errors.New("debugger: quit")

// traceFloor is the highest boot ROM address; nothing at or below it stops.
const traceFloor = 0x00FF

// stepOverOpcodes are the call and return family.
var stepOverOpcodes = map[byte]bool{
	0xC0: true, 0xC4: true, 0xC8: true, 0xC9: true, 0xCC: true, 0xCD: true,
	0xD0: true, 0xD4: true, 0xD8: true, 0xD9: true, 0xDC: true,
}

// State is the register file a hook or breakpoint sees after an instruction.
type State struct {
	PC, SP                 uint16
	A, F, B, C, D, E, H, L byte
	IME, Halted            bool
	Mem                    *memory.Map
}

// StateOf captures the current state of c.
func StateOf(c *cpu.CPU) State {
	r := c.Regs
	return State{
		PC: c.PC, SP: c.SP,
		A: r.A, F: r.F, B: r.B, C: r.C, D: r.D, E: r.E, H: r.H, L: r.L,
		IME: c.IME, Halted: c.Halted,
		Mem: c.Memory,
	}
}

// Console is the interactive trace prompt. Commands are single keys:
// c continue, o step over, s step, q quit.
type Console struct {
	In          io.Reader
	Out         io.Writer
	Mode        Mode
	Breakpoints []Breakpoint

	rd *bufio.Reader
}

// NewConsole creates a console in Continue mode.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{In: in, Out: out}
}

// Hook is called after each executed instruction. It may block reading a
// command from In.
func (d *Console) Hook(res cpu.StepResult, st State) error {
	if st.PC == 0xFFFF {
		d.Mode = Step
	}
	for _, bp := range d.Breakpoints {
		hit, err := bp.Hit(st)
		if err != nil {
			return fmt.Errorf("breakpoint %s: %w", bp, err)
		}
		if hit {
			fmt.Fprintf(d.Out, "break at $%04X (%s)\n", st.PC, bp)
			d.Mode = Step
		}
	}

	if st.PC <= traceFloor {
		return nil
	}
	switch {
	case d.Mode == Step:
		return d.prompt()
	case d.Mode == StepOver && !res.Prefixed && stepOverOpcodes[res.Opcode]:
		return d.prompt()
	}
	return nil
}

// prompt reads one command key. End of input drops back to Continue.
func (d *Console) prompt() error {
	if d.rd == nil {
		d.rd = bufio.NewReader(d.In)
	}
	fmt.Fprint(d.Out, "> ")
	for {
		b, err := d.rd.ReadByte()
		if err == io.EOF {
			d.Mode = Continue
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case 'c', 'C':
			d.Mode = Continue
		case 'o', 'O':
			d.Mode = StepOver
		case 's', 'S':
			d.Mode = Step
		case 'q', 'Q', 0x03:
			return ErrQuit
		}
		return nil
	}
}

// Raw is a terminal switched to raw mode so commands need no Enter.
type Raw struct {
	f   *os.File
	old *term.State
}

// RawInput puts f into raw mode when it is a terminal. Anything else is
// passed through unchanged.
func RawInput(f *os.File) (*Raw, error) {
	r := &Raw{f: f}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return r, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	r.old = old
	return r, nil
}

func (r *Raw) Read(p []byte) (int, error) {
	return r.f.Read(p)
}

// Close restores the terminal.
func (r *Raw) Close() error {
	if r.old == nil {
		return nil
	}
	err := term.Restore(int(r.f.Fd()), r.old)
	r.old = nil
	return err
}
