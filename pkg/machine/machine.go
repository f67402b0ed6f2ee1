package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"dmgcpu/pkg/cartridge"
	"dmgcpu/pkg/cpu"
	"dmgcpu/pkg/debugger"
	"dmgcpu/pkg/memory"
	"dmgcpu/pkg/ppu"
)

// CyclesPerFrame is the T-state budget of one 59.7 Hz frame.
const CyclesPerFrame = 69905

// idleCycles is what a halted core burns per iteration.
const idleCycles = 4

// Power-on interrupt registers. The upper IF bits read as set.
const (
	initIF = 0xE0
	initIE = 0x00
)

const (
	opHALT = 0x76
	opSTOP = 0x10
)

// Config holds the machine options.
type Config struct {
	// Interrupts services IE & IF at instruction boundaries.
	Interrupts bool
	// Serial receives bytes sent over the link port.
	Serial io.Writer
	// Trace receives one line per executed instruction when non-nil.
	Trace    io.Writer
	Debugger *debugger.Console
	// CoreDumpPath defaults to cpu.CoreDumpName.
	CoreDumpPath string
	// DumpOnStop writes a core dump when STOP executes.
	DumpOnStop bool
	Logger     *log.Logger
}

// DefaultConfig enables interrupts and discards serial output.
func DefaultConfig() Config {
	return Config{Interrupts: true, CoreDumpPath: cpu.CoreDumpName}
}

// Machine drives the CPU and its devices in frame-sized slices.
type Machine struct {
	cfg Config
	log *log.Logger

	mem     *memory.Map
	cpu     *cpu.CPU
	lcd     *ppu.Timing
	serial  *serialPort
	devices []Device

	// vector holds the cartridge bytes shadowed by the boot ROM.
	vector []byte

	cycles uint64
	frames uint64
}

// New builds a machine with empty memory, the LCD timing and DIV devices
// mounted and the CPU at its reset state.
func New(cfg Config) *Machine {
	if cfg.CoreDumpPath == "" {
		cfg.CoreDumpPath = cpu.CoreDumpName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	mem := new(memory.Map)
	m := &Machine{
		cfg:    cfg,
		log:    logger,
		mem:    mem,
		cpu:    cpu.NewCPU(mem),
		lcd:    ppu.NewTiming(mem),
		serial: &serialPort{mem: mem, sink: cfg.Serial},
	}
	m.devices = []Device{m.lcd, &divider{mem: mem}}
	m.resetIO()
	return m
}

func (m *Machine) resetIO() {
	m.mem.Write(memory.IF, initIF)
	m.mem.Write(memory.IE, initIE)
}

// Mount attaches a device clocked after the built-in ones.
func (m *Machine) Mount(d Device) {
	m.devices = append(m.devices, d)
}

// LoadCartridge maps the cartridge and, when boot is non-nil, overlays the
// boot ROM and remembers the shadowed bytes for the unmap at 0xFF50. The CPU
// starts at 0x0000 with a boot ROM and at 0x0100 without one.
func (m *Machine) LoadCartridge(c *cartridge.Cartridge, boot []byte) {
	m.mem.Clear()
	m.cpu.Reset()
	m.resetIO()
	m.lcd.Reset()
	c.MapInto(m.mem, boot)
	m.vector = nil
	if boot != nil {
		m.vector = c.Vector()
		m.cpu.PC = cpu.ResetPC
	} else {
		m.cpu.PC = 0x0100
	}
	m.log.Printf("cartridge %q (%s)", c.Header.Title, c.Header.TypeName())
}

// LoadBootROM overlays boot on whatever is mapped at 0x0000 and restarts the
// CPU there. The shadowed bytes come back when the boot ROM unmaps itself.
func (m *Machine) LoadBootROM(boot []byte) error {
	if len(boot) != cartridge.BootROMSize {
		return fmt.Errorf("load boot ROM: %w", cartridge.ErrBootROMSize)
	}
	m.vector = make([]byte, cartridge.BootROMSize)
	copy(m.vector, m.mem[:])
	copy(m.mem[:], boot)
	m.cpu.Reset()
	m.resetIO()
	return nil
}

// LoadProgram copies code to addr and points the CPU at it.
func (m *Machine) LoadProgram(addr uint16, code []byte) error {
	if err := m.mem.Load(addr, code); err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	m.cpu.PC = addr
	return nil
}

// CPU returns the core.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Memory returns the shared address space.
func (m *Machine) Memory() *memory.Map { return m.mem }

// LCD returns the LCD timing device.
func (m *Machine) LCD() *ppu.Timing { return m.lcd }

// Cycles is the total number of T-states run.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Frames is the number of completed frames.
func (m *Machine) Frames() uint64 { return m.frames }

// Halted reports a halted core that nothing can wake.
func (m *Machine) Halted() bool {
	if !m.cpu.Halted {
		return false
	}
	return !m.cfg.Interrupts || m.mem.Read(memory.IE)&0x1F == 0
}

// DumpCore writes the memory image to the configured path.
func (m *Machine) DumpCore() error {
	if err := cpu.WriteCoreDump(m.cfg.CoreDumpPath, m.mem); err != nil {
		return err
	}
	m.log.Printf("core dumped to %s", m.cfg.CoreDumpPath)
	return nil
}

// unmapBoot restores the cartridge vector once the boot ROM writes 0xFF50.
func (m *Machine) unmapBoot() {
	if m.mem.Read(memory.BootOff) == 0 {
		return
	}
	if m.vector != nil {
		copy(m.mem[:len(m.vector)], m.vector)
		m.log.Printf("boot ROM disabled at $%04X", m.cpu.PC)
	}
	m.mem.Write(memory.BootOff, 0)
}

// Step runs one driver iteration: the boot ROM check, interrupt service, one
// instruction (or idle cycles while halted) and then the devices.
func (m *Machine) Step() (cpu.StepResult, error) {
	m.unmapBoot()

	dispatch := 0
	if m.cfg.Interrupts {
		n, err := m.cpu.ServiceInterrupts()
		if err != nil {
			m.log.Printf("interrupt dispatch at $%04X: %v", m.cpu.PC, err)
			return cpu.StepResult{Status: cpu.StatusStackFault, PC: m.cpu.PC}, err
		}
		dispatch = n
	}

	wasHalted := m.cpu.Halted
	var trace string
	if m.cfg.Trace != nil && !wasHalted {
		trace = m.cpu.TraceLine()
	}

	res, err := m.cpu.Step()
	if err != nil {
		m.log.Printf("fault: opcode $%02X at $%04X: %v", res.Opcode, res.PC, err)
		return res, err
	}
	if wasHalted {
		res.Cycles = idleCycles
	}
	res.Cycles += dispatch
	m.cycles += uint64(res.Cycles)

	for _, d := range m.devices {
		d.Step(res.Cycles)
	}
	m.serial.Step(res.Cycles)

	if trace != "" {
		fmt.Fprintln(m.cfg.Trace, trace)
	}
	if m.cfg.Debugger != nil && !wasHalted {
		if err := m.cfg.Debugger.Hook(res, debugger.StateOf(m.cpu)); err != nil {
			return res, err
		}
	}

	if !wasHalted && !res.Prefixed {
		switch res.Opcode {
		case opHALT:
			m.log.Printf("HALT at $%04X", res.PC)
		case opSTOP:
			m.log.Printf("STOP at $%04X", res.PC)
			if m.cfg.DumpOnStop {
				if err := m.DumpCore(); err != nil {
					return res, err
				}
			}
		}
	}
	return res, nil
}

// RunFrame steps until a frame's worth of cycles has elapsed or the core
// halts for good. It returns the cycles spent.
func (m *Machine) RunFrame() (int, error) {
	total := 0
	for total < CyclesPerFrame {
		res, err := m.Step()
		total += res.Cycles
		if err != nil {
			return total, err
		}
		if m.Halted() {
			return total, nil
		}
	}
	m.frames++
	return total, nil
}

// ErrHalted is returned by Run when the core halted with nothing able to
// wake it.
var ErrHalted = errors.New("machine halted")

// Run executes frames until ctx is done, maxFrames frames have run (zero
// means no limit), a fault occurs or the core halts for good. A permanent
// halt returns ErrHalted.
func (m *Machine) Run(ctx context.Context, maxFrames int) error {
	for n := 0; maxFrames == 0 || n < maxFrames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := m.RunFrame(); err != nil {
			return err
		}
		if m.Halted() {
			return ErrHalted
		}
	}
	return nil
}

// LoadFiles loads a cartridge and an optional boot ROM from disk. Either
// path may be empty but not both. A boot ROM without a cartridge runs over
// empty memory.
func (m *Machine) LoadFiles(bootPath, romPath string) error {
	if bootPath == "" && romPath == "" {
		return errors.New("no boot ROM or cartridge given")
	}
	var boot []byte
	if bootPath != "" {
		b, err := cartridge.LoadBootROM(bootPath)
		if err != nil {
			return err
		}
		boot = b
	}
	if romPath == "" {
		return m.LoadBootROM(boot)
	}
	cart, err := cartridge.LoadFile(romPath)
	if err != nil {
		return err
	}
	m.LoadCartridge(cart, boot)
	return nil
}
