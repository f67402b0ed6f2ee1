package machine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dmgcpu/pkg/cartridge"
	"dmgcpu/pkg/cpu"
	"dmgcpu/pkg/debugger"
	"dmgcpu/pkg/memory"
)

func newMachine(t *testing.T, cfg Config, code ...byte) *Machine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	m := New(cfg)
	if err := m.LoadProgram(0x0100, code); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewPowerOnState(t *testing.T) {
	m := New(DefaultConfig())
	if got := m.Memory().Read(memory.IF); got != 0xE0 {
		t.Errorf("IF: expected E0, got %02X", got)
	}
	if got := m.Memory().Read(memory.IE); got != 0 {
		t.Errorf("IE: expected 00, got %02X", got)
	}
	if m.CPU().PC != 0 || m.CPU().SP != 0xFFFE {
		t.Errorf("CPU not at reset state: %s", m.CPU())
	}
	if m.CPU().Memory != m.Memory() {
		t.Errorf("CPU and machine must share memory")
	}
}

func TestSerialOutput(t *testing.T) {
	out := new(bytes.Buffer)
	cfg := DefaultConfig()
	cfg.Serial = out
	m := newMachine(t, cfg,
		0x3E, 'H', // LD A,'H'
		0xE0, 0x01, // LDH (SB),A
		0x3E, 0x81, // LD A,$81
		0xE0, 0x02, // LDH (SC),A
		0x3E, 'i',
		0xE0, 0x01,
		0x3E, 0x81,
		0xE0, 0x02,
		0x76, // HALT
	)
	if _, err := m.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Hi" {
		t.Errorf("serial: expected %q, got %q", "Hi", out.String())
	}
	if m.Memory().Read(memory.SC) != 0 {
		t.Errorf("SC should be cleared after a transfer")
	}
	if !m.Halted() {
		t.Errorf("machine should be halted with IE clear")
	}
}

func TestBootROMUnmap(t *testing.T) {
	data := make([]byte, 0x8000)
	data[0x0000] = 0xAB
	data[0x0004] = 0x76 // HALT in the cartridge, behind the boot ROM
	cart, err := cartridge.New(data)
	if err != nil {
		t.Fatal(err)
	}
	boot := make([]byte, cartridge.BootROMSize)
	copy(boot, []byte{
		0x3E, 0x01, // LD A,1
		0xE0, 0x50, // LDH ($FF50),A
	})

	cfg := DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	m := New(cfg)
	m.LoadCartridge(cart, boot)
	if m.CPU().PC != 0 || m.Memory().Read(0) != 0x3E {
		t.Fatalf("boot ROM should be mapped at 0x0000")
	}

	for i := 0; i < 3; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if m.Memory().Read(0) != 0xAB {
		t.Errorf("cartridge vector not restored: %02X", m.Memory().Read(0))
	}
	if m.Memory().Read(memory.BootOff) != 0 {
		t.Errorf("0xFF50 should be cleared")
	}
	if !m.CPU().Halted {
		t.Errorf("the cartridge's HALT at 0x0004 should have run")
	}
}

func TestLoadCartridgeWithoutBoot(t *testing.T) {
	cart, err := cartridge.New(make([]byte, 0x8000))
	if err != nil {
		t.Fatal(err)
	}
	m := New(Config{Logger: log.New(io.Discard, "", 0)})
	m.LoadCartridge(cart, nil)
	if m.CPU().PC != 0x0100 {
		t.Errorf("PC: expected 0100, got %04X", m.CPU().PC)
	}
	if m.Memory().Read(memory.IF) != 0xE0 {
		t.Errorf("IF must be reinitialised")
	}
}

func TestLoadBootROMSize(t *testing.T) {
	m := New(DefaultConfig())
	if err := m.LoadBootROM(make([]byte, 10)); !errors.Is(err, cartridge.ErrBootROMSize) {
		t.Errorf("expected ErrBootROMSize, got %v", err)
	}
}

// interruptProgram enables VBlank, waits in HALT and runs a handler at 0x40.
func interruptProgram(t *testing.T, interrupts bool) *Machine {
	cfg := DefaultConfig()
	cfg.Interrupts = interrupts
	m := newMachine(t, cfg,
		0xFB, // EI
		0x76, // HALT
	)
	m.Memory().Write(0x0040, 0x3E) // LD A,$55
	m.Memory().Write(0x0041, 0x55)
	m.Memory().Write(0x0042, 0x76) // HALT
	m.Memory().Write(memory.IE, byte(cpu.VBlank))
	m.Memory().Write(memory.LCDC, 0x80)
	return m
}

func TestVBlankInterrupt(t *testing.T) {
	m := interruptProgram(t, true)
	var res cpu.StepResult
	for i := 0; i < 100000 && res.PC != 0x0040; i++ {
		var err error
		if res, err = m.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if res.PC != 0x0040 {
		t.Fatalf("handler never ran")
	}
	if res.Cycles != cpu.DispatchCycles+8 {
		t.Errorf("dispatch step cycles: expected %d, got %d", cpu.DispatchCycles+8, res.Cycles)
	}
	c := m.CPU()
	if c.Regs.A != 0x55 || c.IME {
		t.Errorf("handler state: A=%02X IME=%t", c.Regs.A, c.IME)
	}
	if c.SP != 0xFFFC || m.Memory().Read16(0xFFFC) != 0x0102 {
		t.Errorf("return address: SP=%04X [SP]=%04X", c.SP, m.Memory().Read16(c.SP))
	}
	if m.Memory().Read(memory.IF)&byte(cpu.VBlank) != 0 {
		t.Errorf("VBlank request should be acknowledged")
	}
}

func TestInterruptsDisabled(t *testing.T) {
	m := interruptProgram(t, false)
	err := m.Run(context.Background(), 10)
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if m.CPU().PC != 0x0102 || m.CPU().Regs.A != 0 {
		t.Errorf("handler must not run with interrupt servicing off")
	}
}

func TestUnknownOpcodeFault(t *testing.T) {
	logs := new(bytes.Buffer)
	m := newMachine(t, Config{Logger: log.New(logs, "", 0)}, 0xD3)
	res, err := m.Step()
	if !errors.Is(err, cpu.ErrUnknownInstruction) {
		t.Fatalf("expected ErrUnknownInstruction, got %v", err)
	}
	if res.Status != cpu.StatusUnknownInstruction || m.CPU().PC != 0x0100 {
		t.Errorf("status %v PC %04X", res.Status, m.CPU().PC)
	}
	if !strings.Contains(logs.String(), "opcode $D3 at $0100") {
		t.Errorf("fault not logged: %q", logs.String())
	}
	if err := m.Run(context.Background(), 1); !errors.Is(err, cpu.ErrUnknownInstruction) {
		t.Errorf("Run should stop on the fault, got %v", err)
	}
}

func TestInterruptStackFault(t *testing.T) {
	m := newMachine(t, DefaultConfig(), 0x00)
	c := m.CPU()
	c.IME = true
	c.SP = 0
	m.Memory().Write(memory.IE, byte(cpu.Timer))
	c.RequestInterrupt(cpu.Timer)
	if _, err := m.Step(); !errors.Is(err, cpu.ErrStackFault) {
		t.Errorf("expected ErrStackFault, got %v", err)
	}
}

func TestRunFrameBudget(t *testing.T) {
	m := newMachine(t, DefaultConfig(), 0x18, 0xFE) // JR -2
	total, err := m.RunFrame()
	if err != nil {
		t.Fatal(err)
	}
	// 8739 iterations of an 8-cycle jump is the first total past 69905.
	if total != 69912 {
		t.Errorf("frame cycles: expected 69912, got %d", total)
	}
	if m.Frames() != 1 || m.Cycles() != 69912 {
		t.Errorf("frames %d cycles %d", m.Frames(), m.Cycles())
	}
}

func TestRunFrames(t *testing.T) {
	m := newMachine(t, DefaultConfig(), 0x18, 0xFE)
	if err := m.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if m.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", m.Frames())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTraceOutput(t *testing.T) {
	trace := new(bytes.Buffer)
	m := newMachine(t, Config{Trace: trace}, 0x3E, 0x01, 0x76)
	if _, err := m.Step(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(trace.String(), "$0100:3E  LD A,$01") {
		t.Errorf("unexpected trace: %q", trace.String())
	}
	m.Step()
	m.Step() // halted: no trace line
	if n := strings.Count(trace.String(), "\n"); n != 2 {
		t.Errorf("expected 2 trace lines, got %d", n)
	}
}

func TestDebuggerQuit(t *testing.T) {
	console := debugger.NewConsole(strings.NewReader("q"), io.Discard)
	console.Mode = debugger.Step
	m := newMachine(t, Config{Debugger: console}, 0x00, 0x00)
	if _, err := m.Step(); !errors.Is(err, debugger.ErrQuit) {
		t.Errorf("expected ErrQuit, got %v", err)
	}
}

func TestDumpOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.dmp")
	m := newMachine(t, Config{DumpOnStop: true, CoreDumpPath: path}, 0x10, 0x00)
	m.Memory().Write(0xC000, 0x99)
	if _, err := m.Step(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("core dump not written: %v", err)
	}
	if len(data) != memory.Size || data[0xC000] != 0x99 {
		t.Errorf("core dump: %d bytes, [C000]=%02X", len(data), data[0xC000])
	}
}

type countingDevice struct{ total int }

func (d *countingDevice) Step(cycles int) { d.total += cycles }

func TestMountedDeviceAndDivider(t *testing.T) {
	m := newMachine(t, DefaultConfig())
	dev := new(countingDevice)
	m.Mount(dev)
	// 64 NOPs are 256 cycles, one DIV tick.
	for i := 0; i < 64; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if uint64(dev.total) != m.Cycles() || dev.total != 256 {
		t.Errorf("device saw %d cycles, machine ran %d", dev.total, m.Cycles())
	}
	if got := m.Memory().Read(memory.DIV); got != 1 {
		t.Errorf("DIV: expected 1, got %d", got)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	romPath := filepath.Join(dir, "test.gb")
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x76
	if err := os.WriteFile(romPath, rom, 0o644); err != nil {
		t.Fatal(err)
	}
	bootPath := filepath.Join(dir, "boot.bin")
	boot := make([]byte, cartridge.BootROMSize)
	boot[0] = 0x31
	if err := os.WriteFile(bootPath, boot, 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(Config{Logger: log.New(io.Discard, "", 0)})
	if err := m.LoadFiles("", ""); err == nil {
		t.Errorf("expected an error with nothing to load")
	}
	if err := m.LoadFiles("", romPath); err != nil {
		t.Fatal(err)
	}
	if m.CPU().PC != 0x0100 {
		t.Errorf("cartridge only: PC should start at 0100")
	}
	if err := m.LoadFiles(bootPath, romPath); err != nil {
		t.Fatal(err)
	}
	if m.CPU().PC != 0 || m.Memory().Read(0) != 0x31 || m.Memory().Read(0x0100) != 0x76 {
		t.Errorf("boot ROM should overlay the cartridge")
	}
	if err := m.LoadFiles(filepath.Join(dir, "missing.bin"), romPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing boot ROM: got %v", err)
	}
}

func TestBareBootROM(t *testing.T) {
	m := New(Config{Logger: log.New(io.Discard, "", 0)})
	boot := make([]byte, cartridge.BootROMSize)
	copy(boot, []byte{0x3E, 0x01, 0xE0, 0x50}) // LD A,1; LDH ($FF50),A
	if err := m.LoadBootROM(boot); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if m.Memory().Read(0) != 0 {
		t.Errorf("empty memory should be restored after unmapping")
	}
}
