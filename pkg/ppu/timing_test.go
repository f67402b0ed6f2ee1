package ppu

import (
	"testing"

	"dmgcpu/pkg/memory"
)

func newTiming() (*memory.Map, *Timing) {
	mem := new(memory.Map)
	mem.Write(memory.LCDC, LCDCEnable)
	return mem, NewTiming(mem)
}

func TestTimingAdvancesLY(t *testing.T) {
	mem, tm := newTiming()
	tm.Step(CyclesPerLine - 4)
	if got := mem.Read(memory.LY); got != 0 {
		t.Errorf("LY before a full line: expected 0, got %d", got)
	}
	tm.Step(4)
	if got := mem.Read(memory.LY); got != 1 {
		t.Errorf("LY after a full line: expected 1, got %d", got)
	}
	if tm.Dots() != 0 {
		t.Errorf("Dots: expected 0, got %d", tm.Dots())
	}

	// Large steps carry over several lines.
	tm.Step(CyclesPerLine*3 + 10)
	if tm.Line() != 4 || tm.Dots() != 10 {
		t.Errorf("LY/dots: expected 4/10, got %d/%d", tm.Line(), tm.Dots())
	}
}

func TestTimingWrapsFrame(t *testing.T) {
	mem, tm := newTiming()
	for i := 0; i < LinesPerFrame; i++ {
		tm.Step(CyclesPerLine)
	}
	if got := mem.Read(memory.LY); got != 0 {
		t.Errorf("LY after a frame: expected 0, got %d", got)
	}
}

func TestTimingVBlank(t *testing.T) {
	mem, tm := newTiming()
	for i := 0; i < VBlankLine-1; i++ {
		tm.Step(CyclesPerLine)
	}
	if mem.Read(memory.IF)&irqVBlank != 0 {
		t.Fatalf("VBlank raised early at LY=%d", mem.Read(memory.LY))
	}
	tm.Step(CyclesPerLine)
	if mem.Read(memory.LY) != VBlankLine {
		t.Fatalf("LY: expected %d, got %d", VBlankLine, mem.Read(memory.LY))
	}
	if mem.Read(memory.IF)&irqVBlank == 0 {
		t.Errorf("VBlank not requested on entering line 144")
	}
	if tm.Mode() != ModeVBlank || mem.Read(memory.STAT)&STATModeMask != byte(ModeVBlank) {
		t.Errorf("STAT mode: expected VBlank, got %d", mem.Read(memory.STAT)&STATModeMask)
	}
}

func TestTimingCoincidence(t *testing.T) {
	mem, tm := newTiming()
	mem.Write(memory.LYC, 2)
	mem.Write(memory.STAT, STATLYCIRQ)
	tm.Step(CyclesPerLine)
	if mem.Read(memory.STAT)&STATCoincident != 0 {
		t.Errorf("coincidence set at LY=1")
	}
	tm.Step(CyclesPerLine)
	if mem.Read(memory.STAT)&STATCoincident == 0 {
		t.Errorf("coincidence not set at LY=2")
	}
	if mem.Read(memory.IF)&irqLCDStat == 0 {
		t.Errorf("LCDStat not requested")
	}
	if mem.Read(memory.STAT)&STATLYCIRQ == 0 {
		t.Errorf("STAT enable bits must be kept")
	}
}

func TestTimingModes(t *testing.T) {
	_, tm := newTiming()
	if tm.Mode() != ModeOAM {
		t.Errorf("start of line: expected OAM mode")
	}
	tm.Step(100)
	if tm.Mode() != ModeTransfer {
		t.Errorf("dot 100: expected transfer mode")
	}
	tm.Step(200)
	if tm.Mode() != ModeHBlank {
		t.Errorf("dot 300: expected HBlank mode")
	}
}

func TestTimingLCDOff(t *testing.T) {
	mem, tm := newTiming()
	tm.Step(CyclesPerLine * 3)
	mem.Write(memory.LCDC, 0)
	tm.Step(CyclesPerLine * 3)
	if mem.Read(memory.LY) != 0 || tm.Dots() != 0 {
		t.Errorf("LCD off: expected LY held at 0, got %d", mem.Read(memory.LY))
	}
}
