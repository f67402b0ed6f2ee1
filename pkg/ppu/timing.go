package ppu

import "dmgcpu/pkg/memory"

// Scanline timing in T-states.
const (
	CyclesPerLine = 456
	LinesPerFrame = 154
	VBlankLine    = 144
)

// LCDC bits.
const (
	LCDCBGEnable     = 1 << 0
	LCDCBGMap        = 1 << 3
	LCDCTileData     = 1 << 4
	LCDCWindowEnable = 1 << 5
	LCDCWindowMap    = 1 << 6
	LCDCEnable       = 1 << 7
)

// STAT bits.
const (
	STATModeMask   = 0x03
	STATCoincident = 1 << 2
	STATLYCIRQ     = 1 << 6
)

// IF bits raised by the timing helper.
const (
	irqVBlank  = 1 << 0
	irqLCDStat = 1 << 1
)

// Mode is the STAT mode of the current scanline.
type Mode byte

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAM
	ModeTransfer
)

// Timing advances LY from elapsed cycles and raises the VBlank and LYC
// interrupts. It only touches memory between CPU steps.
type Timing struct {
	mem  *memory.Map
	dots int
}

func NewTiming(mem *memory.Map) *Timing {
	return &Timing{mem: mem}
}

// Line returns the current scanline.
func (t *Timing) Line() byte {
	return t.mem.Read(memory.LY)
}

// Dots returns the position within the current scanline.
func (t *Timing) Dots() int {
	return t.dots
}

// Reset puts the beam back at the top of the frame.
func (t *Timing) Reset() {
	t.dots = 0
	t.mem.Write(memory.LY, 0)
	t.updateStat()
}

// Step consumes cycles T-states. With the LCD off LY is held at 0.
func (t *Timing) Step(cycles int) {
	if t.mem.Read(memory.LCDC)&LCDCEnable == 0 {
		if t.dots != 0 || t.mem.Read(memory.LY) != 0 {
			t.Reset()
		}
		return
	}

	t.dots += cycles
	for t.dots >= CyclesPerLine {
		t.dots -= CyclesPerLine
		ly := (t.mem.Read(memory.LY) + 1) % LinesPerFrame
		t.mem.Write(memory.LY, ly)
		if ly == VBlankLine {
			t.request(irqVBlank)
		}
		if ly == t.mem.Read(memory.LYC) && t.mem.Read(memory.STAT)&STATLYCIRQ != 0 {
			t.request(irqLCDStat)
		}
	}
	t.updateStat()
}

// Mode returns the STAT mode for the current beam position.
func (t *Timing) Mode() Mode {
	switch {
	case t.mem.Read(memory.LY) >= VBlankLine:
		return ModeVBlank
	case t.dots < 80:
		return ModeOAM
	case t.dots < 252:
		return ModeTransfer
	}
	return ModeHBlank
}

func (t *Timing) updateStat() {
	stat := t.mem.Read(memory.STAT) &^ (STATModeMask | STATCoincident)
	stat |= byte(t.Mode())
	if t.mem.Read(memory.LY) == t.mem.Read(memory.LYC) {
		stat |= STATCoincident
	}
	t.mem.Write(memory.STAT, stat)
}

func (t *Timing) request(bit byte) {
	t.mem.Write(memory.IF, t.mem.Read(memory.IF)|bit)
}
