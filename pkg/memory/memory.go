package memory

import (
	"errors"
	"fmt"
)

// Size is the number of addressable bytes.
const Size = 0x10000

// Region boundaries.
const (
	ROM0Start   uint16 = 0x0000
	ROMXStart   uint16 = 0x4000
	VRAMStart   uint16 = 0x8000
	ExtRAMStart uint16 = 0xA000
	WRAMStart   uint16 = 0xC000
	EchoStart   uint16 = 0xE000
	OAMStart    uint16 = 0xFE00
	UnusedStart uint16 = 0xFEA0
	IOStart     uint16 = 0xFF00
	HRAMStart   uint16 = 0xFF80
)

// I/O registers the core and its collaborators read or write.
const (
	P1      uint16 = 0xFF00
	SB      uint16 = 0xFF01 // serial transfer data
	SC      uint16 = 0xFF02 // serial transfer control
	DIV     uint16 = 0xFF04
	TIMA    uint16 = 0xFF05
	TMA     uint16 = 0xFF06
	TAC     uint16 = 0xFF07
	IF      uint16 = 0xFF0F // interrupt flag
	LCDC    uint16 = 0xFF40
	STAT    uint16 = 0xFF41
	SCY     uint16 = 0xFF42
	SCX     uint16 = 0xFF43
	LY      uint16 = 0xFF44
	LYC     uint16 = 0xFF45
	DMA     uint16 = 0xFF46
	BGP     uint16 = 0xFF47
	OBP0    uint16 = 0xFF48
	OBP1    uint16 = 0xFF49
	WY      uint16 = 0xFF4A
	WX      uint16 = 0xFF4B
	BootOff uint16 = 0xFF50 // nonzero write unmaps the boot ROM
	IE      uint16 = 0xFFFF // interrupt enable
)

// Region names a semantic area of the address space.
type Region int

const (
	RegionROM0 Region = iota
	RegionROMX
	RegionVRAM
	RegionExtRAM
	RegionWRAM
	RegionEcho
	RegionOAM
	RegionUnusable
	RegionIO
	RegionHRAM
	RegionIE
)

var regionNames = [...]string{
	RegionROM0:     "ROM0",
	RegionROMX:     "ROMX",
	RegionVRAM:     "VRAM",
	RegionExtRAM:   "SRAM",
	RegionWRAM:     "WRAM",
	RegionEcho:     "ECHO",
	RegionOAM:      "OAM",
	RegionUnusable: "UNUSABLE",
	RegionIO:       "IO",
	RegionHRAM:     "HRAM",
	RegionIE:       "IE",
}

func (r Region) String() string {
	if int(r) < 0 || int(r) >= len(regionNames) {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionNames[r]
}

// RegionOf returns the region containing addr.
func RegionOf(addr uint16) Region {
	switch {
	case addr < ROMXStart:
		return RegionROM0
	case addr < VRAMStart:
		return RegionROMX
	case addr < ExtRAMStart:
		return RegionVRAM
	case addr < WRAMStart:
		return RegionExtRAM
	case addr < EchoStart:
		return RegionWRAM
	case addr < OAMStart:
		return RegionEcho
	case addr < UnusedStart:
		return RegionOAM
	case addr < IOStart:
		return RegionUnusable
	case addr < HRAMStart:
		return RegionIO
	case addr < IE:
		return RegionHRAM
	default:
		return RegionIE
	}
}

var ErrOutOfBounds = errors.New("memory access out of bounds")

// Map is the flat 64 KiB address space. It is a plain byte array: writes
// have no side effects, hardware wiring (boot ROM unmapping, serial) is
// left to the driver which inspects registers between steps.
type Map [Size]byte

// Read returns the byte at addr.
func (m *Map) Read(addr uint16) byte {
	return m[addr]
}

// Write stores val at addr.
func (m *Map) Write(addr uint16, val byte) {
	m[addr] = val
}

// Read16 reads a little-endian word. The high byte address wraps at 0xFFFF.
func (m *Map) Read16(addr uint16) uint16 {
	lo := uint16(m[addr])
	hi := uint16(m[addr+1])
	return lo | hi<<8
}

// Write16 writes a little-endian word, low byte first.
func (m *Map) Write16(addr uint16, val uint16) {
	m[addr] = byte(val)
	m[addr+1] = byte(val >> 8)
}

// Load copies data into memory starting at addr.
func (m *Map) Load(addr uint16, data []byte) error {
	if int(addr)+len(data) > Size {
		return fmt.Errorf("load %d bytes at $%04X: %w", len(data), addr, ErrOutOfBounds)
	}
	copy(m[addr:], data)
	return nil
}

// Slice returns a copy of the bytes in [from, to).
func (m *Map) Slice(from, to int) ([]byte, error) {
	if from < 0 || to > Size || from > to {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, to-from)
	copy(out, m[from:to])
	return out, nil
}

// Clear zeroes the whole address space.
func (m *Map) Clear() {
	*m = Map{}
}
