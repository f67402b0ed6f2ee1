package memory

import (
	"errors"
	"testing"
)

func TestRegionOf(t *testing.T) {
	tests := []struct {
		addr uint16
		want Region
	}{
		{0x0000, RegionROM0},
		{0x3FFF, RegionROM0},
		{0x4000, RegionROMX},
		{0x7FFF, RegionROMX},
		{0x8000, RegionVRAM},
		{0x9FFF, RegionVRAM},
		{0xA000, RegionExtRAM},
		{0xC000, RegionWRAM},
		{0xDFFF, RegionWRAM},
		{0xE000, RegionEcho},
		{0xFE00, RegionOAM},
		{0xFE9F, RegionOAM},
		{0xFEA0, RegionUnusable},
		{0xFF00, RegionIO},
		{0xFF7F, RegionIO},
		{0xFF80, RegionHRAM},
		{0xFFFE, RegionHRAM},
		{0xFFFF, RegionIE},
	}
	for _, tc := range tests {
		if got := RegionOf(tc.addr); got != tc.want {
			t.Errorf("RegionOf(0x%04X) = %v; want %v", tc.addr, got, tc.want)
		}
	}
}

func TestRegionString(t *testing.T) {
	if got := RegionVRAM.String(); got != "VRAM" {
		t.Errorf("RegionVRAM.String() = %q", got)
	}
	if got := Region(99).String(); got != "Region(99)" {
		t.Errorf("Region(99).String() = %q", got)
	}
}

func TestReadWrite16(t *testing.T) {
	var m Map
	m.Write16(0xC000, 0xBEEF)
	if m[0xC000] != 0xEF || m[0xC001] != 0xBE {
		t.Fatalf("Write16 stored %02X %02X; want EF BE", m[0xC000], m[0xC001])
	}
	if got := m.Read16(0xC000); got != 0xBEEF {
		t.Errorf("Read16 = 0x%04X; want 0xBEEF", got)
	}

	// The high byte wraps to 0x0000.
	m.Write16(0xFFFF, 0x1234)
	if m[0xFFFF] != 0x34 || m[0x0000] != 0x12 {
		t.Errorf("wrapped Write16 stored %02X %02X", m[0xFFFF], m[0x0000])
	}
	if got := m.Read16(0xFFFF); got != 0x1234 {
		t.Errorf("wrapped Read16 = 0x%04X", got)
	}
}

func TestLoad(t *testing.T) {
	var m Map
	if err := m.Load(0x0100, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Read(0x0100) != 1 || m.Read(0x0102) != 3 {
		t.Errorf("Load did not copy data")
	}

	err := m.Load(0xFFFF, []byte{1, 2})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Load past end: got %v; want ErrOutOfBounds", err)
	}
}

func TestSliceAndClear(t *testing.T) {
	var m Map
	m.Write(0x10, 0xAA)
	s, err := m.Slice(0x10, 0x12)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(s) != 2 || s[0] != 0xAA {
		t.Errorf("Slice = %v", s)
	}
	s[0] = 0
	if m.Read(0x10) != 0xAA {
		t.Errorf("Slice must return a copy")
	}
	if _, err := m.Slice(5, Size+1); err == nil {
		t.Errorf("Slice past end should fail")
	}

	m.Clear()
	if m.Read(0x10) != 0 {
		t.Errorf("Clear left data behind")
	}
}
