package ppu

import "dmgcpu/pkg/memory"

const (
	TileSize  = 8
	TileBytes = 16
)

// Tile holds the 2-bit colour index of each pixel, row major.
type Tile [TileSize][TileSize]byte

// DecodeTile reads the 2bpp tile at addr. Each row is two bytes, low plane
// first; bit 7 is the leftmost pixel.
func DecodeTile(mem *memory.Map, addr uint16) Tile {
	var t Tile
	for row := 0; row < TileSize; row++ {
		t[row] = tileRow(mem, addr, row)
	}
	return t
}

// TileAddress returns where tile index lives for the given LCDC. Bit 4 set
// selects unsigned indexing from 0x8000, clear selects signed indexing
// around 0x9000.
func TileAddress(lcdc byte, index byte) uint16 {
	if lcdc&LCDCTileData != 0 {
		return memory.VRAMStart + uint16(index)*TileBytes
	}
	return uint16(0x9000 + int(int8(index))*TileBytes)
}

// tileRow returns the colour indices of one row without decoding the whole
// tile.
func tileRow(mem *memory.Map, addr uint16, row int) [TileSize]byte {
	var out [TileSize]byte
	lo := mem.Read(addr + uint16(row*2))
	hi := mem.Read(addr + uint16(row*2) + 1)
	for x := 0; x < TileSize; x++ {
		bit := uint(7 - x)
		out[x] = (lo>>bit)&1 | ((hi>>bit)&1)<<1
	}
	return out
}
