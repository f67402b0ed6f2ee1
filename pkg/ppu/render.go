package ppu

import (
	"dmgcpu/pkg/grid"
	"dmgcpu/pkg/memory"
)

const (
	bgMap0   uint16 = 0x9800
	bgMap1   uint16 = 0x9C00
	mapTiles        = 32
)

// RenderBackground draws the 160x144 screen from the background and window
// tile maps. Sprites are not drawn. With the LCD off the screen is blank;
// with the background disabled it shows shade 0.
func RenderBackground(mem *memory.Map, fb *Framebuffer) {
	lcdc := mem.Read(memory.LCDC)
	if lcdc&LCDCEnable == 0 || lcdc&LCDCBGEnable == 0 {
		fb.Fill(0)
		return
	}

	bgp := mem.Read(memory.BGP)
	scx, scy := int(mem.Read(memory.SCX)), int(mem.Read(memory.SCY))
	bgMap := bgMap0
	if lcdc&LCDCBGMap != 0 {
		bgMap = bgMap1
	}

	window := lcdc&LCDCWindowEnable != 0
	wx, wy := int(mem.Read(memory.WX))-7, int(mem.Read(memory.WY))
	winMap := bgMap0
	if lcdc&LCDCWindowMap != 0 {
		winMap = bgMap1
	}

	w, h := min(fb.Width, ScreenWidth), min(fb.Height, ScreenHeight)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var idx byte
			if window && y >= wy && x >= wx {
				idx = mapPixel(mem, lcdc, winMap, x-wx, y-wy)
			} else {
				idx = mapPixel(mem, lcdc, bgMap, (x+scx)&0xFF, (y+scy)&0xFF)
			}
			fb.SetShade(x, y, shade(bgp, idx))
		}
	}
}

// mapPixel returns the colour index at (x, y) of the 256x256 map at base.
func mapPixel(mem *memory.Map, lcdc byte, base uint16, x, y int) byte {
	entry := base + uint16((y/TileSize)*mapTiles+x/TileSize)
	addr := TileAddress(lcdc, mem.Read(entry))
	row := tileRow(mem, addr, y%TileSize)
	return row[x%TileSize]
}

// RenderTiles draws the 256 tiles at 0x8000 as a 16x16 grid into a
// 128x128 buffer, using raw colour indices as shades.
func RenderTiles(mem *memory.Map, fb *Framebuffer) {
	for i := 0; i < 256; i++ {
		col, rowOfTiles := grid.GetGridCoords(i, TileViewCols)
		tile := DecodeTile(mem, memory.VRAMStart+uint16(i)*TileBytes)
		for ty := 0; ty < TileSize; ty++ {
			for tx := 0; tx < TileSize; tx++ {
				x, y := col*TileSize+tx, rowOfTiles*TileSize+ty
				if x < fb.Width && y < fb.Height {
					fb.SetShade(x, y, tile[ty][tx])
				}
			}
		}
	}
}
