package ppu

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Screen dimensions in pixels.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Tile viewer dimensions: 256 tiles in a 16x16 grid.
const (
	TileViewCols   = 16
	TileViewWidth  = TileViewCols * TileSize
	TileViewHeight = 256 / TileViewCols * TileSize
)

// Palette maps the four DMG shades to RGBA, lightest first.
var Palette = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

// shade applies a BGP-style palette register to a colour index.
func shade(pal byte, idx byte) byte {
	return (pal >> (idx * 2)) & 0x03
}

// Framebuffer is an RGBA8888 pixel buffer.
type Framebuffer struct {
	Width, Height int
	Pix           []byte
}

func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// SetShade paints pixel (x, y) with one of the four DMG shades.
func (fb *Framebuffer) SetShade(x, y int, s byte) {
	c := Palette[s&0x03]
	i := (y*fb.Width + x) * 4
	fb.Pix[i+0] = c.R
	fb.Pix[i+1] = c.G
	fb.Pix[i+2] = c.B
	fb.Pix[i+3] = c.A
}

// At returns the colour at (x, y).
func (fb *Framebuffer) At(x, y int) color.RGBA {
	i := (y*fb.Width + x) * 4
	return color.RGBA{fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2], fb.Pix[i+3]}
}

// Fill paints the whole buffer with one shade.
func (fb *Framebuffer) Fill(s byte) {
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			fb.SetShade(x, y, s)
		}
	}
}

// Image wraps the pixels as an *image.RGBA without copying.
func (fb *Framebuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    fb.Pix,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}

// Scaled returns a nearest-neighbour enlargement of the buffer.
func (fb *Framebuffer) Scaled(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, fb.Width*scale, fb.Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), fb.Image(), fb.Image().Bounds(), draw.Src, nil)
	return dst
}

// SaveScreenshot encodes the buffer, enlarged by scale, as a PNG file.
func (fb *Framebuffer) SaveScreenshot(filename string, scale int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb.Scaled(scale))
}
