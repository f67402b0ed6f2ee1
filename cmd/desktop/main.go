package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"dmgcpu/pkg/machine"
	"dmgcpu/pkg/ppu"
	"dmgcpu/pkg/statsview"
)

// overlayHeight fits three lines of the debug font below the LCD.
const overlayHeight = 48

type Game struct {
	m *machine.Machine

	lcd   *ppu.Framebuffer
	tiles *ppu.Framebuffer

	lcdImg  *ebiten.Image // reused 160x144 canvas
	tileImg *ebiten.Image // reused 128x128 canvas

	paused    bool
	showTiles bool
	overlay   bool
	err       error

	screenshotScale int
}

func NewGame(m *machine.Machine) *Game {
	return &Game{
		m:               m,
		lcd:             ppu.NewFramebuffer(ppu.ScreenWidth, ppu.ScreenHeight),
		tiles:           ppu.NewFramebuffer(ppu.TileViewWidth, ppu.TileViewHeight),
		overlay:         true,
		screenshotScale: 4,
	}
}

// advance runs one frame unless paused or stopped, then redraws the
// framebuffers from video memory.
func (g *Game) advance() {
	if !g.paused && g.err == nil {
		if _, err := g.m.RunFrame(); err != nil {
			g.err = err
		} else if g.m.Halted() {
			g.err = machine.ErrHalted
		}
	}
	mem := g.m.Memory()
	ppu.RenderBackground(mem, g.lcd)
	if g.showTiles {
		ppu.RenderTiles(mem, g.tiles)
	}
}

func (g *Game) screenshot() (string, error) {
	name := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
	return name, g.lcd.SaveScreenshot(name, g.screenshotScale)
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		g.showTiles = !g.showTiles
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		g.overlay = !g.overlay
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := g.screenshot(); err != nil {
			log.Printf("screenshot: %v", err)
		} else {
			log.Printf("saved %s", name)
		}
	}
	g.advance()
	return nil
}

func (g *Game) status() string {
	c := g.m.CPU()
	s := fmt.Sprintf("PC:%04X SP:%04X %s\nLY:%d frame:%d", c.PC, c.SP, c.Regs, g.m.LCD().Line(), g.m.Frames())
	switch {
	case g.err != nil && errors.Is(g.err, machine.ErrHalted):
		s += "\nhalted"
	case g.err != nil:
		s += "\n" + g.err.Error()
	case g.paused:
		s += "\npaused"
	}
	return s
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.lcdImg == nil {
		g.lcdImg = ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight)
	}
	g.lcdImg.WritePixels(g.lcd.Pix)
	screen.DrawImage(g.lcdImg, nil)

	if g.showTiles {
		if g.tileImg == nil {
			g.tileImg = ebiten.NewImage(ppu.TileViewWidth, ppu.TileViewHeight)
		}
		g.tileImg.WritePixels(g.tiles.Pix)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(ppu.ScreenWidth, 0)
		screen.DrawImage(g.tileImg, op)
	}

	if g.overlay {
		ebitenutil.DebugPrintAt(screen, g.status(), 2, ppu.ScreenHeight)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := ppu.ScreenWidth, ppu.ScreenHeight
	if g.showTiles {
		w += ppu.TileViewWidth
	}
	if g.overlay {
		h += overlayHeight
	}
	return w, h
}

func main() {
	bootPath := flag.String("boot", "", "256-byte boot ROM mapped at 0x0000")
	romPath := flag.String("rom", "", "cartridge image")
	scale := flag.Int("scale", 3, "window scale")
	noInterrupts := flag.Bool("no-interrupts", false, "do not service interrupts")
	stats := flag.Bool("statsview", false, "serve runtime statistics while running")
	verbose := flag.Bool("v", false, "log machine events to stderr")
	flag.Parse()

	if *stats {
		statsview.Launch(os.Stderr)
	}

	cfg := machine.DefaultConfig()
	cfg.Interrupts = !*noInterrupts
	cfg.Serial = os.Stdout
	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	cfg.Logger = log.New(logOut, "dmg: ", log.LstdFlags)

	m := machine.New(cfg)
	if err := m.LoadFiles(*bootPath, *romPath); err != nil {
		log.Fatal(err)
	}

	game := NewGame(m)
	game.screenshotScale = *scale
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(ppu.ScreenWidth**scale, (ppu.ScreenHeight+overlayHeight)**scale)
	ebiten.SetWindowTitle("DMG CPU")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
