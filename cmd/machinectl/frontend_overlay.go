// frontend_overlay.go - boot splash and F1 register overlay
//
// Grounded in the teacher's embed.FS splash-frame handling (video_chip.go)
// and its on-screen text rendering, narrowed to golang.org/x/image/font's
// basicfont bitmap face since the splash card and register readout are
// plain status text, not a glyph atlas the way the teacher's sprite fonts
// work.

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zotley/octabus65/machine"
)

const splashFrameCount = 90 // ~1.5s at 60fps before the boot card fades from view

var (
	splashOnce  sync.Once
	splashImage *ebiten.Image
)

// splashOverlay lazily renders the boot title card once and reuses the
// resulting image for every frame it's shown on.
func splashOverlay() *ebiten.Image {
	splashOnce.Do(func() {
		rgba := image.NewRGBA(image.Rect(0, 0, machine.FrameWidth, machine.FrameHeight))
		draw.Draw(rgba, rgba.Bounds(), image.Transparent, image.Point{}, draw.Src)

		face := basicfont.Face7x13
		title := "OCTABUS65"
		width := font.MeasureString(face, title).Ceil()
		d := &font.Drawer{
			Dst:  rgba,
			Src:  image.NewUniform(color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.I(machine.FrameWidth/2 - width/2), Y: fixed.I(machine.FrameHeight / 2)},
		}
		d.DrawString(title)

		splashImage = ebiten.NewImageFromImage(rgba)
	})
	return splashImage
}

// debugOverlayImage renders the current register state as a small
// translucent strip in the corner of the window. Built fresh every call
// since it's debug-only and toggled off by default (F1).
func debugOverlayImage(cpu *machine.CPU) *ebiten.Image {
	const w, h = 184, 16
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0xC0}), image.Point{}, draw.Src)

	text := fmt.Sprintf("PC=%04X A=%02X X=%02X Y=%02X CYC=%d", cpu.PC, cpu.A, cpu.X, cpu.Y, cpu.Cycles)
	d := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{0x40, 0xFF, 0x40, 0xFF}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(2), Y: fixed.I(12)},
	}
	d.DrawString(text)

	return ebiten.NewImageFromImage(rgba)
}
