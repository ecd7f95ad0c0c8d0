// Package viz renders the buffer slot layout of the LOD engine as an image,
// one row per cube face and one cell per slot.
package viz

import (
	"image"
	"image/color"
	"image/draw"

	"planet-lod/internal/lod"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	CellSize   = 12
	cellGap    = 2
	labelWidth = 56
	margin     = 4
)

var (
	Background = color.RGBA{24, 24, 28, 255}
	FreeColor  = color.RGBA{48, 48, 56, 255}
	RootColor  = color.RGBA{200, 200, 200, 255}
	labelColor = color.RGBA{230, 230, 230, 255}
)

// LevelColor returns the fill of a slot holding a node of the given level,
// blue for coarse nodes fading to orange for the deepest ones.
func LevelColor(level uint32) color.RGBA {
	t := float64(level) / float64(lod.MaxLevel)
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return color.RGBA{lerp(50, 255), lerp(130, 100), lerp(255, 25), 255}
}

// CellOrigin returns the top-left pixel of a slot's cell.
func CellOrigin(face lod.Face, slot int) image.Point {
	return image.Point{
		X: margin + labelWidth + slot*(CellSize+cellGap),
		Y: margin + int(face)*(CellSize+cellGap),
	}
}

// RenderLayout draws the packed layout (face-major, lod.MaxNodes slots per
// face) returned by lod.Engine.PackedLayout.
func RenderLayout(packed []lod.Code) *image.RGBA {
	width := 2*margin + labelWidth + lod.MaxNodes*(CellSize+cellGap)
	height := 2*margin + lod.NumFaces*(CellSize+cellGap)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{Background}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}

	for _, face := range lod.Faces() {
		origin := CellOrigin(face, 0)
		d.Dot = fixed.P(margin, origin.Y+CellSize-2)
		d.DrawString(face.String())

		start := min(int(face)*lod.MaxNodes, len(packed))
		slots := packed[start:min(start+lod.MaxNodes, len(packed))]
		rootActive := lod.RootActive(slots)

		for slot, code := range slots {
			fill := slotColor(code, slot, rootActive)
			o := CellOrigin(face, slot)
			cell := image.Rect(o.X, o.Y, o.X+CellSize, o.Y+CellSize)
			draw.Draw(img, cell, &image.Uniform{fill}, image.Point{}, draw.Src)
		}
	}
	return img
}

func slotColor(code lod.Code, slot int, rootActive bool) color.RGBA {
	switch {
	case slot == 0 && rootActive:
		return RootColor
	case code == 0:
		return FreeColor
	default:
		return LevelColor(code.Level())
	}
}
